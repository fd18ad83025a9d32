package checkpoint

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
)

// MemoryStore keeps serialized snapshots in process. Loads decode a fresh
// copy, so callers never share State values.
type MemoryStore struct {
	items *gocache.Cache
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: gocache.New(gocache.NoExpiration, 0), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, threadID string) (*drafting.State, error) {
	id, err := validThreadID(threadID)
	if err != nil {
		return nil, err
	}
	v, ok := s.items.Get(id)
	if !ok {
		return nil, nil
	}
	return decode(v.([]byte))
}

func (s *MemoryStore) Save(_ context.Context, threadID string, st *drafting.State) error {
	id, err := validThreadID(threadID)
	if err != nil {
		return err
	}
	raw, err := encode(st, s.now())
	if err != nil {
		return err
	}
	s.items.Set(id, raw, gocache.NoExpiration)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]drafting.ThreadSummary, error) {
	items := s.items.Items()
	out := make([]drafting.ThreadSummary, 0, len(items))
	for id, it := range items {
		st, err := decode(it.Object.([]byte))
		if err != nil {
			return nil, err
		}
		out = append(out, summaryOf(id, st))
	}
	sortSummaries(out)
	return out, nil
}
