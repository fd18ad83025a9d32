// Package checkpoint persists drafting thread state. Every backend stores a
// whole serialized State per thread id and swaps it atomically on Save.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
)

type Store interface {
	// Load returns nil, nil when the thread has no checkpoint.
	Load(ctx context.Context, threadID string) (*drafting.State, error)
	Save(ctx context.Context, threadID string, st *drafting.State) error
	List(ctx context.Context) ([]drafting.ThreadSummary, error)
}

// Locker grants one in-flight turn per thread. Acquire fails fast with
// apierr.ErrTurnInFlight when the thread is busy.
type Locker interface {
	Acquire(ctx context.Context, threadID string) (release func(), err error)
}

func validThreadID(threadID string) (string, error) {
	id := strings.TrimSpace(threadID)
	if id == "" {
		return "", fmt.Errorf("missing thread_id")
	}
	return id, nil
}

func encode(st *drafting.State, now time.Time) ([]byte, error) {
	if st == nil {
		return nil, fmt.Errorf("nil state")
	}
	st.UpdatedAt = now.UTC()
	return json.Marshal(st)
}

func decode(raw []byte) (*drafting.State, error) {
	st := &drafting.State{}
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	if st.SectionScores == nil {
		st.SectionScores = map[string]int{}
	}
	return st, nil
}

func summaryOf(threadID string, st *drafting.State) drafting.ThreadSummary {
	return drafting.ThreadSummary{
		ThreadID:      threadID,
		UserID:        st.UserID,
		ProjectIdx:    st.ProjectIdx,
		TargetChapter: st.TargetChapter,
		UpdatedAt:     st.UpdatedAt,
	}
}

// newest first, thread id as tie-break
func sortSummaries(out []drafting.ThreadSummary) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ThreadID < out[j].ThreadID
	})
}
