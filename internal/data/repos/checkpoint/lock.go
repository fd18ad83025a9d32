package checkpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/bizplan-backend/internal/platform/apierr"
)

// LocalLocker serialises turns within one process.
type LocalLocker struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{busy: map[string]struct{}{}}
}

func (l *LocalLocker) Acquire(_ context.Context, threadID string) (func(), error) {
	id, err := validThreadID(threadID)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.busy[id]; taken {
		return nil, fmt.Errorf("thread %s: %w", id, apierr.ErrTurnInFlight)
	}
	l.busy[id] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.busy, id)
			l.mu.Unlock()
		})
	}, nil
}
