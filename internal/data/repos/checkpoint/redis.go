package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
	"github.com/yungbote/bizplan-backend/internal/platform/apierr"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

const (
	redisStatePrefix = "draft:state:"
	redisLockPrefix  = "draft:lock:"
	redisIndexKey    = "draft:threads"
)

// RedisStore keeps each thread as one string key plus a sorted-set index by
// update time for listing.
type RedisStore struct {
	rdb *goredis.Client
	log *logger.Logger
	now func() time.Time
}

func NewRedisStore(rdb *goredis.Client, log *logger.Logger) *RedisStore {
	if log == nil {
		log = logger.Nop()
	}
	return &RedisStore{rdb: rdb, log: log.With("repo", "RedisCheckpointStore"), now: time.Now}
}

func (s *RedisStore) Load(ctx context.Context, threadID string) (*drafting.State, error) {
	id, err := validThreadID(threadID)
	if err != nil {
		return nil, err
	}
	raw, err := s.rdb.Get(ctx, redisStatePrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get checkpoint: %w", err)
	}
	return decode(raw)
}

func (s *RedisStore) Save(ctx context.Context, threadID string, st *drafting.State) error {
	id, err := validThreadID(threadID)
	if err != nil {
		return err
	}
	raw, err := encode(st, s.now())
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, redisStatePrefix+id, raw, 0)
		p.ZAdd(ctx, redisIndexKey, goredis.Z{Score: float64(st.UpdatedAt.UnixMilli()), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save checkpoint: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]drafting.ThreadSummary, error) {
	ids, err := s.rdb.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list checkpoints: %w", err)
	}
	out := make([]drafting.ThreadSummary, 0, len(ids))
	for _, id := range ids {
		st, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if st == nil {
			continue
		}
		out = append(out, summaryOf(id, st))
	}
	sortSummaries(out)
	return out, nil
}

// releaseScript deletes the lock only when it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker is a SET NX lease per thread, shared across replicas. The TTL
// bounds how long a crashed holder blocks the thread.
type RedisLocker struct {
	rdb *goredis.Client
	log *logger.Logger
	ttl time.Duration
}

func NewRedisLocker(rdb *goredis.Client, log *logger.Logger, ttl time.Duration) *RedisLocker {
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisLocker{rdb: rdb, log: log.With("service", "RedisThreadLocker"), ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, threadID string) (func(), error) {
	id, err := validThreadID(threadID)
	if err != nil {
		return nil, err
	}
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, redisLockPrefix+id, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", id, apierr.ErrTurnInFlight)
	}
	return func() {
		// release must outlive a cancelled request context
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{redisLockPrefix + id}, token).Err(); err != nil {
			l.log.Warn("thread lock release failed", "thread_id", id, "error", err)
		}
	}, nil
}
