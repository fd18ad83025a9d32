package checkpoint

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/bizplan-backend/internal/data/repos/testutil"
	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
	"github.com/yungbote/bizplan-backend/internal/platform/apierr"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

func sampleState() *drafting.State {
	st := drafting.NewState("author", 12)
	st.TargetChapter = "1.1 사업 배경"
	st.CollectedData = "\n[사용자]: 배경 설명"
	st.SectionScores["1.1"] = 40
	st.AddMessage(drafting.RoleAssistant, "안녕하세요")
	return st
}

// exercise runs the shared contract against any Store.
func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	st := sampleState()
	require.NoError(t, s.Save(ctx, "t-1", st))
	got, err = s.Load(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1.1 사업 배경", got.TargetChapter)
	assert.Equal(t, 40, got.SectionScores["1.1"])
	assert.Len(t, got.Messages, 1)

	// loads are independent copies
	got.CollectedData = "mutated"
	again, err := s.Load(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, st.CollectedData, again.CollectedData)

	st.TargetChapter = "1.2 사업 목표"
	require.NoError(t, s.Save(ctx, "t-1", st))
	other := drafting.NewState("someone", 3)
	require.NoError(t, s.Save(ctx, "t-2", other))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	byID := map[string]drafting.ThreadSummary{}
	for _, sum := range list {
		byID[sum.ThreadID] = sum
	}
	assert.Equal(t, "1.2 사업 목표", byID["t-1"].TargetChapter)
	assert.EqualValues(t, 3, byID["t-2"].ProjectIdx)

	require.Error(t, s.Save(ctx, " ", st))
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore())
}

func TestGormStoreOnSQLite(t *testing.T) {
	exercise(t, NewGormStore(testutil.SQLite(t), logger.Nop()))
}

func TestGormStoreOnPostgres(t *testing.T) {
	tx := testutil.Tx(t, testutil.Postgres(t))
	require.NoError(t, tx.Exec("DELETE FROM draft_thread_checkpoint").Error)
	exercise(t, NewGormStore(tx, testutil.Logger(t)))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.FlushDB(context.Background()).Err())
	exercise(t, NewRedisStore(rdb, logger.Nop()))

	locker := NewRedisLocker(rdb, logger.Nop(), time.Minute)
	release, err := locker.Acquire(context.Background(), "t-1")
	require.NoError(t, err)
	_, err = locker.Acquire(context.Background(), "t-1")
	require.ErrorIs(t, err, apierr.ErrTurnInFlight)
	release()
	release2, err := locker.Acquire(context.Background(), "t-1")
	require.NoError(t, err)
	release2()
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "thread")
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), "thread")
	require.ErrorIs(t, err, apierr.ErrTurnInFlight)

	other, err := l.Acquire(context.Background(), "other")
	require.NoError(t, err)
	other()

	release()
	release()
	again, err := l.Acquire(context.Background(), "thread")
	require.NoError(t, err)
	again()
}
