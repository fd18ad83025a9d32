package app

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/bizplan-backend/internal/data/db"
	"github.com/yungbote/bizplan-backend/internal/data/repos/checkpoint"
	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

func TestResolveCheckpointsMemoryByDefault(t *testing.T) {
	cp, err := resolveCheckpoints(context.Background(), logger.Nop(), Config{})
	if err != nil {
		t.Fatalf("resolveCheckpoints: %v", err)
	}
	defer cp.Close()
	if cp.Backend != CheckpointMemory {
		t.Fatalf("backend: want=%q got=%q", CheckpointMemory, cp.Backend)
	}
	if _, ok := cp.Store.(*checkpoint.MemoryStore); !ok {
		t.Fatalf("store: want *checkpoint.MemoryStore got %T", cp.Store)
	}
	if _, ok := cp.Locker.(*checkpoint.LocalLocker); !ok {
		t.Fatalf("locker: want *checkpoint.LocalLocker got %T", cp.Locker)
	}
	if cp.Probe != nil {
		t.Fatalf("memory store has nothing to probe")
	}
}

func TestResolveCheckpointsSQLiteMigratesAndPersists(t *testing.T) {
	cp, err := resolveCheckpoints(context.Background(), logger.Nop(), Config{CheckpointStore: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("resolveCheckpoints: %v", err)
	}
	defer cp.Close()

	if err := cp.Probe(context.Background()); err != nil {
		t.Fatalf("probe: %v", err)
	}
	st := drafting.NewState("u-1", 3)
	if err := cp.Store.Save(context.Background(), "t-1", st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := cp.Store.Load(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.ProjectIdx != 3 {
		t.Fatalf("Load: unexpected state %+v", got)
	}
}

func TestResolveCheckpointsErrors(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want CheckpointBootstrapErrorCode
	}{
		{"unknown backend", Config{CheckpointStore: "mongo"}, CheckpointBootstrapErrorInvalidBackend},
		{"redis without address", Config{CheckpointStore: "redis"}, CheckpointBootstrapErrorMissingRedisAddr},
		{"redis unreachable", Config{CheckpointStore: "redis", RedisAddr: "127.0.0.1:1"}, CheckpointBootstrapErrorConnectFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resolveCheckpoints(context.Background(), logger.Nop(), tc.cfg)
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			var bootErr *CheckpointBootstrapError
			if !errors.As(err, &bootErr) {
				t.Fatalf("expected CheckpointBootstrapError, got=%T", err)
			}
			if bootErr.Code != tc.want {
				t.Fatalf("error code: want=%q got=%q", tc.want, bootErr.Code)
			}
		})
	}
}

func TestResolveCheckpointsPostgresFailureIsConnectFailed(t *testing.T) {
	orig := openPostgres
	t.Cleanup(func() { openPostgres = orig })
	openPostgres = func(*logger.Logger, db.Config) (*gorm.DB, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	_, err := resolveCheckpoints(context.Background(), logger.Nop(), Config{CheckpointStore: "postgres"})
	var bootErr *CheckpointBootstrapError
	if !errors.As(err, &bootErr) || bootErr.Code != CheckpointBootstrapErrorConnectFailed {
		t.Fatalf("want connect_failed, got %v", err)
	}
}
