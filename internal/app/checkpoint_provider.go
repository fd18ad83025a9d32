package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/bizplan-backend/internal/data/db"
	"github.com/yungbote/bizplan-backend/internal/data/repos/checkpoint"
	"github.com/yungbote/bizplan-backend/internal/http/handlers"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

type CheckpointBackend string

const (
	CheckpointMemory   CheckpointBackend = "memory"
	CheckpointPostgres CheckpointBackend = "postgres"
	CheckpointSQLite   CheckpointBackend = "sqlite"
	CheckpointRedis    CheckpointBackend = "redis"
)

var (
	openPostgres = db.OpenPostgres
	openSQLite   = db.OpenSQLite
)

type CheckpointBootstrapErrorCode string

const (
	CheckpointBootstrapErrorInvalidBackend   CheckpointBootstrapErrorCode = "invalid_backend"
	CheckpointBootstrapErrorMissingRedisAddr CheckpointBootstrapErrorCode = "missing_redis_addr"
	CheckpointBootstrapErrorConnectFailed    CheckpointBootstrapErrorCode = "connect_failed"
	CheckpointBootstrapErrorMigrateFailed    CheckpointBootstrapErrorCode = "migrate_failed"
)

type CheckpointBootstrapError struct {
	Code    CheckpointBootstrapErrorCode
	Backend CheckpointBackend
	Cause   error
}

func (e *CheckpointBootstrapError) Error() string {
	if e == nil {
		return "checkpoint store bootstrap failed"
	}
	return fmt.Sprintf("checkpoint store bootstrap failed (code=%s backend=%q): %v", e.Code, e.Backend, e.Cause)
}

func (e *CheckpointBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Checkpoints is the drafting agent's persistence: the state store, the
// per-thread lock and what to close on shutdown.
type Checkpoints struct {
	Backend CheckpointBackend
	Store   checkpoint.Store
	Locker  checkpoint.Locker
	Probe   handlers.Probe
	closers []func() error
}

func (c *Checkpoints) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
	c.closers = nil
}

// resolveCheckpoints opens the backend named by CHECKPOINT_STORE. With
// REDIS_ADDR set, thread locks go through redis whatever the state backend,
// so replicas sharing a database also share locks.
func resolveCheckpoints(ctx context.Context, log *logger.Logger, cfg Config) (*Checkpoints, error) {
	backend := CheckpointBackend(strings.ToLower(strings.TrimSpace(cfg.CheckpointStore)))
	if backend == "" {
		backend = CheckpointMemory
	}
	fail := func(code CheckpointBootstrapErrorCode, err error) (*Checkpoints, error) {
		bootErr := &CheckpointBootstrapError{Code: code, Backend: backend, Cause: err}
		log.Error("Checkpoint store bootstrap failed", "backend", backend, "error_code", code, "error", err)
		return nil, bootErr
	}
	log.Info("Selecting checkpoint store", "backend", backend, "redis_locks", cfg.RedisAddr != "")

	cp := &Checkpoints{Backend: backend}
	var rdb *goredis.Client
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		var err error
		rdb, err = connectRedis(ctx, cfg)
		if err != nil {
			return fail(CheckpointBootstrapErrorConnectFailed, err)
		}
		cp.closers = append(cp.closers, rdb.Close)
		cp.Locker = checkpoint.NewRedisLocker(rdb, log, cfg.ThreadLockTTL)
	}

	switch backend {
	case CheckpointMemory:
		cp.Store = checkpoint.NewMemoryStore()

	case CheckpointPostgres, CheckpointSQLite:
		var (
			gdb *gorm.DB
			err error
		)
		if backend == CheckpointPostgres {
			gdb, err = openPostgres(log, cfg.Postgres)
		} else {
			gdb, err = openSQLite(log, cfg.SQLitePath)
		}
		if err != nil {
			cp.Close()
			return fail(CheckpointBootstrapErrorConnectFailed, err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			cp.Close()
			return fail(CheckpointBootstrapErrorConnectFailed, err)
		}
		cp.closers = append(cp.closers, sqlDB.Close)
		if err := db.AutoMigrateAll(gdb); err != nil {
			cp.Close()
			return fail(CheckpointBootstrapErrorMigrateFailed, err)
		}
		cp.Store = checkpoint.NewGormStore(gdb, log)
		cp.Probe = sqlDB.PingContext

	case CheckpointRedis:
		if rdb == nil {
			return fail(CheckpointBootstrapErrorMissingRedisAddr, fmt.Errorf("REDIS_ADDR is required for CHECKPOINT_STORE=redis"))
		}
		cp.Store = checkpoint.NewRedisStore(rdb, log)

	default:
		cp.Close()
		return fail(CheckpointBootstrapErrorInvalidBackend, fmt.Errorf("unsupported checkpoint store %q (want memory, postgres, sqlite or redis)", backend))
	}

	if rdb != nil && cp.Probe == nil {
		cp.Probe = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	if cp.Locker == nil {
		cp.Locker = checkpoint.NewLocalLocker()
	}
	return cp, nil
}

func connectRedis(ctx context.Context, cfg Config) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        strings.TrimSpace(cfg.RedisAddr),
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}
