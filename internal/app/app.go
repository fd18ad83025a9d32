// Package app wires configuration, clients, stores and services into the
// HTTP host.
package app

import (
	"context"
	"fmt"
	"time"

	httpx "github.com/yungbote/bizplan-backend/internal/http"
	httpH "github.com/yungbote/bizplan-backend/internal/http/handlers"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
	"github.com/yungbote/bizplan-backend/internal/platform/observability"
)

type App struct {
	Log         *logger.Logger
	Cfg         Config
	Clients     Clients
	Checkpoints *Checkpoints
	Services    Services
	Server      *httpx.Server

	shutdownOtel func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg := LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithConfig(ctx, log, cfg)
}

func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	a := &App{Log: log, Cfg: cfg}
	a.shutdownOtel = observability.InitOTel(ctx, log, cfg.Otel)

	vectors, vectorProbe, err := resolveVectorStoreProvider(ctx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Checkpoints, err = resolveCheckpoints(ctx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients, err = wireClients(log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Services, err = wireServices(log, cfg, a.Clients, vectors, a.Checkpoints)
	if err != nil {
		a.Close()
		return nil, err
	}

	probes := map[string]httpH.Probe{}
	if vectorProbe != nil {
		probes["vector_store"] = vectorProbe
	}
	if a.Checkpoints.Probe != nil {
		probes["checkpoints"] = a.Checkpoints.Probe
	}
	handlers := wireHandlers(log, cfg, a.Services, probes)
	a.Server = httpx.NewServer(routerConfig(log, cfg, handlers))

	log.Info("App wired",
		"vector_provider", cfg.VectorProvider,
		"checkpoint_store", a.Checkpoints.Backend,
		"question_mode", cfg.DraftQuestionMode,
		"vision", a.Clients.Vision != nil,
		"law_store", a.Clients.Legal != nil,
		"save_to_backend", cfg.SaveToBackend,
	)
	return a, nil
}

// Run serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, ":"+a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Checkpoints.Close()
	a.Clients.Close()
	if a.shutdownOtel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownOtel(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
