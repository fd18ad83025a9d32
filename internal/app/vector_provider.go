package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"
	"time"

	"github.com/yungbote/bizplan-backend/internal/http/handlers"
	"github.com/yungbote/bizplan-backend/internal/platform/chromemdb"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
	"github.com/yungbote/bizplan-backend/internal/platform/qdrant"
	"github.com/yungbote/bizplan-backend/internal/platform/vectorstore"
)

const readyCheckTimeout = 5 * time.Second

var (
	newQdrantVectorStore = func(log *logger.Logger, cfg qdrant.Config) (vectorstore.Store, error) {
		vs, err := qdrant.NewVectorStore(log, cfg)
		if err != nil {
			return nil, err
		}
		return vs, nil
	}
	openChromemStore = func(log *logger.Logger, path string) (vectorstore.Store, error) {
		vs, err := chromemdb.Open(log, path)
		if err != nil {
			return nil, err
		}
		return vs, nil
	}
)

// readiness is implemented by stores that can answer a health probe.
type readiness interface {
	Ready(ctx context.Context) error
}

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorInvalidConfig      VectorProviderBootstrapErrorCode = "invalid_config"
	VectorProviderBootstrapErrorConnectFailed      VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed VectorProviderBootstrapErrorCode = "provider_init_failed"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider VectorProvider
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf("vector provider bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveVectorStoreProvider opens the project vector store selected by
// VECTOR_PROVIDER. The returned probe is nil for stores without a readiness
// endpoint.
func resolveVectorStoreProvider(ctx context.Context, log *logger.Logger, cfg Config) (vectorstore.Store, handlers.Probe, error) {
	pcfg, err := resolveVectorProviderConfig(cfg)
	if err != nil {
		log.Error("Vector store provider selection failed", "provider", cfg.VectorProvider, "error", err)
		return nil, nil, &VectorProviderBootstrapError{
			Code:     VectorProviderBootstrapErrorInvalidConfig,
			Provider: VectorProvider(cfg.VectorProvider),
			Cause:    err,
		}
	}

	var inner vectorstore.Store
	switch pcfg.Provider {
	case VectorProviderQdrant:
		log.Info("Selecting vector store provider", "provider", pcfg.Provider, "qdrant_url", pcfg.Qdrant.URL, "vector_dim", pcfg.VectorDim)
		inner, err = newQdrantVectorStore(log, pcfg.Qdrant)
	default:
		log.Info("Selecting vector store provider", "provider", pcfg.Provider, "chromem_path", pcfg.ChromemPath, "vector_dim", pcfg.VectorDim)
		inner, err = openChromemStore(log, pcfg.ChromemPath)
	}
	if err != nil {
		classified := classifyVectorProviderBootstrapError(pcfg.Provider, err)
		log.Error("Vector store provider bootstrap failed", "provider", pcfg.Provider, "error", classified)
		return nil, nil, classified
	}

	var probe handlers.Probe
	if r, ok := inner.(readiness); ok {
		rctx, cancel := context.WithTimeout(ctx, readyCheckTimeout)
		err := r.Ready(rctx)
		cancel()
		if err != nil {
			classified := classifyVectorProviderBootstrapError(pcfg.Provider, fmt.Errorf("ready check failed: %w", err))
			log.Error("Vector store provider bootstrap failed", "provider", pcfg.Provider, "error", classified)
			return nil, nil, classified
		}
		probe = r.Ready
	}
	return instrumentVectorStore(string(pcfg.Provider), inner, pcfg.VectorDim), probe, nil
}

func classifyVectorProviderBootstrapError(provider VectorProvider, err error) error {
	code := VectorProviderBootstrapErrorProviderInitFailed
	var (
		urlErr *neturl.Error
		netErr net.Error
		cfgErr *qdrant.ConfigError
		opErr  *qdrant.OperationError
	)
	switch {
	case errors.As(err, &cfgErr):
		code = VectorProviderBootstrapErrorInvalidConfig
	case errors.As(err, &urlErr), errors.As(err, &netErr), errors.As(err, &opErr):
		code = VectorProviderBootstrapErrorConnectFailed
	default:
		lower := strings.ToLower(err.Error())
		if strings.Contains(lower, "ready check failed") || strings.Contains(lower, "connection refused") {
			code = VectorProviderBootstrapErrorConnectFailed
		}
	}
	return &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
}
