package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/platform/qdrant"
)

type VectorProvider string

const (
	VectorProviderChromem VectorProvider = "chromem"
	VectorProviderQdrant  VectorProvider = "qdrant"
)

type VectorProviderConfigErrorCode string

const (
	VectorProviderConfigErrorInvalidProvider      VectorProviderConfigErrorCode = "invalid_provider"
	VectorProviderConfigErrorMissingQdrantURL     VectorProviderConfigErrorCode = "missing_qdrant_url"
	VectorProviderConfigErrorInvalidQdrantURL     VectorProviderConfigErrorCode = "invalid_qdrant_url"
	VectorProviderConfigErrorInvalidVectorDim     VectorProviderConfigErrorCode = "invalid_vector_dim"
	VectorProviderConfigErrorUnknownQdrantFailure VectorProviderConfigErrorCode = "qdrant_config_error"
)

type VectorProviderConfigError struct {
	Code     VectorProviderConfigErrorCode
	Provider VectorProvider
	Cause    error
}

func (e *VectorProviderConfigError) Error() string {
	if e == nil {
		return "invalid vector provider config"
	}
	return fmt.Sprintf("invalid vector provider config (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

type VectorProviderConfig struct {
	Provider VectorProvider
	// ChromemPath is empty for an in-memory store.
	ChromemPath string
	Qdrant      qdrant.Config
	// VectorDim, when set, is enforced on every upsert and query.
	VectorDim int
}

func resolveVectorProviderConfig(cfg Config) (VectorProviderConfig, error) {
	provider := VectorProvider(strings.ToLower(strings.TrimSpace(cfg.VectorProvider)))
	if provider == "" {
		provider = VectorProviderChromem
	}
	if cfg.QdrantVectorDim < 0 {
		return VectorProviderConfig{}, &VectorProviderConfigError{
			Code:     VectorProviderConfigErrorInvalidVectorDim,
			Provider: provider,
			Cause:    fmt.Errorf("QDRANT_VECTOR_DIM must be positive, got %d", cfg.QdrantVectorDim),
		}
	}
	switch provider {
	case VectorProviderChromem:
		return VectorProviderConfig{
			Provider:    provider,
			ChromemPath: strings.TrimSpace(cfg.ChromemPath),
			VectorDim:   cfg.QdrantVectorDim,
		}, nil
	case VectorProviderQdrant:
		qcfg, err := qdrant.ResolveConfigFromEnv()
		if err != nil {
			return VectorProviderConfig{}, mapVectorProviderConfigError(provider, err)
		}
		return VectorProviderConfig{Provider: provider, Qdrant: qcfg, VectorDim: cfg.QdrantVectorDim}, nil
	default:
		return VectorProviderConfig{}, &VectorProviderConfigError{
			Code:     VectorProviderConfigErrorInvalidProvider,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported vector provider %q (want chromem or qdrant)", provider),
		}
	}
}

func mapVectorProviderConfigError(provider VectorProvider, err error) error {
	code := VectorProviderConfigErrorUnknownQdrantFailure
	var qerr *qdrant.ConfigError
	if errors.As(err, &qerr) {
		switch qerr.Code {
		case qdrant.ConfigErrorMissingURL:
			code = VectorProviderConfigErrorMissingQdrantURL
		case qdrant.ConfigErrorInvalidURL:
			code = VectorProviderConfigErrorInvalidQdrantURL
		}
	}
	return &VectorProviderConfigError{Code: code, Provider: provider, Cause: err}
}
