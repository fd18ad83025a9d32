package qdrant

import (
	"errors"
	"testing"
)

func TestResolveConfigFromEnv(t *testing.T) {
	t.Setenv("QDRANT_URL", "")
	_, err := ResolveConfigFromEnv()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Code != ConfigErrorMissingURL {
		t.Fatalf("expected missing url error, got %v", err)
	}

	t.Setenv("QDRANT_URL", "qdrant:6333")
	_, err = ResolveConfigFromEnv()
	if !errors.As(err, &cfgErr) || cfgErr.Code != ConfigErrorInvalidURL {
		t.Fatalf("expected invalid url error, got %v", err)
	}

	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_TIMEOUT_SECONDS", "5")
	cfg, err := ResolveConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Timeout.Seconds() != 5 {
		t.Fatalf("timeout = %v", cfg.Timeout)
	}
}
