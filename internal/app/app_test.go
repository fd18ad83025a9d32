package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bizplan-backend/internal/platform/logger"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
)

func testConfig() Config {
	cfg := LoadConfig()
	cfg.OpenAI = openai.Config{APIKey: "sk-test", BaseURL: "http://127.0.0.1:1"}
	cfg.VisionEnabled = false
	cfg.VectorProvider = string(VectorProviderChromem)
	cfg.ChromemPath = ""
	cfg.CheckpointStore = string(CheckpointSQLite)
	cfg.SQLitePath = ":memory:"
	cfg.RedisAddr = ""
	cfg.LawVectorDBPath = ""
	cfg.Otel.Enabled = false
	return cfg
}

func TestNewWithConfigServesRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, err := NewWithConfig(context.Background(), logger.Nop(), testConfig())
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	defer a.Close()

	if a.Clients.Legal != nil {
		t.Fatalf("law store should be disabled without LAW_VECTOR_DB_PATH")
	}
	if a.Clients.Vision != nil {
		t.Fatalf("vision should be disabled")
	}

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	var health struct {
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if health.Checks["checkpoints"] != "ok" {
		t.Fatalf("sqlite checkpoint probe missing: %+v", health.Checks)
	}

	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/draft/threads", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("threads: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("request id header missing")
	}
}

func TestNewWithConfigRejectsBadProviders(t *testing.T) {
	cfg := testConfig()
	cfg.CheckpointStore = "etcd"
	if _, err := NewWithConfig(context.Background(), logger.Nop(), cfg); err == nil {
		t.Fatalf("expected checkpoint bootstrap error")
	}

	cfg = testConfig()
	cfg.OpenAI.APIKey = ""
	if _, err := NewWithConfig(context.Background(), logger.Nop(), cfg); err == nil {
		t.Fatalf("expected missing OPENAI_API_KEY error")
	}
}
