package app

import (
	"strings"
	"time"

	"github.com/yungbote/bizplan-backend/internal/clients/backend"
	"github.com/yungbote/bizplan-backend/internal/data/db"
	"github.com/yungbote/bizplan-backend/internal/platform/envutil"
	"github.com/yungbote/bizplan-backend/internal/platform/observability"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
)

type Config struct {
	LogMode        string
	Port           string
	CORSOrigins    []string
	MaxUploadBytes int64

	OpenAI        openai.Config
	VisionModel   string
	VisionEnabled bool
	PDFRenderDPI  int

	Backend       backend.Config
	SaveToBackend bool

	VectorProvider  string
	ChromemPath     string
	QdrantVectorDim int

	LawVectorDBPath string
	LawCollection   string

	CheckpointStore string
	Postgres        db.Config
	SQLitePath      string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ThreadLockTTL   time.Duration

	DraftQuestionMode  string
	FeatureCatalogPath string
	StyleGuidePath     string

	VerifyConcurrency int
	GCSMaxObjectBytes int64

	Otel observability.OtelConfig
}

func LoadConfig() Config {
	return Config{
		LogMode:        envutil.String("LOG_MODE", "development"),
		Port:           envutil.String("PORT", "8000"),
		CORSOrigins:    splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		MaxUploadBytes: int64(envutil.Int("MAX_UPLOAD_MB", 64)) << 20,

		OpenAI:        openai.ConfigFromEnv(),
		VisionModel:   envutil.String("OPENAI_VISION_MODEL", "gpt-4o"),
		VisionEnabled: envutil.Bool("VISION_ENABLED", true),
		PDFRenderDPI:  envutil.Int("PDF_RENDER_DPI", 150),

		Backend:       backend.ConfigFromEnv(),
		SaveToBackend: envutil.Bool("SAVE_TO_BACKEND", true),

		VectorProvider:  strings.ToLower(envutil.String("VECTOR_PROVIDER", string(VectorProviderChromem))),
		ChromemPath:     envutil.String("CHROMEM_PATH", ""),
		QdrantVectorDim: envutil.Int("QDRANT_VECTOR_DIM", 0),

		LawVectorDBPath: envutil.String("LAW_VECTOR_DB_PATH", ""),
		LawCollection:   envutil.String("LAW_COLLECTION", "law_articles"),

		CheckpointStore: strings.ToLower(envutil.String("CHECKPOINT_STORE", string(CheckpointMemory))),
		Postgres:        db.PostgresConfigFromEnv(),
		SQLitePath:      envutil.String("SQLITE_PATH", ""),
		RedisAddr:       envutil.String("REDIS_ADDR", ""),
		RedisPassword:   envutil.String("REDIS_PASSWORD", ""),
		RedisDB:         envutil.Int("REDIS_DB", 0),
		ThreadLockTTL:   envutil.Seconds("THREAD_LOCK_TTL_SECONDS", 10*time.Minute),

		DraftQuestionMode:  envutil.String("DRAFT_QUESTION_MODE", "single"),
		FeatureCatalogPath: envutil.String("FEATURE_CATALOG_PATH", ""),
		StyleGuidePath:     envutil.String("STYLE_GUIDE_PATH", ""),

		VerifyConcurrency: envutil.Int("VERIFY_CONCURRENCY", 4),
		GCSMaxObjectBytes: int64(envutil.Int("GCS_MAX_OBJECT_MB", 100)) << 20,

		Otel: observability.OtelConfigFromEnv(),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
