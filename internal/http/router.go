package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/bizplan-backend/internal/http/handlers"
	httpMW "github.com/yungbote/bizplan-backend/internal/http/middleware"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	HealthHandler   *httpH.HealthHandler
	AnalysisHandler *httpH.AnalysisHandler
	DraftHandler    *httpH.DraftHandler
	VerifyHandler   *httpH.VerifyHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "bizplan-backend"
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Analysis
		if cfg.AnalysisHandler != nil {
			api.POST("/analysis/run", cfg.AnalysisHandler.Run)
		}

		// Drafting
		if cfg.DraftHandler != nil {
			api.POST("/draft/turn", cfg.DraftHandler.Turn)
			api.GET("/draft/threads", cfg.DraftHandler.ListThreads)
		}

		// Verification
		if cfg.VerifyHandler != nil {
			api.POST("/verify", cfg.VerifyHandler.Verify)
		}
	}
	return r
}
