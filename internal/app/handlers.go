package app

import (
	httpx "github.com/yungbote/bizplan-backend/internal/http"
	httpH "github.com/yungbote/bizplan-backend/internal/http/handlers"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Analysis *httpH.AnalysisHandler
	Draft    *httpH.DraftHandler
	Verify   *httpH.VerifyHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services, probes map[string]httpH.Probe) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(probes),
		Analysis: httpH.NewAnalysisHandler(log, services.Analysis, cfg.MaxUploadBytes),
		Draft:    httpH.NewDraftHandler(log, services.Drafting),
		Verify:   httpH.NewVerifyHandler(log, services.Verifier),
	}
}

func routerConfig(log *logger.Logger, cfg Config, handlers Handlers) httpx.RouterConfig {
	return httpx.RouterConfig{
		Log:             log,
		ServiceName:     cfg.Otel.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		HealthHandler:   handlers.Health,
		AnalysisHandler: handlers.Analysis,
		DraftHandler:    handlers.Draft,
		VerifyHandler:   handlers.Verify,
	}
}
