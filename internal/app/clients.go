package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/clients/backend"
	"github.com/yungbote/bizplan-backend/internal/platform/chromemdb"
	"github.com/yungbote/bizplan-backend/internal/platform/gcp"
	"github.com/yungbote/bizplan-backend/internal/platform/localmedia"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
	"github.com/yungbote/bizplan-backend/internal/platform/vectorstore"
)

type Clients struct {
	AI openai.Client
	// Vision is nil when VISION_ENABLED is off or poppler is missing.
	Vision   openai.Client
	Renderer localmedia.Renderer
	Backend  *backend.Client
	Objects  *gcp.ObjectReader
	// Legal is nil without LAW_VECTOR_DB_PATH; law checks then report errors.
	Legal vectorstore.Store
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Openai
	ai, err := openai.NewClient(log, cfg.OpenAI)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	// Vision
	var (
		vision   openai.Client
		renderer localmedia.Renderer
	)
	if cfg.VisionEnabled {
		poppler := localmedia.NewPopplerRenderer(log, localmedia.RenderOptions{DPI: cfg.PDFRenderDPI})
		if err := poppler.AssertReady(); err != nil {
			log.Warn("PDF renderer unavailable; vision disabled", "error", err)
		} else {
			vision = openai.WithModel(ai, cfg.VisionModel)
			renderer = poppler
		}
	}

	// Backend
	bc, err := backend.New(log, cfg.Backend)
	if err != nil {
		return Clients{}, fmt.Errorf("init backend client: %w", err)
	}

	// Legal articles
	var legal vectorstore.Store
	if p := strings.TrimSpace(cfg.LawVectorDBPath); p != "" {
		ls, err := chromemdb.Open(log, p)
		if err != nil {
			return Clients{}, fmt.Errorf("open law vector db: %w", err)
		}
		legal = instrumentVectorStore("chromem_law", ls, 0)
	} else {
		log.Warn("LAW_VECTOR_DB_PATH not set; law checks will report errors")
	}

	return Clients{
		AI:       ai,
		Vision:   vision,
		Renderer: renderer,
		Backend:  bc,
		Objects:  gcp.NewObjectReader(log, cfg.GCSMaxObjectBytes),
		Legal:    legal,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Objects != nil {
		_ = c.Objects.Close()
	}
}
