package app

import (
	"fmt"

	"github.com/yungbote/bizplan-backend/internal/modules/analysis/features"
	"github.com/yungbote/bizplan-backend/internal/modules/analysis/indexer"
	"github.com/yungbote/bizplan-backend/internal/modules/analysis/pipeline"
	"github.com/yungbote/bizplan-backend/internal/modules/analysis/template"
	"github.com/yungbote/bizplan-backend/internal/modules/analysis/toc"
	"github.com/yungbote/bizplan-backend/internal/modules/drafting"
	"github.com/yungbote/bizplan-backend/internal/modules/verify"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
	"github.com/yungbote/bizplan-backend/internal/platform/vectorstore"
)

type Services struct {
	Analysis *pipeline.Pipeline
	Drafting *drafting.Agent
	Verifier *verify.Verifier
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, vectors vectorstore.Store, cps *Checkpoints) (Services, error) {
	log.Info("Wiring services...")

	catalog, err := features.LoadCatalog(cfg.FeatureCatalogPath)
	if err != nil {
		return Services{}, err
	}
	style, err := drafting.LoadStyleGuide(cfg.StyleGuidePath)
	if err != nil {
		return Services{}, err
	}
	visionOn := clients.Vision != nil

	// Analysis
	analysis, err := pipeline.New(pipeline.Deps{
		Log: log,
		Indexer: indexer.New(indexer.Deps{
			Log:      log,
			Loader:   indexer.Loader{Remote: clients.Objects},
			Embedder: clients.AI,
			Store:    vectors,
		}),
		Features: features.New(features.Deps{
			Log:           log,
			AI:            clients.AI,
			Store:         vectors,
			Catalog:       catalog,
			Vision:        clients.Vision,
			Renderer:      clients.Renderer,
			VisionEnabled: visionOn,
		}),
		Templates: template.NewDetector(log),
		TOC: toc.New(toc.Deps{
			Log:           log,
			AI:            clients.AI,
			Store:         vectors,
			Vision:        clients.Vision,
			Renderer:      clients.Renderer,
			VisionEnabled: visionOn,
		}),
		Saver:       clients.Backend,
		SaveEnabled: cfg.SaveToBackend,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init analysis pipeline: %w", err)
	}

	// Drafting
	agent, err := drafting.New(drafting.Deps{
		Log:        log,
		AI:         clients.AI,
		Context:    clients.Backend,
		Documents:  clients.Backend,
		Store:      cps.Store,
		Locker:     cps.Locker,
		StyleGuide: style,
		QueueMode:  drafting.ParseQuestionMode(cfg.DraftQuestionMode) == drafting.QuestionQueue,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init drafting agent: %w", err)
	}

	// Verification
	verifier, err := verify.New(verify.Deps{
		Log:             log,
		AI:              clients.AI,
		Context:         clients.Backend,
		Legal:           clients.Legal,
		LegalCollection: cfg.LawCollection,
		Concurrency:     cfg.VerifyConcurrency,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init verifier: %w", err)
	}

	return Services{Analysis: analysis, Drafting: agent, Verifier: verifier}, nil
}
