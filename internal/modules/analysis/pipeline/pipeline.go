package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/jobs/orchestrator"
	"github.com/yungbote/bizplan-backend/internal/modules/analysis/template"
	"github.com/yungbote/bizplan-backend/internal/modules/analysis/toc"
	"github.com/yungbote/bizplan-backend/internal/platform/apierr"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

const (
	nodeIndex     = "index_documents"
	nodeFeatures  = "extract_features"
	nodeTemplates = "detect_templates"
	nodeTOC       = "extract_toc"
	nodeSave      = "save_result"
)

type Indexer interface {
	Index(ctx context.Context, run *analysis.Run) error
}

type FeatureExtractor interface {
	Extract(ctx context.Context, run *analysis.Run) error
}

type TemplateDetector interface {
	Detect(run *analysis.Run) []analysis.AttachmentTemplate
}

type TOCExtractor interface {
	Extract(ctx context.Context, run *analysis.Run) error
}

// ResultSaver hands the finished analysis to the product backend.
type ResultSaver interface {
	SaveResult(ctx context.Context, run *analysis.Run) error
}

type Timeouts struct {
	Index     time.Duration
	Features  time.Duration
	Templates time.Duration
	TOC       time.Duration
	Save      time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	def := func(v, d time.Duration) time.Duration {
		if v <= 0 {
			return d
		}
		return v
	}
	return Timeouts{
		Index:     def(t.Index, 15*time.Minute),
		Features:  def(t.Features, 15*time.Minute),
		Templates: def(t.Templates, time.Minute),
		TOC:       def(t.TOC, 15*time.Minute),
		Save:      def(t.Save, 45*time.Second),
	}
}

type Deps struct {
	Log       *logger.Logger
	Indexer   Indexer
	Features  FeatureExtractor
	Templates TemplateDetector
	TOC       TOCExtractor

	Saver       ResultSaver
	SaveEnabled bool

	Timeouts Timeouts
	Now      func() time.Time
}

type Request struct {
	ProjectIdx int64
	UserID     string
	Files      []analysis.InputFile
}

type Pipeline struct {
	deps  Deps
	log   *logger.Logger
	graph *orchestrator.Runnable[*analysis.Run]
}

func New(deps Deps) (*Pipeline, error) {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Templates == nil {
		deps.Templates = template.NewDetector(deps.Log)
	}
	if deps.Indexer == nil || deps.Features == nil || deps.TOC == nil {
		return nil, fmt.Errorf("analysis pipeline: indexer, feature extractor and toc extractor are required")
	}
	p := &Pipeline{deps: deps, log: deps.Log.With("component", "AnalysisPipeline")}
	to := deps.Timeouts.withDefaults()

	g := orchestrator.New[*analysis.Run]("analysis").
		AddNode(orchestrator.Node[*analysis.Run]{Name: nodeIndex, Timeout: to.Index, Run: deps.Indexer.Index}).
		AddNode(orchestrator.Node[*analysis.Run]{Name: nodeFeatures, Timeout: to.Features, Run: p.soft("특징 추출", deps.Features.Extract)}).
		AddNode(orchestrator.Node[*analysis.Run]{Name: nodeTemplates, Timeout: to.Templates, Run: p.detectTemplates}).
		AddNode(orchestrator.Node[*analysis.Run]{Name: nodeTOC, Timeout: to.TOC, Run: p.soft("목차 추출", deps.TOC.Extract)}).
		AddNode(orchestrator.Node[*analysis.Run]{Name: nodeSave, Timeout: to.Save, Run: p.saveResult}).
		AddEdge(orchestrator.Start, nodeIndex).
		AddEdge(nodeIndex, nodeFeatures).
		AddEdge(nodeFeatures, nodeTemplates).
		AddEdge(nodeTemplates, nodeTOC).
		AddEdge(nodeTOC, nodeSave).
		AddEdge(nodeSave, orchestrator.End)
	r, err := g.Compile(orchestrator.WithLogger(deps.Log))
	if err != nil {
		return nil, err
	}
	p.graph = r
	return p, nil
}

// Run executes one analysis. Only an empty file list, indexing failures and
// cancellation are returned as errors; everything else lands in
// Response.Errors.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Response, error) {
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("no input files: %w", apierr.ErrInvalidArgument)
	}
	run := analysis.NewRun(req.ProjectIdx, req.UserID, req.Files)
	started := p.deps.Now()
	p.log.Info("analysis started", "project_idx", run.ProjectIdx, "user_id", run.UserID, "files", len(run.Files))

	visited, err := p.graph.Invoke(ctx, run)
	if err != nil {
		p.log.Error("analysis failed", "project_idx", run.ProjectIdx, "visited", strings.Join(visited, ","), "error", err)
		return nil, err
	}
	run.Advance(analysis.StatusCompleted)
	p.log.Info("analysis completed",
		"project_idx", run.ProjectIdx,
		"documents", len(run.Documents),
		"chunks", len(run.Chunks),
		"features", len(run.Features),
		"sections", len(run.TOC.Sections),
		"errors", len(run.Errors),
		"elapsed_ms", p.deps.Now().Sub(started).Milliseconds(),
	)
	return NewResponse(run), nil
}

// soft turns a stage error into a run error so later stages still run. A
// cancelled parent context still stops the graph at the next step.
func (p *Pipeline) soft(stage string, fn orchestrator.NodeFunc[*analysis.Run]) orchestrator.NodeFunc[*analysis.Run] {
	return func(ctx context.Context, run *analysis.Run) error {
		err := fn(ctx, run)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			run.AddError("%s 단계 시간 초과", stage)
		} else {
			run.AddError("%s 단계 실패: %v", stage, err)
		}
		p.log.Warn("analysis stage failed", "stage", stage, "project_idx", run.ProjectIdx, "error", err)
		return nil
	}
}

func (p *Pipeline) detectTemplates(_ context.Context, run *analysis.Run) error {
	run.Templates = p.deps.Templates.Detect(run)
	run.PrimaryTemplate = template.SelectPrimary(run.Templates)
	if run.PrimaryTemplate != nil {
		p.log.Info("primary template selected", "filename", run.PrimaryTemplate.Filename, "confidence", run.PrimaryTemplate.Confidence)
	}
	run.Advance(analysis.StatusTemplatesDetected)
	return nil
}

func (p *Pipeline) saveResult(ctx context.Context, run *analysis.Run) error {
	if run.TOC == nil {
		t := toc.Default()
		t.TotalSections = len(t.Sections)
		t.ExtractedAt = p.deps.Now().UTC()
		run.TOC = t
		run.Advance(analysis.StatusTOCExtracted)
	}
	if !p.deps.SaveEnabled || p.deps.Saver == nil {
		return nil
	}
	if err := p.deps.Saver.SaveResult(ctx, run); err != nil {
		p.log.Warn("backend save failed", "project_idx", run.ProjectIdx, "error", err)
		run.AddError("백엔드 저장 실패: %v", err)
	}
	return nil
}
