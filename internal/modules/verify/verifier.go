// Package verify reviews a submitted draft against the project's analysis:
// TOC coverage, feature coverage, legal compliance and self-scoring against
// the announcement's evaluation criteria.
package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/jobs/orchestrator"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
	"github.com/yungbote/bizplan-backend/internal/platform/vectorstore"
)

const (
	nodeTOCProgress = "toc_progress"
	nodeSections    = "section_analysis"
	nodeFeatures    = "feature_analysis"
	nodeLaw         = "law_check"
	nodeNotice      = "notice_scoring"
	nodeSummary     = "summary"
)

// DefaultLawFocuses are checked when a request names none.
var DefaultLawFocuses = []string{"개인정보", "보안"}

// maxDraftRunes bounds the draft text sent to any single prompt.
const maxDraftRunes = 12000

type ContextProvider interface {
	GetContext(ctx context.Context, projectIdx int64) (*analysis.Context, error)
}

type Deps struct {
	Log     *logger.Logger
	AI      openai.Client
	Context ContextProvider

	// Legal is the law-article store; nil marks every focus as failed.
	Legal           vectorstore.Store
	LegalCollection string

	Concurrency int
	NodeTimeout time.Duration
}

type Verifier struct {
	deps  Deps
	log   *logger.Logger
	ai    openai.Client
	graph *orchestrator.Runnable[*check]
}

// check is the graph state of one verification.
type check struct {
	req      Request
	analysis *analysis.Context
	flat     Flat
	focuses  []string
	resp     *Response
}

func (c *check) fail(format string, args ...any) {
	c.resp.Errors = append(c.resp.Errors, fmt.Sprintf(format, args...))
}

func New(deps Deps) (*Verifier, error) {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.AI == nil || deps.Context == nil {
		return nil, fmt.Errorf("verifier: ai client and context provider are required")
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = 4
	}
	if deps.NodeTimeout <= 0 {
		deps.NodeTimeout = 5 * time.Minute
	}
	if strings.TrimSpace(deps.LegalCollection) == "" {
		deps.LegalCollection = "law_articles"
	}
	v := &Verifier{
		deps: deps,
		log:  deps.Log.With("component", "Verifier"),
		ai:   openai.WithTemperature(deps.AI, 0),
	}

	node := func(name string, fn orchestrator.NodeFunc[*check]) orchestrator.Node[*check] {
		return orchestrator.Node[*check]{Name: name, Timeout: deps.NodeTimeout, Run: fn}
	}
	g := orchestrator.New[*check]("verify").
		AddNode(node(nodeTOCProgress, v.tocProgress)).
		AddNode(node(nodeSections, v.sectionAnalysis)).
		AddNode(node(nodeFeatures, v.featureAnalysis)).
		AddNode(node(nodeLaw, v.lawCheck)).
		AddNode(node(nodeNotice, v.noticeScoring)).
		AddNode(node(nodeSummary, v.summarize)).
		AddEdge(orchestrator.Start, nodeTOCProgress).
		AddEdge(nodeTOCProgress, nodeSections).
		AddEdge(nodeSections, nodeFeatures).
		AddEdge(nodeFeatures, nodeLaw).
		AddEdge(nodeLaw, nodeNotice).
		AddEdge(nodeNotice, nodeSummary).
		AddEdge(nodeSummary, orchestrator.End)
	r, err := g.Compile(orchestrator.WithLogger(deps.Log))
	if err != nil {
		return nil, err
	}
	v.graph = r
	return v, nil
}

// Verify returns an error only for an invalid draft, a missing analysis
// context or cancellation. Step failures are reported in Response.Errors.
func (v *Verifier) Verify(ctx context.Context, req Request) (*Response, error) {
	flat, err := Flatten(req.DraftJSON)
	if err != nil {
		return nil, err
	}
	actx, err := v.deps.Context.GetContext(ctx, req.ProjectIdx)
	if err != nil {
		return nil, fmt.Errorf("load analysis context: %w", err)
	}
	if actx == nil {
		actx = &analysis.Context{}
	}
	c := &check{
		req:      req,
		analysis: actx,
		flat:     flat,
		focuses:  focusesOf(req.LawFocuses),
		resp:     &Response{Errors: []string{}},
	}
	started := time.Now()
	if _, err := v.graph.Invoke(ctx, c); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	v.log.Info("draft verified",
		"project_idx", req.ProjectIdx,
		"headings", len(flat.Headings),
		"toc_percent", c.resp.Summary.TOCProgressPercent,
		"law_status", c.resp.Summary.LawStatus,
		"errors", len(c.resp.Errors),
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	return c.resp, nil
}

func focusesOf(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, f := range in {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultLawFocuses...)
	}
	return out
}

func (v *Verifier) summarize(_ context.Context, c *check) error {
	r := c.resp
	if r.CompareResult.TOCProgress.Written == nil {
		r.CompareResult.TOCProgress.Written = []SectionRef{}
	}
	if r.CompareResult.TOCProgress.Missing == nil {
		r.CompareResult.TOCProgress.Missing = []SectionRef{}
	}
	if r.CompareResult.SectionAnalysis.Missing == nil {
		r.CompareResult.SectionAnalysis.Missing = []MissingSection{}
	}
	if r.CompareResult.SectionAnalysis.PresentInProse == nil {
		r.CompareResult.SectionAnalysis.PresentInProse = []SectionRef{}
	}
	if r.CompareResult.FeatureAnalysis.Findings == nil {
		r.CompareResult.FeatureAnalysis.Findings = []FeatureFinding{}
	}
	if r.LawResults == nil {
		r.LawResults = []LawResult{}
	}
	r.Summary = Summary{
		TOCProgressPercent: r.CompareResult.TOCProgress.Percent,
		LawStatus:          r.LawResult.Status,
		LawRiskLevel:       r.LawResult.RiskLevel,
		Errors:             append([]string{}, r.Errors...),
	}
	if r.NoticeResult != nil {
		p := r.NoticeResult.Percent
		r.Summary.NoticePercent = &p
	}
	return nil
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "\n…(이하 생략)"
}
