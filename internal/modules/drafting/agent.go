// Package drafting runs the conversational proposal-writing agent: one graph
// invocation per user turn over a checkpointed drafting.State.
package drafting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/bizplan-backend/internal/data/repos/checkpoint"
	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
	"github.com/yungbote/bizplan-backend/internal/jobs/orchestrator"
	"github.com/yungbote/bizplan-backend/internal/platform/apierr"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
)

const (
	nodeFetchContext = "fetch_context"
	nodeClassify     = "classify_intent"
	nodeSaveUser     = "save_user"
	nodeHistory      = "history_checker"
	nodeAssess       = "assess_info"
	nodeProgression  = "manage_progression"
	nodeQuery        = "generate_query"
	nodeDraft        = "generate_draft"
	nodeEdit         = "edit_draft"
)

// TransientFailureMessage is returned as current_query when a turn fails on an
// external call. The checkpoint is left untouched.
const TransientFailureMessage = "일시적인 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."

type QuestionMode string

const (
	QuestionSingle QuestionMode = "single"
	QuestionQueue  QuestionMode = "queue"
)

func ParseQuestionMode(s string) QuestionMode {
	if strings.EqualFold(strings.TrimSpace(s), string(QuestionQueue)) {
		return QuestionQueue
	}
	return QuestionSingle
}

// ContextProvider loads the analysis output for a project.
type ContextProvider interface {
	GetContext(ctx context.Context, projectIdx int64) (*analysis.Context, error)
}

// DocumentStore holds the author's rich-text draft document.
type DocumentStore interface {
	GetDocument(ctx context.Context, userID string, projectIdx int64) (json.RawMessage, error)
	PutDocument(ctx context.Context, userID string, projectIdx int64, doc json.RawMessage) error
}

type Timeouts struct {
	Context time.Duration
	LLM     time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Context <= 0 {
		t.Context = 45 * time.Second
	}
	if t.LLM <= 0 {
		t.LLM = 3 * time.Minute
	}
	return t
}

type Deps struct {
	Log        *logger.Logger
	AI         openai.Client
	Context    ContextProvider
	Documents  DocumentStore
	Store      checkpoint.Store
	Locker     checkpoint.Locker
	StyleGuide *StyleGuide
	QueueMode  bool
	Timeouts   Timeouts
	Now        func() time.Time
}

type TurnRequest struct {
	ThreadID    string `json:"thread_id"`
	UserMessage string `json:"user_message"`
	UserID      string `json:"user_id,omitempty"`
	ProjectIdx  int64  `json:"project_idx,omitempty"`
}

type TurnResult struct {
	CurrentQuery      string             `json:"current_query"`
	TargetChapter     string             `json:"target_chapter"`
	CompletenessScore *int               `json:"completeness_score,omitempty"`
	ScoredSection     string             `json:"scored_section,omitempty"`
	GradingReason     string             `json:"grading_reason,omitempty"`
	Messages          []drafting.Message `json:"messages"`
	EditedDocument    json.RawMessage    `json:"edited_document,omitempty"`
}

// turn is the graph state: the persisted thread plus per-invocation
// bookkeeping that is never checkpointed.
type turn struct {
	*drafting.State
	prompt string

	collectedBefore string
	appended        bool
	answeredMoved   bool
	graded          bool
	progressed      bool

	// completed and completedScore name the section this turn finished.
	completed      string
	completedScore int
}

type Agent struct {
	deps  Deps
	log   *logger.Logger
	graph *orchestrator.Runnable[*turn]
}

func New(deps Deps) (*Agent, error) {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Locker == nil {
		deps.Locker = checkpoint.NewLocalLocker()
	}
	if deps.StyleGuide == nil {
		g, err := LoadStyleGuide("")
		if err != nil {
			return nil, err
		}
		deps.StyleGuide = g
	}
	if deps.AI == nil || deps.Context == nil || deps.Store == nil {
		return nil, fmt.Errorf("drafting agent: ai client, context provider and checkpoint store are required")
	}
	a := &Agent{deps: deps, log: deps.Log.With("component", "DraftingAgent")}
	to := deps.Timeouts.withDefaults()

	node := func(name string, timeout time.Duration, fn orchestrator.NodeFunc[*turn]) orchestrator.Node[*turn] {
		return orchestrator.Node[*turn]{Name: name, Timeout: timeout, Run: fn}
	}
	g := orchestrator.New[*turn]("drafting").
		AddNode(node(nodeFetchContext, to.Context, a.fetchContext)).
		AddNode(node(nodeClassify, 0, a.classifyIntent)).
		AddNode(node(nodeSaveUser, 0, a.saveUser)).
		AddNode(node(nodeHistory, 0, a.checkHistory)).
		AddNode(node(nodeAssess, to.LLM, a.assessInfo)).
		AddNode(node(nodeProgression, to.LLM, a.manageProgression)).
		AddNode(node(nodeQuery, to.LLM, a.generateQuery)).
		AddNode(node(nodeDraft, to.LLM, a.generateDraft)).
		AddNode(node(nodeEdit, to.LLM+to.Context, a.editDraft)).
		AddEdge(orchestrator.Start, nodeFetchContext).
		AddEdge(nodeFetchContext, nodeClassify).
		AddConditionalEdges(nodeClassify, routeIntent, map[string]string{
			"edit":  nodeEdit,
			"draft": nodeDraft,
			"info":  nodeSaveUser,
		}).
		AddEdge(nodeEdit, orchestrator.End).
		AddEdge(nodeDraft, orchestrator.End).
		AddEdge(nodeSaveUser, nodeHistory).
		AddConditionalEdges(nodeHistory, routeHistory, map[string]string{
			"already_completed": nodeQuery,
			"assess":            nodeAssess,
		}).
		AddConditionalEdges(nodeAssess, routeAssessment, map[string]string{
			"sufficient":   nodeProgression,
			"insufficient": nodeQuery,
		}).
		AddEdge(nodeProgression, nodeQuery).
		AddEdge(nodeQuery, orchestrator.End)
	r, err := g.Compile(orchestrator.WithLogger(deps.Log), orchestrator.WithMaxSteps(16))
	if err != nil {
		return nil, err
	}
	a.graph = r
	return a, nil
}

// Turn runs one conversational step for a thread: load checkpoint, run the
// graph, clear the prompt, save. A failed run leaves the checkpoint as it was.
func (a *Agent) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		return nil, fmt.Errorf("thread_id is required: %w", apierr.ErrInvalidArgument)
	}
	release, err := a.deps.Locker.Acquire(ctx, threadID)
	if err != nil {
		return nil, err
	}
	defer release()

	st, err := a.deps.Store.Load(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if st == nil {
		st = drafting.NewState(req.UserID, req.ProjectIdx)
	}
	if st.UserID == "" {
		st.UserID = strings.TrimSpace(req.UserID)
	}
	if st.ProjectIdx == 0 {
		st.ProjectIdx = req.ProjectIdx
	}
	if !st.Hydrated() && st.ProjectIdx == 0 {
		return nil, fmt.Errorf("project_idx is required for a new thread: %w", apierr.ErrInvalidArgument)
	}
	prior, err := st.Clone()
	if err != nil {
		return nil, fmt.Errorf("snapshot state: %w", err)
	}

	t := &turn{State: st, prompt: strings.TrimSpace(req.UserMessage)}
	st.UserPrompt = t.prompt
	visited, err := a.graph.Invoke(ctx, t)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.log.Error("draft turn failed", "thread_id", threadID, "visited", strings.Join(visited, ","), "error", err)
		return &TurnResult{
			CurrentQuery:  TransientFailureMessage,
			TargetChapter: prior.TargetChapter,
			Messages:      nonNilMessages(prior.Messages),
		}, nil
	}

	st.UserPrompt = ""
	st.UpdatedAt = a.deps.Now().UTC()
	if err := a.deps.Store.Save(ctx, threadID, st); err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}
	a.log.Info("draft turn done",
		"thread_id", threadID,
		"user_id", st.UserID,
		"visited", strings.Join(visited, ","),
		"target", st.TargetChapter,
		"index", st.CurrentChapterIndex,
		"score", st.CompletenessScore,
	)
	return resultOf(t), nil
}

// Threads lists known drafting threads, newest first.
func (a *Agent) Threads(ctx context.Context) ([]drafting.ThreadSummary, error) {
	out, err := a.deps.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []drafting.ThreadSummary{}
	}
	return out, nil
}

func resultOf(t *turn) *TurnResult {
	res := &TurnResult{
		CurrentQuery:   t.CurrentQuery,
		TargetChapter:  t.TargetChapter,
		GradingReason:  t.GradingReason,
		Messages:       nonNilMessages(t.Messages),
		EditedDocument: t.EditedDocument,
	}
	// Scores are reported only for a grade made this turn, against the
	// section it was made for.
	switch {
	case t.progressed:
		score := t.completedScore
		res.CompletenessScore = &score
		res.ScoredSection = t.completed
	case t.graded:
		score := t.CompletenessScore
		res.CompletenessScore = &score
		res.ScoredSection = t.TargetChapter
	}
	return res
}

func nonNilMessages(in []drafting.Message) []drafting.Message {
	if in == nil {
		return []drafting.Message{}
	}
	return in
}

func routeIntent(t *turn) string {
	switch {
	case t.UserIntent == drafting.IntentEdit:
		return "edit"
	case t.NextStep == drafting.StepGenerateDraft:
		return "draft"
	default:
		return "info"
	}
}

func routeHistory(t *turn) string {
	if t.TargetAlreadyCompleted != "" {
		return "already_completed"
	}
	return "assess"
}

// routeAssessment advances only on a verdict produced in this turn; a stale
// sufficiency from an earlier turn never re-triggers progression.
func routeAssessment(t *turn) string {
	if t.graded && t.Sufficiency {
		return "sufficient"
	}
	return "insufficient"
}
