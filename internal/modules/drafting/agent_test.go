package drafting

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/bizplan-backend/internal/data/repos/checkpoint"
	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
	"github.com/yungbote/bizplan-backend/internal/platform/apierr"
	"github.com/yungbote/bizplan-backend/internal/platform/openai/openaitest"
)

const testQuestion = "사업 배경을 뒷받침하는 시장 규모나 수치를 알려주시겠어요?"

type stubContext struct {
	ctx   *analysis.Context
	err   error
	calls int
}

func (s *stubContext) GetContext(_ context.Context, _ int64) (*analysis.Context, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.ctx, nil
}

type stubDocs struct {
	doc    json.RawMessage
	getErr error
	put    json.RawMessage
	puts   int
}

func (s *stubDocs) GetDocument(_ context.Context, _ string, _ int64) (json.RawMessage, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.doc, nil
}

func (s *stubDocs) PutDocument(_ context.Context, _ string, _ int64, doc json.RawMessage) error {
	s.puts++
	s.put = doc
	return nil
}

func overviewSections() []analysis.Section {
	return []analysis.Section{
		{Number: "1", Title: "사업 개요", Level: analysis.LevelMain},
		{Number: "1.1", Title: "사업 배경", Description: "사업 추진 배경과 필요성", Level: analysis.LevelSub, ParentNumber: "1"},
		{Number: "1.2", Title: "사업 목표", Level: analysis.LevelSub, ParentNumber: "1"},
	}
}

func longSections() []analysis.Section {
	return append(overviewSections(),
		analysis.Section{Number: "2", Title: "기술 개발", Level: analysis.LevelMain},
		analysis.Section{Number: "2.1", Title: "개발 내용", Level: analysis.LevelSub, ParentNumber: "2"},
	)
}

func contextFor(secs []analysis.Section) *stubContext {
	return &stubContext{ctx: &analysis.Context{
		TOC:           &analysis.TOC{Source: analysis.SourceTemplate, Sections: secs, TotalSections: len(secs)},
		DraftStrategy: "기술 차별성을 강조",
	}}
}

// scripted answers each prompt family; grader decides the rubric reply.
func scripted(grader func(user string) string) *openaitest.Fake {
	return &openaitest.Fake{TextFunc: func(system, user string) (string, error) {
		switch system {
		case assessSystemPrompt:
			return grader(user), nil
		case summarySystemPrompt:
			return "- 요약된 내용", nil
		case querySystemPrompt:
			return testQuestion, nil
		case draftSystemPrompt:
			return "본 사업은 국내 시장의 수요 증가에 대응하기 위해 추진함.", nil
		}
		return "", openaitest.ErrUnscripted
	}}
}

func gradeByKeyword(user string) string {
	if strings.Contains(user, "충분") {
		return "<score>90</score><reason>바로 작성 가능</reason>"
	}
	return "<score>40</score><reason>수치 근거가 부족합니다</reason>"
}

func newAgent(t *testing.T, ai *openaitest.Fake, provider ContextProvider, opts ...func(*Deps)) (*Agent, *checkpoint.MemoryStore) {
	t.Helper()
	store := checkpoint.NewMemoryStore()
	deps := Deps{
		AI:      ai,
		Context: provider,
		Store:   store,
		Locker:  checkpoint.NewLocalLocker(),
		Now:     func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) },
	}
	for _, o := range opts {
		o(&deps)
	}
	a, err := New(deps)
	require.NoError(t, err)
	return a, store
}

func turnOf(t *testing.T, a *Agent, thread, msg string) *TurnResult {
	t.Helper()
	res, err := a.Turn(context.Background(), TurnRequest{ThreadID: thread, UserMessage: msg, UserID: "author-1", ProjectIdx: 7})
	require.NoError(t, err)
	return res
}

func load(t *testing.T, s checkpoint.Store, thread string) *drafting.State {
	t.Helper()
	st, err := s.Load(context.Background(), thread)
	require.NoError(t, err)
	require.NotNil(t, st)
	return st
}

// seeded builds a hydrated mid-conversation thread targeting label.
func seeded(t *testing.T, secs []analysis.Section, label string) *drafting.State {
	t.Helper()
	st := drafting.NewState("author-1", 7)
	st.FetchedContext = &analysis.Context{TOC: &analysis.TOC{Sections: secs}}
	st.TOC = secs
	st.TargetChapter = label
	st.CurrentChapterIndex = st.SectionIndex(label)
	st.MajorChapterTitles = majorChapters(secs)
	st.AddMessage(drafting.RoleAssistant, "안녕하세요! 먼저 사업 배경부터 시작하겠습니다.")
	derive(st)
	return st
}

func TestFirstTurnTargetsFirstLeafWithGreeting(t *testing.T) {
	ai := scripted(gradeByKeyword)
	provider := contextFor(overviewSections())
	a, store := newAgent(t, ai, provider)

	res := turnOf(t, a, "t-s3", "")

	assert.Equal(t, "1.1 사업 배경", res.TargetChapter)
	assert.Contains(t, res.CurrentQuery, "안녕하세요")
	assert.Contains(t, res.CurrentQuery, "'1.1 사업 배경' 항목부터")
	assert.Contains(t, res.CurrentQuery, testQuestion)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, drafting.RoleAssistant, res.Messages[0].Role)

	st := load(t, store, "t-s3")
	assert.Equal(t, 1, st.CurrentChapterIndex)
	assert.Equal(t, []string{"1 사업 개요"}, st.MajorChapterTitles)
	assert.Equal(t, []string{"1.1 사업 배경", "1.2 사업 목표"}, st.MissingSubsections)
	assert.Equal(t, noDataReason, st.GradingReason)
	assert.False(t, st.Sufficiency)
	assert.Empty(t, st.UserPrompt)
	assert.Equal(t, 1, provider.calls)
	assert.Len(t, ai.Calls(), 1, "empty collected data is scored without the grader")
}

func TestSufficientDataAdvancesToNextLeaf(t *testing.T) {
	ai := scripted(func(string) string { return "<score>85</score><reason>충분합니다</reason>" })
	provider := contextFor(overviewSections())
	a, store := newAgent(t, ai, provider)

	st := seeded(t, overviewSections(), "1.1 사업 배경")
	st.CollectedData = "\n[사용자]: 국내 스마트팜 시장은 연 12% 성장 중이며 인력난이 심화되고 있습니다." +
		"\n[사용자]: 당사는 자동 관수 제어 특허 2건을 보유하고 있고 3개 농가에서 실증을 마쳤습니다."
	require.NoError(t, store.Save(context.Background(), "t-s4", st))

	res := turnOf(t, a, "t-s4", "")

	assert.Equal(t, "1.2 사업 목표", res.TargetChapter)
	require.NotNil(t, res.CompletenessScore)
	assert.Equal(t, 85, *res.CompletenessScore)
	assert.Equal(t, "1.1 사업 배경", res.ScoredSection)
	assert.True(t, strings.HasPrefix(res.CurrentQuery, "자, 그럼 이제 1.2 사업 목표 을 작성할 차례입니다."))

	after := load(t, store, "t-s4")
	assert.Equal(t, 85, after.SectionScores["1.1"])
	assert.True(t, after.Sufficiency)
	assert.Equal(t, "", after.CollectedData)
	assert.Equal(t, []string{"1.1 사업 배경"}, after.CompletedChapters)
	require.Len(t, after.AccumulatedData, 1)
	assert.True(t, strings.HasPrefix(after.AccumulatedData[0], "### [1.1 사업 배경 요약]\n"))
	assert.True(t, strings.HasSuffix(after.AccumulatedData[0], summaryDivider))
	assert.Equal(t, 2, after.CurrentChapterIndex)
	assert.Equal(t, 0, provider.calls, "hydrated threads do not refetch context")
}

func TestCompletedSectionIsNotReopened(t *testing.T) {
	ai := scripted(gradeByKeyword)
	a, store := newAgent(t, ai, contextFor(overviewSections()))

	st := seeded(t, overviewSections(), "1.2 사업 목표")
	st.CompletedChapters = []string{"1.1 사업 배경"}
	st.SectionScores["1.1"] = 88
	st.CollectedData = "\n[사용자]: 3년 내 매출 20억"
	require.NoError(t, store.Save(context.Background(), "t-s5", st))

	res := turnOf(t, a, "t-s5", "1.1 사업 배경을 수정하고 싶어")

	assert.Contains(t, res.CurrentQuery, "'1.1 사업 배경' 항목은 이미 작성이 완료되었습니다")
	assert.Contains(t, res.CurrentQuery, "'1.2 사업 목표' 항목을 계속 진행할까요?")
	assert.Equal(t, "1.2 사업 목표", res.TargetChapter)

	after := load(t, store, "t-s5")
	assert.Equal(t, "1.1 사업 배경", after.TargetAlreadyCompleted)
	assert.Equal(t, st.CurrentChapterIndex, after.CurrentChapterIndex)
	assert.Equal(t, "\n[사용자]: 3년 내 매출 20억", after.CollectedData, "the regressing prompt is not collected")
	assert.Empty(t, ai.Calls())
}

func TestTurnAfterAdvanceReportsNoStaleScore(t *testing.T) {
	ai := scripted(func(string) string { return "<score>85</score><reason>충분합니다</reason>" })
	a, store := newAgent(t, ai, contextFor(overviewSections()))
	st := seeded(t, overviewSections(), "1.1 사업 배경")
	st.CollectedData = "\n[사용자]: 국내 스마트팜 시장은 연 12% 성장 중입니다."
	require.NoError(t, store.Save(context.Background(), "t-stale", st))

	turnOf(t, a, "t-stale", "")
	res := turnOf(t, a, "t-stale", "")

	assert.Equal(t, "1.2 사업 목표", res.TargetChapter)
	assert.Nil(t, res.CompletenessScore)
	assert.Empty(t, res.ScoredSection)
}

func TestMentioningCompletedSectionKeepsAnswer(t *testing.T) {
	ai := scripted(gradeByKeyword)
	a, store := newAgent(t, ai, contextFor(overviewSections()))
	st := seeded(t, overviewSections(), "1.2 사업 목표")
	st.CompletedChapters = []string{"1.1 사업 배경"}
	require.NoError(t, store.Save(context.Background(), "t-mention", st))

	res := turnOf(t, a, "t-mention", "앞서 말한 사업 배경의 인력난을 해소해 3년 내 매출 50억을 달성하는 것이 목표입니다")

	assert.NotContains(t, res.CurrentQuery, "이미 작성이 완료")
	assert.Equal(t, "1.2 사업 목표", res.TargetChapter)
	require.NotNil(t, res.CompletenessScore)
	assert.Equal(t, 40, *res.CompletenessScore)
	assert.Equal(t, "1.2 사업 목표", res.ScoredSection)

	after := load(t, store, "t-mention")
	assert.Empty(t, after.TargetAlreadyCompleted)
	assert.Contains(t, after.CollectedData, "매출 50억")
}

func TestAnswersWithRequestLikeWordsAreCollected(t *testing.T) {
	prompts := []string{
		"인력을 늘려 생산량을 연간 500톤까지 확대하는 것이 배경입니다",
		"비용을 줄여 원가 경쟁력을 확보한 것이 강점입니다",
		"초안에 꼭 들어갈 내용은 연 12% 성장률입니다",
	}
	for i, p := range prompts {
		t.Run(p, func(t *testing.T) {
			docs := &stubDocs{}
			ai := scripted(gradeByKeyword)
			a, store := newAgent(t, ai, contextFor(overviewSections()), func(d *Deps) { d.Documents = docs })
			thread := "t-answer-" + string(rune('a'+i))
			turnOf(t, a, thread, "")

			res := turnOf(t, a, thread, p)

			assert.Contains(t, res.CurrentQuery, testQuestion)
			assert.Zero(t, docs.puts)
			assert.Zero(t, countSystem(ai, draftSystemPrompt))
			after := load(t, store, thread)
			assert.Equal(t, "\n[사용자]: "+p, after.CollectedData)
		})
	}
}

func TestRegressionByTitleMention(t *testing.T) {
	ai := scripted(gradeByKeyword)
	a, store := newAgent(t, ai, contextFor(overviewSections()))
	st := seeded(t, overviewSections(), "1.2 사업 목표")
	st.CompletedChapters = []string{"1.1 사업 배경"}
	require.NoError(t, store.Save(context.Background(), "t-title", st))

	res := turnOf(t, a, "t-title", "사업 배경 부분을 조금 바꾸고 싶어요")
	assert.Contains(t, res.CurrentQuery, "이미 작성이 완료")
}

func TestProgressIsMonotonicAndGatedByScore(t *testing.T) {
	ai := scripted(gradeByKeyword)
	a, store := newAgent(t, ai, contextFor(longSections()))

	prompts := []string{"", "배경 설명 일부", "충분한 배경 자료", "", "목표 충분", "개발 내용 일부"}
	var prev *drafting.State
	for i, p := range prompts {
		turnOf(t, a, "t-mono", p)
		cur := load(t, store, "t-mono")

		if cur.GradedFingerprint != "" && cur.GradingReason != noDataReason {
			assert.Equal(t, cur.CompletenessScore >= SufficiencyThreshold, cur.Sufficiency, "turn %d", i)
		}
		if prev != nil {
			assert.GreaterOrEqual(t, cur.CurrentChapterIndex, prev.CurrentChapterIndex, "turn %d", i)
			require.GreaterOrEqual(t, len(cur.AccumulatedData), len(prev.AccumulatedData), "turn %d", i)
			assert.Equal(t, prev.AccumulatedData, cur.AccumulatedData[:len(prev.AccumulatedData)], "turn %d", i)
			for num, score := range prev.SectionScores {
				if score >= SufficiencyThreshold {
					assert.GreaterOrEqual(t, cur.SectionScores[num], SufficiencyThreshold, "turn %d section %s", i, num)
				}
			}
		}
		prev = cur
	}

	assert.Equal(t, "2.1 개발 내용", prev.TargetChapter)
	assert.Equal(t, []string{"1.1 사업 배경", "1.2 사업 목표"}, prev.CompletedChapters)
	assert.Equal(t, 90, prev.SectionScores["1.1"])
	assert.Equal(t, 90, prev.SectionScores["1.2"])
	assert.Equal(t, 40, prev.SectionScores["2.1"])
	assert.Len(t, prev.AccumulatedData, 2)
}

func TestEmptyPromptReplayOnlyRefreshesQuery(t *testing.T) {
	ai := scripted(gradeByKeyword)
	a, store := newAgent(t, ai, contextFor(overviewSections()))

	turnOf(t, a, "t-idem", "")
	turnOf(t, a, "t-idem", "배경 설명 일부")
	before := load(t, store, "t-idem")
	graderCalls := countSystem(ai, assessSystemPrompt)

	turnOf(t, a, "t-idem", "")
	after := load(t, store, "t-idem")

	assert.Equal(t, graderCalls, countSystem(ai, assessSystemPrompt), "replay must not regrade")
	before.CurrentQuery, after.CurrentQuery = "", ""
	before.UpdatedAt, after.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, before, after)
}

func TestScoreAtThresholdIsNeverLowered(t *testing.T) {
	ai := scripted(func(string) string { return "<score>40</score><reason>부족</reason>" })
	a, store := newAgent(t, ai, contextFor(overviewSections()))
	st := seeded(t, overviewSections(), "1.1 사업 배경")
	st.SectionScores["1.1"] = 85
	st.CollectedData = "\n[사용자]: 기존 자료"
	require.NoError(t, store.Save(context.Background(), "t-keep", st))

	turnOf(t, a, "t-keep", "추가 설명")

	after := load(t, store, "t-keep")
	assert.Equal(t, 85, after.SectionScores["1.1"])
	assert.Equal(t, 40, after.CompletenessScore)
	assert.False(t, after.Sufficiency)
	assert.Equal(t, "1.1 사업 배경", after.TargetChapter)
}

func TestLLMFailureIsNotCheckpointed(t *testing.T) {
	ai := &openaitest.Fake{TextFunc: func(string, string) (string, error) {
		return "", errors.New("upstream 502")
	}}
	a, store := newAgent(t, ai, contextFor(overviewSections()))

	res := turnOf(t, a, "t-fail", "")
	assert.Equal(t, TransientFailureMessage, res.CurrentQuery)
	assert.Empty(t, res.Messages)

	st, err := store.Load(context.Background(), "t-fail")
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestContextFailureIsNotCheckpointed(t *testing.T) {
	a, store := newAgent(t, scripted(gradeByKeyword), &stubContext{err: errors.New("backend down")})

	res := turnOf(t, a, "t-ctx", "")
	assert.Equal(t, TransientFailureMessage, res.CurrentQuery)
	st, err := store.Load(context.Background(), "t-ctx")
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestMissingContextFallsBackToDefaultTOC(t *testing.T) {
	a, store := newAgent(t, scripted(gradeByKeyword), &stubContext{err: apierr.ErrNotFound})

	res := turnOf(t, a, "t-default", "")
	assert.Equal(t, "1 연구개발과제의 개요", res.TargetChapter)
	st := load(t, store, "t-default")
	require.NotNil(t, st.FetchedContext.TOC)
	assert.Equal(t, analysis.SourceDefault, st.FetchedContext.TOC.Source)
	assert.Len(t, st.TOC, 5)
}

func TestConcurrentTurnIsRejected(t *testing.T) {
	locker := checkpoint.NewLocalLocker()
	a, _ := newAgent(t, scripted(gradeByKeyword), contextFor(overviewSections()), func(d *Deps) { d.Locker = locker })

	release, err := locker.Acquire(context.Background(), "t-busy")
	require.NoError(t, err)
	_, err = a.Turn(context.Background(), TurnRequest{ThreadID: "t-busy", ProjectIdx: 7})
	require.ErrorIs(t, err, apierr.ErrTurnInFlight)

	release()
	_, err = a.Turn(context.Background(), TurnRequest{ThreadID: "t-busy", ProjectIdx: 7})
	require.NoError(t, err)
}

func TestTurnValidation(t *testing.T) {
	a, _ := newAgent(t, scripted(gradeByKeyword), contextFor(overviewSections()))

	_, err := a.Turn(context.Background(), TurnRequest{ThreadID: " "})
	require.ErrorIs(t, err, apierr.ErrInvalidArgument)

	_, err = a.Turn(context.Background(), TurnRequest{ThreadID: "new-thread"})
	require.ErrorIs(t, err, apierr.ErrInvalidArgument, "a new thread needs a project")
}

func TestQueueModeAsksOneQuestionPerTurn(t *testing.T) {
	ai := scripted(gradeByKeyword)
	ai.JSONFunc = func(_, _, schemaName string) (map[string]any, error) {
		require.Equal(t, "draft_questions", schemaName)
		return map[string]any{"questions": []any{"Q1 시장 규모는?", "Q2 경쟁사는?", "Q2 경쟁사는?", "Q3 보유 기술은?"}}, nil
	}
	a, store := newAgent(t, ai, contextFor(overviewSections()), func(d *Deps) { d.QueueMode = true })

	first := turnOf(t, a, "t-queue", "")
	assert.Contains(t, first.CurrentQuery, "Q1 시장 규모는?")

	replay := turnOf(t, a, "t-queue", "")
	assert.Contains(t, replay.CurrentQuery, "Q1 시장 규모는?", "an empty prompt re-asks the pending question")

	second := turnOf(t, a, "t-queue", "약 3천억 원 규모")
	assert.Contains(t, second.CurrentQuery, "Q2 경쟁사는?")

	st := load(t, store, "t-queue")
	assert.Equal(t, []drafting.QA{{Question: "Q1 시장 규모는?", Answer: "약 3천억 원 규모"}}, st.AnsweredQuestions)
	assert.Equal(t, "Q2 경쟁사는?", st.AskedQuestion)
	assert.Equal(t, []string{"Q3 보유 기술은?"}, st.PendingQuestions)
	assert.Len(t, ai.CallsNamed("draft_questions"), 1)
}

func TestDraftRequestWritesDraftOnce(t *testing.T) {
	var drafts []string
	ai := scripted(gradeByKeyword)
	base := ai.TextFunc
	ai.TextFunc = func(system, user string) (string, error) {
		if system == draftSystemPrompt {
			drafts = append(drafts, user)
		}
		return base(system, user)
	}
	a, store := newAgent(t, ai, contextFor(overviewSections()))
	st := seeded(t, overviewSections(), "1.1 사업 배경")
	st.CollectedData = "\n[사용자]: 스마트팜 시장 연 12% 성장"
	st.FetchedContext.DraftStrategy = "기술 차별성을 강조"
	require.NoError(t, store.Save(context.Background(), "t-draft", st))

	res := turnOf(t, a, "t-draft", "지금까지 내용으로 초안 작성해줘")
	turnOf(t, a, "t-draft", "초안 다시 보여줘")

	assert.Equal(t, "본 사업은 국내 시장의 수요 증가에 대응하기 위해 추진함.", res.CurrentQuery)
	require.Len(t, drafts, 2)
	assert.Contains(t, drafts[0], "[과제 개요]")
	assert.Contains(t, drafts[0], "스마트팜 시장 연 12% 성장")
	assert.Contains(t, drafts[0], "기술 차별성을 강조")

	after := load(t, store, "t-draft")
	assert.Equal(t, []string{"### [1.1 사업 배경 초안]\n본 사업은 국내 시장의 수요 증가에 대응하기 위해 추진함."}, after.AccumulatedData)
	assert.Equal(t, "\n[사용자]: 스마트팜 시장 연 12% 성장", after.CollectedData, "draft requests are not collected")
	assert.Zero(t, countSystem(ai, assessSystemPrompt))
}

const storedDoc = `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"매출 목표는 5억 원이며 이를 달성하기 위해 다양한 노력을 기울일 것입니다."}]}]}`

func TestEditRewritesStoredDocument(t *testing.T) {
	docs := &stubDocs{doc: json.RawMessage(storedDoc)}
	ai := &openaitest.Fake{TextFunc: func(system, user string) (string, error) {
		require.Equal(t, editSystemPrompt, system)
		assert.Contains(t, user, "수정 요청: 문장을 더 짧게 줄여줘")
		assert.Contains(t, user, "매출 목표는 5억")
		return "```json\n{\"type\": \"doc\", \"content\": [{\"type\": \"paragraph\", \"content\": [{\"type\": \"text\", \"text\": \"매출 목표 5억 원.\"}]}]}\n```", nil
	}}
	a, store := newAgent(t, ai, contextFor(overviewSections()), func(d *Deps) { d.Documents = docs })
	require.NoError(t, store.Save(context.Background(), "t-edit", seeded(t, overviewSections(), "1.1 사업 배경")))

	res := turnOf(t, a, "t-edit", "문장을 더 짧게 줄여줘")

	assert.Equal(t, editDoneMessage, res.CurrentQuery)
	want := `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"매출 목표 5억 원."}]}]}`
	assert.JSONEq(t, want, string(res.EditedDocument))
	assert.Equal(t, 1, docs.puts)
	assert.JSONEq(t, want, string(docs.put))

	after := load(t, store, "t-edit")
	assert.Empty(t, after.CollectedData, "edit requests are not collected")
}

func TestEditRefusesNonDocuments(t *testing.T) {
	cases := []struct {
		name string
		docs *stubDocs
		want string
	}{
		{"wrong root", &stubDocs{doc: json.RawMessage(`{"type":"paragraph","content":[]}`)}, editInvalidInputMessage},
		{"missing", &stubDocs{getErr: apierr.ErrNotFound}, editNoDocumentMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ai := &openaitest.Fake{}
			a, store := newAgent(t, ai, contextFor(overviewSections()), func(d *Deps) { d.Documents = tc.docs })
			require.NoError(t, store.Save(context.Background(), "t-refuse", seeded(t, overviewSections(), "1.1 사업 배경")))

			res := turnOf(t, a, "t-refuse", "톤을 더 공식적으로 다듬어 줘")
			assert.Equal(t, tc.want, res.CurrentQuery)
			assert.Nil(t, res.EditedDocument)
			assert.Zero(t, tc.docs.puts)
			assert.Empty(t, ai.Calls())
		})
	}
}

func TestEditRejectsInvalidModelOutput(t *testing.T) {
	docs := &stubDocs{doc: json.RawMessage(storedDoc)}
	ai := &openaitest.Fake{TextFunc: func(string, string) (string, error) { return "죄송하지만 수정할 수 없습니다.", nil }}
	a, store := newAgent(t, ai, contextFor(overviewSections()), func(d *Deps) { d.Documents = docs })
	st := seeded(t, overviewSections(), "1.1 사업 배경")
	st.AddMessage(drafting.RoleAssistant, "매출 목표는 5억 원으로 정리했습니다.")
	require.NoError(t, store.Save(context.Background(), "t-bad", st))

	res := turnOf(t, a, "t-bad", "5억이 아니라 7억이야")
	assert.Equal(t, editInvalidOutput, res.CurrentQuery)
	assert.Zero(t, docs.puts)
}

func TestThreadsListsCheckpoints(t *testing.T) {
	a, _ := newAgent(t, scripted(gradeByKeyword), contextFor(overviewSections()))
	turnOf(t, a, "t-list", "")

	out, err := a.Threads(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "t-list", out[0].ThreadID)
	assert.Equal(t, "1.1 사업 배경", out[0].TargetChapter)
	assert.Equal(t, int64(7), out[0].ProjectIdx)
}

func countSystem(f *openaitest.Fake, system string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.System == system {
			n++
		}
	}
	return n
}
