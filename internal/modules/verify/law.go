package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/bizplan-backend/internal/platform/openai"
	"github.com/yungbote/bizplan-backend/internal/platform/vectorstore"
)

const (
	lawTopK         = 5
	lawExcerptRunes = 2000
)

var errNoLegalStore = errors.New("legal article store is not configured")

var statusRank = map[string]int{LawError: 0, LawSuitable: 1, LawNeedsWork: 2, LawUnsuitable: 3}

var riskRank = map[string]int{RiskUnknown: 0, RiskLow: 1, RiskMedium: 2, RiskHigh: 3}

type llmLawVerdict struct {
	Status    string `json:"status"`
	RiskLevel string `json:"risk_level"`
	Reason    string `json:"reason"`
}

var lawVerdictSchema = openai.Object(map[string]any{
	"status":     openai.Enum(LawSuitable, LawNeedsWork, LawUnsuitable),
	"risk_level": openai.Enum(RiskLow, RiskMedium, RiskHigh),
	"reason":     openai.String(),
})

const lawSystemPrompt = `당신은 정부 R&D 사업계획서의 법령 준수 여부를 검토하는 전문가입니다.
검토 관점과 관련 법령 조문, 초안 발췌가 주어집니다.
- 적합: 관련 법령 요구사항을 충족함
- 보완: 일부 조치나 설명이 부족함
- 부적합: 법령 위반 소지가 있음
위험도(LOW, MEDIUM, HIGH)와 근거 조문을 인용한 판단 사유를 적으세요.
이 판단은 법률 자문이 아니라 작성 보조용 검토입니다.`

func (v *Verifier) lawCheck(ctx context.Context, c *check) error {
	results := make([]LawResult, len(c.focuses))
	draft := excerpt(c.flat.Text, lawExcerptRunes)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.deps.Concurrency)
	for i, focus := range c.focuses {
		i, focus := i, focus
		g.Go(func() error {
			r, err := v.checkFocus(gctx, focus, draft)
			if err != nil {
				v.log.Warn("law check failed", "focus", focus, "error", err)
				r = LawResult{Focus: focus, Status: LawError, RiskLevel: RiskUnknown, Reason: err.Error()}
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Status == LawError {
			c.fail("법령 검토 실패(%s): %s", r.Focus, r.Reason)
		}
	}
	c.resp.LawResults = results
	c.resp.LawResult = aggregateLaw(results)
	return nil
}

func (v *Verifier) checkFocus(ctx context.Context, focus, draft string) (LawResult, error) {
	if v.deps.Legal == nil {
		return LawResult{}, errNoLegalStore
	}
	vecs, err := v.deps.AI.Embed(ctx, []string{focus + "\n" + draft})
	if err != nil {
		return LawResult{}, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != 1 {
		return LawResult{}, fmt.Errorf("embed: got %d vectors", len(vecs))
	}
	matches, err := v.deps.Legal.Query(ctx, v.deps.LegalCollection, vecs[0], lawTopK, nil)
	if err != nil {
		return LawResult{}, fmt.Errorf("query legal store: %w", err)
	}
	refs := lawReferences(matches)

	var out llmLawVerdict
	if err := openai.GenerateInto(ctx, v.ai, lawSystemPrompt, lawPrompt(focus, refs, draft), "verify_law", lawVerdictSchema, &out); err != nil {
		return LawResult{}, err
	}
	status := strings.TrimSpace(out.Status)
	risk := strings.ToUpper(strings.TrimSpace(out.RiskLevel))
	if _, ok := statusRank[status]; !ok || status == LawError {
		return LawResult{}, fmt.Errorf("unexpected status %q", out.Status)
	}
	if _, ok := riskRank[risk]; !ok || risk == RiskUnknown {
		return LawResult{}, fmt.Errorf("unexpected risk level %q", out.RiskLevel)
	}
	return LawResult{Focus: focus, Status: status, RiskLevel: risk, Reason: strings.TrimSpace(out.Reason), References: refs}, nil
}

func lawReferences(ms []vectorstore.Match) []LawReference {
	out := make([]LawReference, 0, len(ms))
	for _, m := range ms {
		out = append(out, LawReference{
			Law:     m.String("law_name"),
			Article: m.String("article"),
			Text:    strings.TrimSpace(m.Text),
			Score:   m.Similarity(),
		})
	}
	return out
}

func lawPrompt(focus string, refs []LawReference, draft string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "검토 관점: %s\n\n관련 법령 조문:\n", focus)
	if len(refs) == 0 {
		b.WriteString("(검색된 조문 없음)\n")
	}
	for _, r := range refs {
		fmt.Fprintf(&b, "--- %s %s ---\n%s\n", r.Law, r.Article, r.Text)
	}
	fmt.Fprintf(&b, "\n초안 발췌:\n%s\n", draft)
	return b.String()
}

// aggregateLaw takes the worst status and the worst risk across focuses.
// error and UNKNOWN rank lowest, so they surface only when every focus failed.
func aggregateLaw(results []LawResult) LawResult {
	agg := LawResult{Status: LawError, RiskLevel: RiskUnknown}
	var reasons []string
	for _, r := range results {
		if statusRank[r.Status] > statusRank[agg.Status] {
			agg.Status = r.Status
		}
		if riskRank[r.RiskLevel] > riskRank[agg.RiskLevel] {
			agg.RiskLevel = r.RiskLevel
		}
		if r.Reason != "" {
			reasons = append(reasons, fmt.Sprintf("[%s] %s", r.Focus, r.Reason))
		}
	}
	agg.Reason = strings.Join(reasons, "\n")
	return agg
}
