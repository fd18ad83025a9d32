package verify

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
)

type llmFeatureCheck struct {
	Status     string `json:"status"`
	Suggestion string `json:"suggestion"`
}

var featureCheckSchema = openai.Object(map[string]any{
	"status":     openai.Enum(FeatureOK, FeaturePartial, FeatureMissing),
	"suggestion": openai.String(),
})

const featureCheckSystemPrompt = `당신은 사업계획서 검토자입니다.
공고문에서 추출한 요구사항 하나가 초안에 반영되어 있는지 판단합니다.
- ok: 요구사항이 구체적으로 반영됨
- partial: 언급은 있으나 수치나 근거가 부족함
- missing: 반영되지 않음
partial이나 missing이면 suggestion에 보완 방법을 한두 문장으로 적으세요.`

// featureAnalysis checks every extracted feature concurrently. Findings and
// errors keep the context's feature order.
func (v *Verifier) featureAnalysis(ctx context.Context, c *check) error {
	features := c.analysis.Features
	fa := FeatureAnalysis{}
	if len(features) == 0 {
		c.resp.CompareResult.FeatureAnalysis = fa
		return nil
	}

	results := make([]*llmFeatureCheck, len(features))
	errs := make([]error, len(features))
	draft := excerpt(c.flat.Text, maxDraftRunes)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.deps.Concurrency)
	for i := range features {
		i := i
		g.Go(func() error {
			var out llmFeatureCheck
			err := openai.GenerateInto(gctx, v.ai, featureCheckSystemPrompt, featureCheckPrompt(features[i], draft), "verify_feature", featureCheckSchema, &out)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = &out
			return nil
		})
	}
	_ = g.Wait()

	for i, f := range features {
		if errs[i] != nil {
			c.fail("특징 검토 실패(%s): %v", f.Code, errs[i])
			continue
		}
		fa.Checked++
		r := results[i]
		status := strings.ToLower(strings.TrimSpace(r.Status))
		switch status {
		case FeatureOK:
			fa.OK++
		case FeaturePartial, FeatureMissing:
			fa.Findings = append(fa.Findings, FeatureFinding{
				Code:       f.Code,
				Name:       f.Name,
				Status:     status,
				Suggestion: strings.TrimSpace(r.Suggestion),
			})
		default:
			c.fail("특징 검토 응답 오류(%s): status %q", f.Code, r.Status)
		}
	}
	c.resp.CompareResult.FeatureAnalysis = fa
	return nil
}

func featureCheckPrompt(f analysis.ExtractedFeature, draft string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "요구사항: %s\n", f.Name)
	if f.Title != "" {
		fmt.Fprintf(&b, "제목: %s\n", f.Title)
	}
	fmt.Fprintf(&b, "내용: %s\n", strings.TrimSpace(f.Content()))
	if len(f.KeyPoints) > 0 {
		b.WriteString("핵심 사항:\n")
		for _, k := range f.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", k)
		}
	}
	fmt.Fprintf(&b, "\n초안:\n%s\n", draft)
	return b.String()
}
