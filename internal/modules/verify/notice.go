package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
)

type llmNotice struct {
	Items []struct {
		Item     string  `json:"item"`
		Score    float64 `json:"score"`
		MaxScore float64 `json:"max_score"`
		Comment  string  `json:"comment"`
	} `json:"items"`
}

var noticeSchema = openai.Object(map[string]any{
	"items": openai.Array(openai.Object(map[string]any{
		"item":      openai.String(),
		"score":     openai.Number(),
		"max_score": openai.Number(),
		"comment":   openai.String(),
	})),
})

const noticeSystemPrompt = `당신은 공고문의 평가기준으로 사업계획서를 채점하는 심사위원입니다.
평가기준의 각 항목에 대해 배점(max_score)과 초안이 받을 점수(score)를 매기고 근거를 comment에 적으세요.
배점은 평가기준에 적힌 값을 그대로 쓰고, 점수는 배점을 넘을 수 없습니다.`

func (v *Verifier) noticeScoring(ctx context.Context, c *check) error {
	f := c.analysis.Feature(analysis.FeatureEvaluationCriteria)
	if f == nil || strings.TrimSpace(f.Content()) == "" {
		c.fail("평가기준 정보가 없어 자체 평가를 건너뜁니다")
		return nil
	}
	var out llmNotice
	prompt := fmt.Sprintf("평가기준:\n%s\n\n초안:\n%s\n", strings.TrimSpace(f.Content()), excerpt(c.flat.Text, maxDraftRunes))
	if err := openai.GenerateInto(ctx, v.ai, noticeSystemPrompt, prompt, "verify_notice", noticeSchema, &out); err != nil {
		c.fail("평가기준 자체 평가 실패: %v", err)
		return nil
	}

	nr := &NoticeResult{Items: []NoticeItem{}}
	for _, it := range out.Items {
		maxScore := it.MaxScore
		if maxScore <= 0 {
			continue
		}
		score := it.Score
		if score < 0 {
			score = 0
		}
		if score > maxScore {
			score = maxScore
		}
		nr.Items = append(nr.Items, NoticeItem{Item: strings.TrimSpace(it.Item), Score: score, MaxScore: maxScore, Comment: strings.TrimSpace(it.Comment)})
		nr.TotalScore += score
		nr.MaxScore += maxScore
	}
	nr.Percent = percent(nr.TotalScore, nr.MaxScore)
	c.resp.NoticeResult = nr
	return nil
}
