package features

import (
	"fmt"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/platform/vectorstore"
)

func featureSystemPrompt(def analysis.FeatureDefinition) string {
	return fmt.Sprintf(`당신은 정부 R&D 및 공공사업 공고문 분석 전문가입니다.
제공된 공고문과 첨부서류 발췌에서 "%s" 정보를 찾아 정리합니다.
항목 설명: %s

규칙:
- 발췌에 실제로 적힌 내용만 사용하고 추측하지 마세요.
- 공고문과 첨부서류 내용이 다르면 공고문을 우선하되 차이를 full_content에 적으세요.
- 정보가 없으면 found=false로 답하고 나머지 필드는 빈 값으로 두세요.
- content는 2~3문장 요약, full_content는 원문의 세부 내용을 빠짐없이 정리합니다.
- key_points는 핵심 사항을 짧은 문장으로 나열합니다.`, def.Name, def.Description)
}

func featureUserPrompt(def analysis.FeatureDefinition, ann, att []vectorstore.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "추출 대상: %s (%s)\n\n", def.Name, def.Key)
	writeBlock(&b, "공고문 발췌", ann)
	writeBlock(&b, "첨부서류 발췌", att)
	return b.String()
}

func writeBlock(b *strings.Builder, title string, ms []vectorstore.Match) {
	fmt.Fprintf(b, "=== %s (%d건) ===\n", title, len(ms))
	if len(ms) == 0 {
		b.WriteString("(없음)\n\n")
		return
	}
	for _, m := range ms {
		fmt.Fprintf(b, "--- 파일: %s | 섹션: %s | 페이지: %d ---\n%s\n\n",
			m.String("filename"), m.String("section"), m.Int("page"), strings.TrimSpace(m.Text))
	}
}

func visionSystemPrompt(def analysis.FeatureDefinition) string {
	var rule string
	switch def.Kind {
	case analysis.KindDate, analysis.KindPeriod:
		rule = "날짜는 문서에 적힌 그대로(연·월·일, 시각 포함) 옮기고 요약하거나 바꾸어 쓰지 마세요. 날짜 외의 내용은 넣지 마세요."
	case analysis.KindAmount:
		rule = "금액 숫자와 단위만 답하세요. 날짜나 다른 설명은 넣지 마세요."
	case analysis.KindCriteria:
		rule = `평가 항목을 계층 구조로 적으세요. 형식: "대분류(점수): 중분류(점수) - [세부기준: …]". 대분류 배점의 합은 100점이어야 합니다.`
	default:
		rule = "해당 값만 그대로 답하세요. 날짜, 금액, 다른 항목 내용을 섞지 마세요."
	}
	return fmt.Sprintf(`당신은 공고문 이미지를 읽는 분석가입니다. 페이지 이미지에서 "%s"(%s)를 찾으세요.
%s
찾지 못하면 found=false로 답하세요.`, def.Name, def.Description, rule)
}
