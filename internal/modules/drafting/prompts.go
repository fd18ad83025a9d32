package drafting

import (
	"fmt"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
)

const recentMessageWindow = 6

const assessSystemPrompt = `당신은 정부 R&D 사업계획서 심사위원 3명(RATER_1, RATER_2, RATER_3)입니다.
작성자가 제공한 정보가 해당 목차 항목의 본문을 작성하기에 충분한지 각자 독립적으로 0~100점으로 평가합니다.

평가 기준:
- 항목의 작성 지침과 평가 기준에 필요한 내용이 모두 있는가
- 수치, 근거, 구체적 사례가 있는가
- 공고문의 요구사항과 일치하는가

80점 이상은 바로 초안을 쓸 수 있는 수준입니다.
아래 형식으로만 답하세요.
<score>세 평가의 평균 점수(정수)</score>
<breakdown>{"RATER_1": 점수, "RATER_2": 점수, "RATER_3": 점수}</breakdown>
<reason>부족한 점과 보완할 내용을 2~3문장으로. 심사위원 번호는 적지 마세요.</reason>`

func assessUserPrompt(st *drafting.State, sec analysis.Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "평가 대상 항목: %s\n", sec.Label())
	if d := strings.TrimSpace(sec.Description); d != "" {
		fmt.Fprintf(&b, "작성 지침: %s\n", d)
	}
	writeCriteria(&b, st)
	fmt.Fprintf(&b, "\n수집된 정보:\n%s\n", strings.TrimSpace(st.CollectedData))
	return b.String()
}

const summarySystemPrompt = `당신은 사업계획서 작성 보조자입니다.
작성자와의 대화에서 수집한 정보를 해당 목차 항목 기준으로 정리합니다.
사실과 수치는 그대로 보존하고, 중복을 없앤 개조식 요약으로 작성하세요.
요약 본문만 답하세요.`

func summaryUserPrompt(sec analysis.Section, collected string) string {
	return fmt.Sprintf("항목: %s\n\n수집된 정보:\n%s", sec.Label(), strings.TrimSpace(collected))
}

const querySystemPrompt = `당신은 정부 R&D 사업계획서 작성을 돕는 컨설턴트입니다.
현재 항목을 작성하는 데 필요한 정보를 얻기 위해 작성자에게 구체적인 질문 하나를 합니다.

규칙:
- 질문은 하나만, 한두 문장으로 하세요.
- 이미 수집된 내용을 다시 묻지 마세요.
- 평가에서 부족하다고 지적된 부분을 우선 물어보세요.
- 답하기 쉽도록 예시나 원하는 형태(수치, 기간, 사례)를 함께 제시하세요.
질문 문장만 답하세요.`

func queryUserPrompt(st *drafting.State, sec analysis.Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "현재 항목: %s\n", sec.Label())
	if d := strings.TrimSpace(sec.Description); d != "" {
		fmt.Fprintf(&b, "작성 지침(평가 기준): %s\n", d)
	}
	if len(st.MissingSubsections) > 0 {
		fmt.Fprintf(&b, "같은 장에서 남은 항목: %s\n", strings.Join(st.MissingSubsections, ", "))
	}
	if h := strategyHint(st); h != "" {
		fmt.Fprintf(&b, "작성 전략: %s\n", h)
	}
	if st.GradingReason != "" && st.GradedFingerprint != "" {
		fmt.Fprintf(&b, "최근 평가(%d점): %s\n", st.CompletenessScore, st.GradingReason)
	}
	collected := strings.TrimSpace(st.CollectedData)
	if collected == "" {
		collected = "(없음)"
	}
	fmt.Fprintf(&b, "\n이미 수집된 정보:\n%s\n", collected)
	writeMessages(&b, st.RecentMessages(recentMessageWindow))
	return b.String()
}

const questionsSystemPrompt = `당신은 정부 R&D 사업계획서 작성을 돕는 컨설턴트입니다.
현재 항목을 작성하는 데 필요한 정보를 모으기 위한 질문 목록을 만듭니다.
질문은 3~5개, 각각 한 문장이며 서로 겹치지 않아야 합니다.
이미 수집된 내용이나 이미 답한 질문은 다시 묻지 마세요.`

func questionsUserPrompt(st *drafting.State, sec analysis.Section) string {
	var b strings.Builder
	b.WriteString(queryUserPrompt(st, sec))
	if len(st.AnsweredQuestions) > 0 {
		b.WriteString("\n답변을 받은 질문:\n")
		for _, qa := range st.AnsweredQuestions {
			fmt.Fprintf(&b, "- %s\n", qa.Question)
		}
	}
	return b.String()
}

type llmQuestions struct {
	Questions []string `json:"questions"`
}

var questionsSchema = openai.Object(map[string]any{
	"questions": openai.Array(openai.String()),
})

const draftSystemPrompt = `당신은 정부 R&D 사업계획서 전문 작성자입니다.
수집된 정보만으로 해당 목차 항목의 본문을 공식 문서체로 작성합니다.

규칙:
- 수집된 정보에 없는 수치, 실적, 고유명사를 만들어내지 마세요.
- 작성 가이드의 톤과 규칙을 따르세요.
- 제목 없이 본문만 작성하세요.`

func draftUserPrompt(st *drafting.State, sec analysis.Section, guide string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "작성 항목: %s\n", sec.Label())
	if d := strings.TrimSpace(sec.Description); d != "" {
		fmt.Fprintf(&b, "작성 지침: %s\n", d)
	}
	if h := strategyHint(st); h != "" {
		fmt.Fprintf(&b, "작성 전략: %s\n", h)
	}
	if guide != "" {
		fmt.Fprintf(&b, "\n작성 가이드:\n%s\n", guide)
	}
	fmt.Fprintf(&b, "\n수집된 정보:\n%s\n", draftMaterial(st, sec))
	writeMessages(&b, st.RecentMessages(recentMessageWindow))
	return b.String()
}

// draftMaterial prefers the live collected data and falls back to the stored
// summary once the section has been completed.
func draftMaterial(st *drafting.State, sec analysis.Section) string {
	if c := strings.TrimSpace(st.CollectedData); c != "" {
		return c
	}
	prefix := summaryHeader(sec)
	for _, a := range st.AccumulatedData {
		if strings.HasPrefix(a, prefix) {
			body := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(a, prefix)), summaryDivider)
			return strings.TrimSpace(body)
		}
	}
	return "(없음)"
}

const editSystemPrompt = `당신은 사업계획서 문서 편집기입니다.
입력은 {"type":"doc","content":[...]} 형태의 리치 텍스트 JSON 문서입니다.
작성자의 요청에 맞게 텍스트 내용만 수정하고 노드 구조와 속성은 유지하세요.
수정된 전체 문서를 JSON으로만 답하세요. 설명이나 코드 블록 표시는 넣지 마세요.`

func editUserPrompt(request string, doc []byte, lastAssistant string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "수정 요청: %s\n", request)
	if lastAssistant != "" {
		fmt.Fprintf(&b, "\n직전 안내 내용:\n%s\n", lastAssistant)
	}
	fmt.Fprintf(&b, "\n문서:\n%s\n", doc)
	return b.String()
}

func writeCriteria(b *strings.Builder, st *drafting.State) {
	f := st.FetchedContext.Feature(analysis.FeatureEvaluationCriteria)
	if f == nil {
		return
	}
	if body := strings.TrimSpace(f.Content()); body != "" {
		fmt.Fprintf(b, "공고 평가기준: %s\n", body)
	}
}

func writeMessages(b *strings.Builder, msgs []drafting.Message) {
	if len(msgs) == 0 {
		return
	}
	b.WriteString("\n최근 대화:\n")
	for _, m := range msgs {
		role := "사용자"
		if m.Role == drafting.RoleAssistant {
			role = "도우미"
		}
		fmt.Fprintf(b, "[%s]: %s\n", role, strings.TrimSpace(m.Content))
	}
}
