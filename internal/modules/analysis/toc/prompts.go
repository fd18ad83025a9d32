package toc

import (
	"fmt"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/platform/openai"
)

type llmSection struct {
	Number      string `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type llmSections struct {
	Sections []llmSection `json:"sections"`
}

var sectionItem = openai.Object(map[string]any{
	"number":      openai.String(),
	"title":       openai.String(),
	"description": openai.String(),
})

var sectionsSchema = openai.Object(map[string]any{
	"sections": openai.Array(sectionItem),
})

type llmSynthesis struct {
	AnnouncementType string       `json:"announcement_type"`
	Sections         []llmSection `json:"sections"`
}

var synthesisSchema = openai.Object(map[string]any{
	"announcement_type": openai.Enum("R&D", "창업", "운영기관", "기타"),
	"sections":          openai.Array(sectionItem),
})

type llmDescriptions struct {
	Descriptions []struct {
		ID          string `json:"id"`
		Description string `json:"description"`
	} `json:"descriptions"`
}

var descriptionsSchema = openai.Object(map[string]any{
	"descriptions": openai.Array(openai.Object(map[string]any{
		"id":          openai.String(),
		"description": openai.String(),
	})),
})

const enrichSystem = `당신은 사업계획서 양식 분석가입니다. 목차 항목과 각 항목 아래의 원문 발췌가 주어집니다.
각 항목에 대해 작성자가 무엇을 써야 하는지 1~2문장(200자 이내)으로 설명하세요.
발췌에 작성 안내가 없으면 항목 제목에서 합리적으로 추론하되 과장하지 마세요.
입력된 id를 그대로 사용하세요.`

func enrichUserPrompt(es []entry) string {
	var b strings.Builder
	for i, e := range es {
		fmt.Fprintf(&b, "[id=s%d] %s %s\n", i+1, e.Number, e.Title)
		if e.Excerpt != "" {
			fmt.Fprintf(&b, "발췌:\n%s\n", e.Excerpt)
		}
		b.WriteString("\n")
	}
	return b.String()
}

const freeformSystem = `당신은 정부 지원사업 사업계획서 양식에서 목차를 추출하는 전문가입니다.
규칙:
- 작성자가 본문으로 서술해야 하는 항목 제목만 추출하세요. 기업명, 대표자, 연락처 같은 서식 기입란은 제외합니다.
- 최소 10개 이상의 항목을 계층 번호(예: 1, 1.1, 1.2, 2, 2.1)로 작성하세요.
- 상위 항목 번호는 하위 항목보다 먼저 나와야 합니다.
- description에는 해당 항목의 작성 안내를 200자 이내로 요약하세요.`

func freeformUserPrompt(text string, skeleton []entry) string {
	var b strings.Builder
	if len(skeleton) > 0 {
		b.WriteString("다음은 규칙 기반으로 찾은 목차 골격입니다. 이 항목들은 반드시 포함하고 순서를 유지하세요:\n")
		for _, e := range skeleton {
			fmt.Fprintf(&b, "- %s %s\n", e.Number, e.Title)
		}
		b.WriteString("\n")
	}
	b.WriteString("=== 양식 본문 ===\n")
	b.WriteString(text)
	return b.String()
}

const synthesisSystem = `당신은 정부 R&D 및 공공사업 공고문을 분석해 사업계획서 목차를 설계하는 전문가입니다.
1. 먼저 공고 유형을 판단하세요: R&D, 창업, 운영기관, 기타.
2. 공고 유형과 평가 기준에 맞는 사업계획서 목차를 설계하세요.
규칙:
- "사업계획서", "신청서", "동의서" 같은 서식 이름은 목차 항목이 아닙니다. 작성자가 서술할 내용 항목만 포함하세요.
- 최소 10개 이상의 항목을 계층 번호(예: 1, 1.1, 1.2, 2, 2.1)로 작성하세요.
- description에는 공고문 근거를 반영한 작성 안내를 200자 이내로 적으세요.`

const visionLocateSystem = `당신은 사업계획서 양식 이미지에서 목차 위치를 찾는 분석가입니다.
각 이미지 앞에 페이지 번호가 주어집니다.
- has_toc_start: 목차(작성 항목 목록)가 시작되는 페이지가 있으면 true
- toc_start_page / toc_end_page: 실제 페이지 번호, 없으면 0
- detection_method: 제목("목차", "작성 목차" 등)으로 찾았으면 title, 번호가 매겨진 줄 3개 이상이 연속되어 찾았으면 pattern, 못 찾았으면 none`

const visionExtractSystem = `이미지는 사업계획서 양식의 목차 페이지입니다. 작성해야 하는 본문 항목을 계층 번호와 함께 순서대로 추출하세요.
서식 기입란(기업명, 대표자, 연락처 등)은 제외합니다. description은 비워 두어도 됩니다.`

const visionDescribeSystem = `이미지는 사업계획서 양식의 본문 페이지입니다. 주어진 목차 항목마다 해당 항목의 작성 안내를 1~2문장으로 요약하세요.
이 페이지들에서 찾을 수 없는 항목은 description을 빈 문자열로 두세요. 입력된 id를 그대로 사용하세요.`
