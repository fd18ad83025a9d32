package drafting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGrade(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		score     int
		reason    string
		breakdown map[string]int
	}{
		{
			name:      "rater mean wins over score tag",
			raw:       "<score>70</score>\n<breakdown>{\"RATER_1\": 80, \"RATER_2\": 90, \"RATER_3\": 86}</breakdown>\n<reason>RATER_1: 수치가 부족 [RATER_2] 근거 필요</reason>",
			score:     85,
			reason:    "수치가 부족 근거 필요",
			breakdown: map[string]int{"RATER_1": 80, "RATER_2": 90, "RATER_3": 86},
		},
		{
			name:   "score tag only",
			raw:    "<score>85</score><reason>충분합니다</reason>",
			score:  85,
			reason: "충분합니다",
		},
		{
			name:      "nested rater objects",
			raw:       `<breakdown>{"rater_1": {"score": "70"}, "RATER_2": 75.4, "RATER_3": "x"}</breakdown>`,
			score:     73,
			breakdown: map[string]int{"RATER_1": 70, "RATER_2": 75},
		},
		{
			name:  "out of range score is clamped",
			raw:   "<score>130</score>",
			score: 100,
		},
		{
			name:   "unparseable",
			raw:    "I think it's fine.",
			score:  0,
			reason: "평가 응답을 해석하지 못해 0점으로 처리했습니다.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := parseGrade(tc.raw)
			assert.Equal(t, tc.score, g.Score)
			assert.Equal(t, tc.reason, g.Reason)
			assert.Equal(t, tc.breakdown, g.Breakdown)
		})
	}
}

func TestFingerprintTracksSectionAndData(t *testing.T) {
	a := fingerprint("1.1", "x")
	assert.Len(t, a, 16)
	assert.Equal(t, a, fingerprint("1.1", "x"))
	assert.NotEqual(t, a, fingerprint("1.2", "x"))
	assert.NotEqual(t, a, fingerprint("1.1", "x "))
}

func TestIsEditRequest(t *testing.T) {
	last := "매출 목표는 5억 원, 고용 인원은 3명으로 정리했습니다."
	cases := []struct {
		prompt string
		last   string
		want   bool
	}{
		{"문장을 조금 줄여줘", last, true},
		{"문장을 조금 줄여줘", "", false},
		{"톤을 공식적으로 바꿔줘", last, true},
		{"이 부분 다시 써 주세요", last, true},
		{"비용을 줄여 원가 경쟁력을 확보했습니다", last, false},
		{"인력을 늘려 생산량을 연간 500톤까지 확대하는 것이 배경입니다", last, false},
		{"연간 500톤 규모를 바꿔 나갈 계획입니다", last, false},
		{"5억이 아니라 7억이야", last, true},
		{"3명 말고 5명입니다", last, true},
		{"9억이 아니라 7억", last, false},
		{"5억이 아니라 7억이야", "", false},
		{"1.1 사업 배경을 수정하고 싶어", last, false},
		{"우리 회사는 2019년에 설립되었습니다", last, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isEditRequest(tc.prompt, tc.last), tc.prompt)
	}
}

func TestDraftRequest(t *testing.T) {
	cases := map[string]bool{
		"지금까지 내용으로 초안 작성해줘":          true,
		"초안 다시 보여줘":                  true,
		"사업 배경을 작성해 주세요":             true,
		"초안에 꼭 들어갈 내용은 연 12% 성장률입니다": false,
		"보고서에 써줘야 하는 수치는 3천억 원입니다":   false,
	}
	for prompt, want := range cases {
		assert.Equal(t, want, draftRequest.MatchString(prompt), prompt)
	}
}
