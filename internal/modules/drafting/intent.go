package drafting

import (
	"context"
	"regexp"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
)

// Edits are requests aimed at text the assistant already produced, so only
// imperative forms count: "비용을 줄여 …" or "연간 500톤" are answers.
var editRequest = regexp.MustCompile(`(?:줄여|늘려|다듬어)\s?(?:줘|주세요|줄래)|다시\s?(?:써|작성해)\s?(?:줘|주세요)|(?:^|\s)톤[을를이]?\s.{0,20}?바꿔`)

var draftRequest = regexp.MustCompile(`초안[을를]?\s*(?:다시\s*)?(?:작성|써|만들어|보여|뽑아)|작성해\s?(?:줘|주세요)`)

// "5억이 아니라 7억", "3명 말고 5명"
var numberCorrection = regexp.MustCompile(`(\d[\d,.]*)[^\s\d]{0,4}\s*(?:아니라|아니고|말고)`)

func (a *Agent) classifyIntent(_ context.Context, t *turn) error {
	t.UserIntent = drafting.IntentInfo
	t.NextStep = ""
	switch {
	case t.prompt == "":
	case isEditRequest(t.prompt, t.LastAssistantMessage()):
		t.UserIntent = drafting.IntentEdit
	case draftRequest.MatchString(t.prompt):
		t.NextStep = drafting.StepGenerateDraft
	}
	return nil
}

// isEditRequest needs an assistant message to edit.
func isEditRequest(prompt, lastAssistant string) bool {
	if lastAssistant == "" {
		return false
	}
	if editRequest.MatchString(prompt) {
		return true
	}
	for _, m := range numberCorrection.FindAllStringSubmatch(prompt, -1) {
		if strings.Contains(lastAssistant, m[1]) {
			return true
		}
	}
	return false
}
