package drafting

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
)

// minTitleRunes is the shortest completed-section title that counts as a
// mention on its own, without the section number.
const minTitleRunes = 3

// reviseIntent marks a prompt that asks to rework something rather than
// merely mentioning it.
var reviseIntent = regexp.MustCompile(`수정|변경|다시|고치|고쳐|바꾸|바꿔|보완`)

func (a *Agent) saveUser(_ context.Context, t *turn) error {
	if t.prompt == "" {
		return nil
	}
	t.collectedBefore = t.CollectedData
	t.CollectedData += "\n[사용자]: " + t.prompt
	t.appended = true
	if a.deps.QueueMode && t.AskedQuestion != "" {
		t.AnsweredQuestions = append(t.AnsweredQuestions, drafting.QA{Question: t.AskedQuestion, Answer: t.prompt})
		t.AskedQuestion = ""
		t.answeredMoved = true
	}
	return nil
}

func (a *Agent) checkHistory(_ context.Context, t *turn) error {
	st := t.State
	if label := mentionedCompleted(st, t.prompt); label != "" && reviseIntent.MatchString(t.prompt) {
		st.TargetAlreadyCompleted = label
		t.rollbackUserInput()
		a.log.Info("regression to completed section refused", "completed", label, "target", st.TargetChapter)
		return nil
	}

	idx := st.SectionIndex(st.TargetChapter)
	keep := idx >= 0 && analysis.IsLeaf(st.TOC, idx) && !st.IsCompleted(st.TargetChapter)
	if !keep {
		if next := nextOpenLeaf(st); next >= 0 {
			st.TargetChapter = st.TOC[next].Label()
		}
	}
	if i := st.SectionIndex(st.TargetChapter); i > st.CurrentChapterIndex {
		st.CurrentChapterIndex = i
	}
	derive(st)
	return nil
}

// mentionedCompleted returns the completed section the prompt names, either by
// full label or by a distinctive title that is not part of the current target.
func mentionedCompleted(st *drafting.State, prompt string) string {
	if prompt == "" {
		return ""
	}
	for _, label := range st.CompletedChapters {
		if strings.Contains(prompt, label) {
			return label
		}
	}
	for _, label := range st.CompletedChapters {
		i := st.SectionIndex(label)
		if i < 0 {
			continue
		}
		title := strings.TrimSpace(st.TOC[i].Title)
		if utf8.RuneCountInString(title) < minTitleRunes || strings.Contains(st.TargetChapter, title) {
			continue
		}
		if strings.Contains(prompt, title) {
			return label
		}
	}
	return ""
}

func (t *turn) rollbackUserInput() {
	if t.appended {
		t.CollectedData = t.collectedBefore
		t.appended = false
	}
	if t.answeredMoved {
		last := t.AnsweredQuestions[len(t.AnsweredQuestions)-1]
		t.AnsweredQuestions = t.AnsweredQuestions[:len(t.AnsweredQuestions)-1]
		t.AskedQuestion = last.Question
		t.answeredMoved = false
	}
}
