package drafting

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
)

const summaryDivider = "----------------------------------------"

func summaryHeader(sec analysis.Section) string {
	return fmt.Sprintf("### [%s 요약]", sec.Label())
}

func draftHeader(label string) string {
	return fmt.Sprintf("### [%s 초안]", label)
}

func (a *Agent) manageProgression(ctx context.Context, t *turn) error {
	st := t.State
	sec, ok := st.TargetSection()
	if !ok {
		return nil
	}
	label := sec.Label()

	header := summaryHeader(sec)
	if !st.HasAccumulated(header) {
		summary, err := a.deps.AI.GenerateText(ctx, summarySystemPrompt, summaryUserPrompt(sec, st.CollectedData))
		if err != nil {
			return fmt.Errorf("summarise %s: %w", sec.Number, err)
		}
		st.AccumulatedData = append(st.AccumulatedData, header+"\n"+strings.TrimSpace(summary)+"\n"+summaryDivider)
	}
	if !st.IsCompleted(label) {
		st.CompletedChapters = append(st.CompletedChapters, label)
	}
	t.completed = label
	t.completedScore = st.CompletenessScore

	st.CollectedData = ""
	st.CurrentChapterIndex++
	st.PendingQuestions = nil
	st.AskedQuestion = ""
	st.AnsweredQuestions = nil

	if next := nextOpenLeaf(st); next >= 0 {
		st.TargetChapter = st.TOC[next].Label()
		if next > st.CurrentChapterIndex {
			st.CurrentChapterIndex = next
		}
		st.GradedFingerprint = fingerprint(st.TOC[next].Number, "")
	}
	derive(st)
	t.progressed = true
	a.log.Info("section completed", "section", label, "next", st.TargetChapter, "index", st.CurrentChapterIndex)
	return nil
}
