package drafting

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
)

const (
	minQueuedQuestions = 3
	maxQueuedQuestions = 5
)

func (a *Agent) generateQuery(ctx context.Context, t *turn) error {
	st := t.State
	reply, err := a.compose(ctx, t)
	if err != nil {
		return err
	}
	st.CurrentQuery = reply
	if t.prompt != "" || !st.HasAssistantMessage() {
		st.AddMessage(drafting.RoleAssistant, reply)
	}
	return nil
}

func (a *Agent) compose(ctx context.Context, t *turn) (string, error) {
	st := t.State
	if done := st.TargetAlreadyCompleted; done != "" {
		return fmt.Sprintf("'%s' 항목은 이미 작성이 완료되었습니다. 현재 진행 중인 '%s' 항목을 계속 진행할까요?", done, st.TargetChapter), nil
	}
	if nextOpenLeaf(st) < 0 {
		return fmt.Sprintf("모든 항목의 정보 수집이 완료되었습니다. 마지막 항목 '%s'까지 정리되었습니다. "+
			"초안이 필요하면 \"초안 작성해줘\"라고 말씀해 주시고, 다음 단계로 진행하셔도 좋습니다.", st.TargetChapter), nil
	}
	sec, ok := st.TargetSection()
	if !ok {
		return "", fmt.Errorf("target %q is not in the toc", st.TargetChapter)
	}

	question, err := a.nextQuestion(ctx, t, sec)
	if err != nil {
		return "", err
	}
	if !st.HasAssistantMessage() {
		return greeting(st, sec) + "\n\n" + question, nil
	}
	return fmt.Sprintf("자, 그럼 이제 %s 을 작성할 차례입니다.\n\n%s", sec.Label(), question), nil
}

func greeting(st *drafting.State, sec analysis.Section) string {
	var b strings.Builder
	b.WriteString("안녕하세요! 사업계획서 작성을 도와드리겠습니다.")
	if n := len(st.MajorChapterTitles); n > 0 {
		fmt.Fprintf(&b, " 이번 계획서는 %d개 장(%s)으로 구성되어 있습니다.", n, strings.Join(st.MajorChapterTitles, ", "))
	}
	fmt.Fprintf(&b, "\n먼저 '%s' 항목부터 시작하겠습니다.", sec.Label())
	if d := strings.TrimSpace(sec.Description); d != "" {
		fmt.Fprintf(&b, " 이 항목에서는 %s", d)
		if !strings.HasSuffix(d, ".") {
			b.WriteString(".")
		}
	}
	return b.String()
}

// nextQuestion produces the question for this turn. Queue mode re-asks the
// pending question on an empty prompt so a resumed thread does not advance.
func (a *Agent) nextQuestion(ctx context.Context, t *turn, sec analysis.Section) (string, error) {
	st := t.State
	if !a.deps.QueueMode {
		q, err := a.deps.AI.GenerateText(ctx, querySystemPrompt, queryUserPrompt(st, sec))
		if err != nil {
			return "", fmt.Errorf("generate question: %w", err)
		}
		return strings.TrimSpace(q), nil
	}

	if st.AskedQuestion != "" && t.prompt == "" {
		return st.AskedQuestion, nil
	}
	if len(st.PendingQuestions) == 0 {
		var out llmQuestions
		if err := openai.GenerateInto(ctx, a.deps.AI, questionsSystemPrompt, questionsUserPrompt(st, sec), "draft_questions", questionsSchema, &out); err != nil {
			return "", fmt.Errorf("generate questions: %w", err)
		}
		st.PendingQuestions = cleanQuestions(out.Questions)
		if len(st.PendingQuestions) == 0 {
			return "", fmt.Errorf("generate questions: empty list")
		}
		if len(st.PendingQuestions) < minQueuedQuestions {
			a.log.Warn("short question list", "section", sec.Number, "count", len(st.PendingQuestions))
		}
	}
	st.AskedQuestion = st.PendingQuestions[0]
	st.PendingQuestions = st.PendingQuestions[1:]
	return st.AskedQuestion, nil
}

func cleanQuestions(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, q := range in {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if len(out) == maxQueuedQuestions {
			break
		}
	}
	return out
}
