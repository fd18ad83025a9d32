package drafting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
	"github.com/yungbote/bizplan-backend/internal/platform/apierr"
)

func (a *Agent) generateDraft(ctx context.Context, t *turn) error {
	st := t.State
	sec, ok := st.TargetSection()
	if !ok {
		sec = analysis.Section{Title: st.TargetChapter}
	}
	text, err := a.deps.AI.GenerateText(ctx, draftSystemPrompt, draftUserPrompt(st, sec, a.deps.StyleGuide.Render(sec.Number)))
	if err != nil {
		return fmt.Errorf("draft %s: %w", sec.Number, err)
	}
	draft := strings.TrimSpace(text)
	st.CurrentQuery = draft
	st.AddMessage(drafting.RoleAssistant, draft)

	header := draftHeader(sec.Label())
	if !st.HasAccumulated(header) {
		st.AccumulatedData = append(st.AccumulatedData, header+"\n"+draft)
	}
	return nil
}

const (
	editNoDocumentMessage   = "수정할 문서를 찾지 못했습니다. 먼저 초안을 문서에 저장한 뒤 다시 요청해 주세요."
	editInvalidInputMessage = "저장된 문서 형식이 올바르지 않아 수정할 수 없습니다."
	editInvalidOutput       = "수정 결과가 올바른 문서 형식이 아니어서 적용하지 않았습니다. 요청을 조금 더 구체적으로 말씀해 주세요."
	editDoneMessage         = "요청하신 대로 문서를 수정했습니다."
)

// editDraft rewrites the author's stored document. Refusals are replies, not
// errors, so the turn is still checkpointed.
func (a *Agent) editDraft(ctx context.Context, t *turn) error {
	st := t.State
	reply := func(msg string) error {
		st.CurrentQuery = msg
		st.AddMessage(drafting.RoleAssistant, msg)
		return nil
	}
	if a.deps.Documents == nil {
		return reply(editNoDocumentMessage)
	}

	doc, err := a.deps.Documents.GetDocument(ctx, st.UserID, st.ProjectIdx)
	switch {
	case errors.Is(err, apierr.ErrNotFound):
		return reply(editNoDocumentMessage)
	case err != nil:
		return fmt.Errorf("load document: %w", err)
	}
	if err := validateDocument(doc); err != nil {
		a.log.Warn("stored document rejected", "project_idx", st.ProjectIdx, "error", err)
		return reply(editInvalidInputMessage)
	}

	out, err := a.deps.AI.GenerateText(ctx, editSystemPrompt, editUserPrompt(t.prompt, doc, st.LastAssistantMessage()))
	if err != nil {
		return fmt.Errorf("edit document: %w", err)
	}
	edited := json.RawMessage(stripFence(out))
	if err := validateDocument(edited); err != nil {
		a.log.Warn("edited document rejected", "project_idx", st.ProjectIdx, "error", err)
		return reply(editInvalidOutput)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, edited); err == nil {
		edited = compact.Bytes()
	}
	if err := a.deps.Documents.PutDocument(ctx, st.UserID, st.ProjectIdx, edited); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	st.EditedDocument = edited
	return reply(editDoneMessage)
}

type docNode struct {
	Type    string            `json:"type"`
	Content []json.RawMessage `json:"content"`
}

func validateDocument(raw json.RawMessage) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return errors.New("empty document")
	}
	var n docNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if n.Type != "doc" {
		return fmt.Errorf("root type %q, want doc", n.Type)
	}
	return nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
