package drafting

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Intent string

const (
	IntentInfo Intent = "INFO"
	IntentEdit Intent = "EDIT"
)

// NextStep values set by the intent classifier.
const (
	StepGenerateDraft = "generate_draft"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// State is the drafting thread record persisted by the checkpoint store.
// (TargetChapter, CollectedData, AccumulatedData, SectionScores) fully
// determine progress.
type State struct {
	UserID         string            `json:"user_id"`
	ProjectIdx     int64             `json:"project_idx"`
	FetchedContext *analysis.Context `json:"fetched_context,omitempty"`

	TOC                 []analysis.Section `json:"draft_toc_structure"`
	TargetChapter       string             `json:"target_chapter"`
	CurrentChapterIndex int                `json:"current_chapter_index"`
	MajorChapterTitles  []string           `json:"major_chapter_titles"`
	TargetSubchapters   []analysis.Section `json:"target_subchapters"`
	MissingSubsections  []string           `json:"missing_subsections"`

	CollectedData     string   `json:"collected_data"`
	AccumulatedData   []string `json:"accumulated_data"`
	CompletedChapters []string `json:"completed_chapters"`

	SectionScores     map[string]int `json:"section_scores"`
	CompletenessScore int            `json:"completeness_score"`
	GradingReason     string         `json:"grading_reason"`
	RaterBreakdown    map[string]int `json:"rater_breakdown,omitempty"`
	Sufficiency       bool           `json:"sufficiency"`
	GradedFingerprint string         `json:"graded_fingerprint,omitempty"`

	// Queue mode: questions not yet asked, the one awaiting an answer, and
	// the answered pairs.
	PendingQuestions  []string `json:"pending_questions"`
	AskedQuestion     string   `json:"asked_question,omitempty"`
	AnsweredQuestions []QA     `json:"answered_questions"`

	UserPrompt   string    `json:"user_prompt"`
	CurrentQuery string    `json:"current_query"`
	Messages     []Message `json:"messages"`

	NextStep               string          `json:"next_step"`
	UserIntent             Intent          `json:"user_intent"`
	TargetAlreadyCompleted string          `json:"target_already_completed,omitempty"`
	EditedDocument         json.RawMessage `json:"edited_document,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewState(userID string, projectIdx int64) *State {
	return &State{
		UserID:        strings.TrimSpace(userID),
		ProjectIdx:    projectIdx,
		SectionScores: map[string]int{},
	}
}

// Hydrated reports whether the analysis context was loaded into the thread.
func (s *State) Hydrated() bool { return s.FetchedContext != nil && len(s.TOC) > 0 }

func (s *State) AddMessage(role Role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

func (s *State) HasAssistantMessage() bool {
	for _, m := range s.Messages {
		if m.Role == RoleAssistant {
			return true
		}
	}
	return false
}

// LastAssistantMessage returns the latest assistant content, or "".
func (s *State) LastAssistantMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

// RecentMessages returns at most n trailing messages.
func (s *State) RecentMessages(n int) []Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

func (s *State) IsCompleted(label string) bool {
	for _, c := range s.CompletedChapters {
		if c == label {
			return true
		}
	}
	return false
}

// SectionIndex returns the position of the section whose label equals label.
func (s *State) SectionIndex(label string) int {
	label = strings.TrimSpace(label)
	if label == "" {
		return -1
	}
	for i, sec := range s.TOC {
		if sec.Label() == label {
			return i
		}
	}
	return -1
}

func (s *State) TargetSection() (analysis.Section, bool) {
	i := s.SectionIndex(s.TargetChapter)
	if i < 0 {
		return analysis.Section{}, false
	}
	return s.TOC[i], true
}

func (s *State) HasAccumulated(entryPrefix string) bool {
	for _, a := range s.AccumulatedData {
		if strings.HasPrefix(a, entryPrefix) {
			return true
		}
	}
	return false
}

// Clone deep-copies the state through its JSON form.
func (s *State) Clone() (*State, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	out := &State{}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	if out.SectionScores == nil {
		out.SectionScores = map[string]int{}
	}
	return out, nil
}
