package verify

import "encoding/json"

type Request struct {
	ProjectIdx int64           `json:"project_idx"`
	DraftJSON  json.RawMessage `json:"draft_json"`
	LawFocuses []string        `json:"law_focuses,omitempty"`
}

type SectionRef struct {
	Number string `json:"number"`
	Title  string `json:"title"`
}

type TOCProgress struct {
	TotalSections   int          `json:"total_sections"`
	WrittenSections int          `json:"written_sections"`
	Percent         float64      `json:"progress_percent"`
	Written         []SectionRef `json:"written"`
	Missing         []SectionRef `json:"missing"`
	// FuzzyMatched maps headings the LLM pass resolved to a section number.
	FuzzyMatched map[string]string `json:"fuzzy_matched,omitempty"`
}

type MissingSection struct {
	Number     string `json:"number"`
	Title      string `json:"title"`
	Suggestion string `json:"suggestion"`
}

type SectionAnalysis struct {
	Missing        []MissingSection `json:"missing_sections"`
	PresentInProse []SectionRef     `json:"present_in_prose"`
}

const (
	FeatureOK      = "ok"
	FeaturePartial = "partial"
	FeatureMissing = "missing"
)

type FeatureFinding struct {
	Code       string `json:"feature_code"`
	Name       string `json:"feature_name"`
	Status     string `json:"status"`
	Suggestion string `json:"suggestion"`
}

type FeatureAnalysis struct {
	Checked  int              `json:"checked_count"`
	OK       int              `json:"ok_count"`
	Findings []FeatureFinding `json:"findings"`
}

type CompareResult struct {
	TOCProgress     TOCProgress     `json:"toc_progress"`
	SectionAnalysis SectionAnalysis `json:"section_analysis"`
	FeatureAnalysis FeatureAnalysis `json:"feature_analysis"`
}

const (
	LawSuitable   = "적합"
	LawNeedsWork  = "보완"
	LawUnsuitable = "부적합"
	LawError      = "error"

	RiskLow     = "LOW"
	RiskMedium  = "MEDIUM"
	RiskHigh    = "HIGH"
	RiskUnknown = "UNKNOWN"
)

type LawReference struct {
	Law     string  `json:"law_name"`
	Article string  `json:"article"`
	Text    string  `json:"text"`
	Score   float64 `json:"similarity"`
}

type LawResult struct {
	Focus      string         `json:"focus,omitempty"`
	Status     string         `json:"status"`
	RiskLevel  string         `json:"risk_level"`
	Reason     string         `json:"reason"`
	References []LawReference `json:"references,omitempty"`
}

type NoticeItem struct {
	Item     string  `json:"item"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
	Comment  string  `json:"comment"`
}

type NoticeResult struct {
	Items      []NoticeItem `json:"items"`
	TotalScore float64      `json:"total_score"`
	MaxScore   float64      `json:"max_score"`
	Percent    float64      `json:"percent"`
}

type Summary struct {
	TOCProgressPercent float64  `json:"toc_progress_percent"`
	NoticePercent      *float64 `json:"notice_percent"`
	LawStatus          string   `json:"law_status"`
	LawRiskLevel       string   `json:"law_risk_level"`
	Errors             []string `json:"errors"`
}

type Response struct {
	CompareResult CompareResult `json:"compare_result"`
	LawResults    []LawResult   `json:"law_results"`
	LawResult     LawResult     `json:"law_result"`
	NoticeResult  *NoticeResult `json:"notice_result"`
	Summary       Summary       `json:"summary"`
	Errors        []string      `json:"errors"`
}
