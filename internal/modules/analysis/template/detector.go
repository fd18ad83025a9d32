package template

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

// Threshold is the confidence at which an attachment counts as a template.
const Threshold = 0.5

var (
	positiveName = []string{"서식", "양식", "계획서", "신청서", "제안서"}
	negativeName = []string{"안내", "매뉴얼", "지침", "공고", "가이드", "참고", "FAQ"}

	// label rows such as "기업명 :", "대표자 ( )", "연락처 ______".
	formFieldLabels = []string{
		"기업명", "기관명", "회사명", "대표자", "성명", "사업자등록번호", "법인등록번호",
		"주소", "소재지", "연락처", "전화", "휴대전화", "팩스", "이메일", "E-mail", "e-mail",
		"담당자", "설립일", "생년월일", "직위", "소속",
	}
	underlineRun = regexp.MustCompile(`_{3,}|＿{3,}`)
	placeholder  = regexp.MustCompile(`\(\s*\)|\[\s*\]|「\s*」|○○|OO`)
	guideCue     = regexp.MustCompile(`작성요령|작성 요령|목\s*차`)
)

type Detector struct {
	log *logger.Logger
}

func NewDetector(log *logger.Logger) *Detector {
	if log == nil {
		log = logger.Nop()
	}
	return &Detector{log: log.With("component", "TemplateDetector")}
}

// Detect scores every attachment document of the run.
func (d *Detector) Detect(run *analysis.Run) []analysis.AttachmentTemplate {
	out := make([]analysis.AttachmentTemplate, 0, len(run.Documents))
	for _, doc := range run.Documents {
		if doc.Type != analysis.DocumentAttachment {
			continue
		}
		rec := Score(doc)
		d.log.Debug("attachment scored", "filename", doc.Filename, "confidence", rec.Confidence, "has_template", rec.HasTemplate)
		out = append(out, rec)
	}
	return out
}

// Score combines filename and structural signals into a confidence in [0,1].
func Score(doc *analysis.Document) analysis.AttachmentTemplate {
	name := doc.Filename
	score := 0.0
	for _, kw := range positiveName {
		if strings.Contains(name, kw) {
			score += 0.25
			break
		}
	}
	for _, kw := range negativeName {
		if strings.Contains(strings.ToUpper(name), strings.ToUpper(kw)) {
			score -= 0.3
			break
		}
	}

	text := doc.FullText
	fields := formFields(text)
	switch {
	case len(fields) >= 5:
		score += 0.3
	case len(fields) >= 2:
		score += 0.15
	}
	if n := len(underlineRun.FindAllStringIndex(text, -1)); n >= 3 {
		score += 0.15
	} else if n > 0 {
		score += 0.05
	}
	if n := len(placeholder.FindAllStringIndex(text, -1)); n >= 3 {
		score += 0.15
	} else if n > 0 {
		score += 0.05
	}
	if guideCue.MatchString(text) {
		score += 0.1
	}
	switch {
	case len(doc.Tables) >= 3:
		score += 0.15
	case len(doc.Tables) >= 1:
		score += 0.1
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	score = float64(int(score*100+0.5)) / 100
	return analysis.AttachmentTemplate{
		Filename:         doc.Filename,
		HasTemplate:      score >= Threshold,
		Confidence:       score,
		FormFields:       fields,
		Tables:           doc.Tables,
		AttachmentNumber: doc.AttachmentNumber,
	}
}

// formFields returns distinct labels found at the start of a line.
func formFields(text string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, ln := range strings.Split(text, "\n") {
		t := strings.TrimSpace(ln)
		for _, label := range formFieldLabels {
			if seen[label] || !strings.HasPrefix(t, label) {
				continue
			}
			rest := strings.TrimSpace(strings.TrimPrefix(t, label))
			// a label row is short or followed by a separator or blank
			if rest == "" || strings.HasPrefix(rest, ":") || strings.HasPrefix(rest, "：") || strings.HasPrefix(rest, "(") || underlineRun.MatchString(rest) || len([]rune(rest)) <= 20 {
				seen[label] = true
				out = append(out, label)
			}
		}
	}
	return out
}

var selectionWeights = []struct {
	kw string
	w  float64
}{
	{"계획서", 1.0},
	{"제안서", 0.8},
	{"신청서", 0.6},
	{"양식", 0.2},
}

// SelectPrimary picks the proposal template among has_template records.
func SelectPrimary(templates []analysis.AttachmentTemplate) *analysis.AttachmentTemplate {
	var cands []analysis.AttachmentTemplate
	for _, t := range templates {
		if t.HasTemplate {
			cands = append(cands, t)
		}
	}
	if len(cands) == 0 {
		return nil
	}
	for i := range cands {
		if strings.Contains(cands[i].Filename, "계획서") {
			c := cands[i]
			return &c
		}
	}
	rank := func(t analysis.AttachmentTemplate) float64 {
		s := t.Confidence
		for _, w := range selectionWeights {
			if strings.Contains(t.Filename, w.kw) {
				s += w.w
			}
		}
		if t.AttachmentNumber != nil && *t.AttachmentNumber == 2 {
			s += 0.3
		}
		return s
	}
	ordinal := func(t analysis.AttachmentTemplate) int {
		if t.AttachmentNumber == nil {
			return 1 << 30
		}
		return *t.AttachmentNumber
	}
	sort.SliceStable(cands, func(i, j int) bool {
		ri, rj := rank(cands[i]), rank(cands[j])
		if ri != rj {
			return ri > rj
		}
		return ordinal(cands[i]) < ordinal(cands[j])
	})
	c := cands[0]
	return &c
}
