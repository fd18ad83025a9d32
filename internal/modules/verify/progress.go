package verify

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
)

var leadingMarker = regexp.MustCompile(`^\s*(?:\d+(?:\.\d+)*\.?|[IVXⅠ-Ⅻ]+\.|[가-하]\.|\(?\d+\)|[①-⑳]|[□■○●◦▪·\-])\s*`)

// normalize keeps letters and digits only, lowercased.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func refOf(s analysis.Section) SectionRef { return SectionRef{Number: s.Number, Title: s.Title} }

// strictMatch reports whether heading names sec exactly, with or without its
// number.
func strictMatch(heading string, sec analysis.Section) bool {
	h := normalize(heading)
	if h == "" {
		return false
	}
	if h == normalize(sec.Number+" "+sec.Title) {
		return true
	}
	title := normalize(sec.Title)
	return title != "" && (h == title || normalize(leadingMarker.ReplaceAllString(heading, "")) == title)
}

type llmHeadingMatches struct {
	Matches []struct {
		Heading string `json:"heading"`
		Number  string `json:"number"`
	} `json:"matches"`
}

var headingMatchSchema = openai.Object(map[string]any{
	"matches": openai.Array(openai.Object(map[string]any{
		"heading": openai.String(),
		"number":  openai.String(),
	})),
})

const headingMatchSystemPrompt = `당신은 사업계획서 검토자입니다.
초안의 제목 목록과 아직 대응되지 않은 목차 항목이 주어집니다.
같은 내용을 다루는 제목과 목차 항목을 짝지으세요. 표현이 달라도 의미가 같으면 같은 항목입니다.
확실하지 않으면 짝짓지 마세요. number에는 목차 항목 번호를 그대로 적으세요.`

func (v *Verifier) tocProgress(ctx context.Context, c *check) error {
	sections := c.analysis.Sections()
	p := TOCProgress{TotalSections: len(sections)}
	written := make([]bool, len(sections))
	var leftover []string
	for _, h := range c.flat.Headings {
		hit := false
		for i, s := range sections {
			if strictMatch(h, s) {
				written[i] = true
				hit = true
			}
		}
		if !hit {
			leftover = append(leftover, h)
		}
	}

	var unwritten []analysis.Section
	for i, s := range sections {
		if !written[i] {
			unwritten = append(unwritten, s)
		}
	}
	if len(leftover) > 0 && len(unwritten) > 0 {
		var out llmHeadingMatches
		err := openai.GenerateInto(ctx, v.ai, headingMatchSystemPrompt, headingMatchPrompt(leftover, unwritten), "verify_heading_match", headingMatchSchema, &out)
		if err != nil {
			c.fail("목차 유사 매칭 실패: %v", err)
		} else {
			for _, m := range out.Matches {
				for i, s := range sections {
					if !written[i] && s.Number == strings.TrimSpace(m.Number) {
						written[i] = true
						if p.FuzzyMatched == nil {
							p.FuzzyMatched = map[string]string{}
						}
						p.FuzzyMatched[strings.TrimSpace(m.Heading)] = s.Number
					}
				}
			}
		}
	}

	// A container counts as written once any descendant is.
	for i, s := range sections {
		if written[i] {
			continue
		}
		for j, d := range sections {
			if written[j] && s.IsAncestorOf(d) {
				written[i] = true
				break
			}
		}
	}

	for i, s := range sections {
		if written[i] {
			p.Written = append(p.Written, refOf(s))
		} else {
			p.Missing = append(p.Missing, refOf(s))
		}
	}
	p.WrittenSections = len(p.Written)
	p.Percent = percent(float64(p.WrittenSections), float64(p.TotalSections))
	c.resp.CompareResult.TOCProgress = p
	return nil
}

func headingMatchPrompt(headings []string, sections []analysis.Section) string {
	var b strings.Builder
	b.WriteString("초안 제목:\n")
	for _, h := range headings {
		fmt.Fprintf(&b, "- %s\n", h)
	}
	b.WriteString("\n대응되지 않은 목차 항목:\n")
	for _, s := range sections {
		fmt.Fprintf(&b, "- %s\n", s.Label())
	}
	return b.String()
}

// percent is part/total*100 rounded to one decimal; 0 when total is 0.
func percent(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(part/total*1000) / 10
}

type llmPresent struct {
	Present []string `json:"present"`
}

var presentSchema = openai.Object(map[string]any{
	"present": openai.Array(openai.String()),
})

const presentSystemPrompt = `당신은 사업계획서 검토자입니다.
초안에 제목으로는 없지만 본문에서 실제로 다루고 있는 목차 항목을 찾습니다.
본문에 해당 항목의 핵심 내용이 충분히 서술되어 있을 때만 present에 항목 번호를 넣으세요.`

func (v *Verifier) sectionAnalysis(ctx context.Context, c *check) error {
	sections := c.analysis.Sections()
	missing := c.resp.CompareResult.TOCProgress.Missing
	sa := SectionAnalysis{}
	if len(missing) == 0 {
		c.resp.CompareResult.SectionAnalysis = sa
		return nil
	}

	present := map[string]bool{}
	var out llmPresent
	err := openai.GenerateInto(ctx, v.ai, presentSystemPrompt, presentPrompt(missing, c.flat.Text), "verify_sections_present", presentSchema, &out)
	if err != nil {
		c.fail("누락 항목 분석 실패: %v", err)
	} else {
		for _, n := range out.Present {
			present[strings.TrimSpace(n)] = true
		}
	}

	for _, m := range missing {
		if present[m.Number] {
			sa.PresentInProse = append(sa.PresentInProse, m)
			continue
		}
		sa.Missing = append(sa.Missing, MissingSection{
			Number:     m.Number,
			Title:      m.Title,
			Suggestion: suggestionFor(m, sections),
		})
	}
	c.resp.CompareResult.SectionAnalysis = sa
	return nil
}

func presentPrompt(missing []SectionRef, text string) string {
	var b strings.Builder
	b.WriteString("제목이 없는 목차 항목:\n")
	for _, m := range missing {
		fmt.Fprintf(&b, "- %s %s\n", m.Number, m.Title)
	}
	fmt.Fprintf(&b, "\n초안 본문:\n%s\n", excerpt(text, maxDraftRunes))
	return b.String()
}

func suggestionFor(ref SectionRef, sections []analysis.Section) string {
	s := fmt.Sprintf("'%s %s' 항목의 제목과 본문을 추가하세요.", ref.Number, ref.Title)
	for _, sec := range sections {
		if sec.Number == ref.Number && strings.TrimSpace(sec.Description) != "" {
			s += " 작성 지침: " + strings.TrimSpace(sec.Description)
			break
		}
	}
	return s
}
