package toc

import (
	"regexp"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
)

var (
	formFieldKeywords = []string{
		"mail", "e-mail", "이메일", "전자우편", "팩스", "fax", "휴대전화", "휴대폰", "핸드폰",
		"전화번호", "연락처", "주소", "소재지", "대표자", "성명", "생년월일", "주민등록번호",
		"사업자등록번호", "법인등록번호", "담당자", "직위", "서명", "날인",
	}
	pageNumberTitle = regexp.MustCompile(`^-\s*\d+\s*-$`)
	tableContent    = regexp.MustCompile(`(?i)\bTO\s*-?\s*BE\b|\bAS\s*-?\s*IS\b|⇨`)
	examplePattern  = regexp.MustCompile(`홍길동|OO천원|○○천원|예시|샘플`)
	checkboxGlyphs  = regexp.MustCompile(`^(?:[☐☑☒✓✔]|\[\s*[vVxX✓]?\s*\]|\(\s*[vVxX✓]?\s*\))\s*`)
	spaceRun        = regexp.MustCompile(`\s+`)
)

// IsFormField reports whether title names a form field rather than a
// section to write.
func IsFormField(title string) bool {
	t := strings.ToLower(title)
	for _, kw := range formFieldKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

func IsPageNumber(title string) bool { return pageNumberTitle.MatchString(strings.TrimSpace(title)) }

// filterEntries drops form fields, page numbers, table content, examples,
// repeated checkbox labels and duplicate titles, then truncates
// descriptions.
func filterEntries(es []entry) []entry {
	out := make([]entry, 0, len(es))
	titles := map[string]bool{}
	checkboxes := map[string]int{}
	for _, e := range es {
		title := strings.TrimSpace(spaceRun.ReplaceAllString(e.Title, " "))
		if title == "" {
			continue
		}
		if IsFormField(title) || IsPageNumber(title) || tableContent.MatchString(title) || examplePattern.MatchString(title) {
			continue
		}
		if loc := checkboxGlyphs.FindStringIndex(title); loc != nil {
			key := strings.TrimSpace(title[loc[1]:])
			checkboxes[key]++
			if checkboxes[key] > 2 {
				continue
			}
		}
		if titles[title] {
			continue
		}
		titles[title] = true
		e.Title = title
		e.Description = truncateRunes(strings.TrimSpace(e.Description), analysis.MaxDescriptionRunes)
		out = append(out, e)
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
