package toc

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	regionStart = []string{"< 본문", "<본문", "작성 목차", "작성목차", "작성항목", "제출항목", "기재사항"}
	regionEnd   = []string{"< 본문 2", "<본문 2", "<본문2", "작성요령", "작성 요령", "기재요령", "참고사항", "첨부서류", "유의사항"}

	numberedLine = regexp.MustCompile(`^[1-9]\.\s+\S{2,}`)
)

const (
	regionFallbackLines = 100
	mainExcerptRunes    = 800
	subExcerptRunes     = 600
)

// linePattern captures a number (group 1, may be empty for bare markers)
// and a title (group 2).
type linePattern struct {
	name string
	re   *regexp.Regexp
	main bool
}

var mainPatterns = []linePattern{
	{"chapter", regexp.MustCompile(`^제\s*(\d+)\s*장\.?\s+(.{2,})$`), true},
	{"part", regexp.MustCompile(`^제\s*(\d+)\s*부\.?\s+(.{2,})$`), true},
	{"roman_ascii", regexp.MustCompile(`^([IVX]+)\.\s*(.{2,})$`), true},
	{"roman_dot", regexp.MustCompile(`^([ⅠⅡⅢⅣⅤⅥⅦⅧⅨⅩⅪⅫ])\.\s*(.{2,})$`), true},
	{"roman_bare", regexp.MustCompile(`^([ⅠⅡⅢⅣⅤⅥⅦⅧⅨⅩⅪⅫ])\s+(.{2,})$`), true},
	{"dotted", regexp.MustCompile(`^(\d+(?:\.\d+)+)\.?\s+(.{2,})$`), true},
	{"num_dot", regexp.MustCompile(`^(\d{1,2})\.\s+(.{2,})$`), true},
	{"num_space", regexp.MustCompile(`^(\d{1,2})\s+([가-힣].+)$`), true},
	{"num_jang", regexp.MustCompile(`^(\d{1,2})\s*장\.?\s+(.{2,})$`), true},
	{"bracket", regexp.MustCompile(`^\[\s*(\d{1,2})\s*\]\s*(.{2,})$`), true},
	{"lenticular", regexp.MustCompile(`^【\s*(\d{1,2})\s*】\s*(.{2,})$`), true},
	{"tortoise", regexp.MustCompile(`^〔\s*(\d{1,2})\s*〕\s*(.{2,})$`), true},
	{"angle", regexp.MustCompile(`^<\s*(\d{1,2})\s*>\s*(.{2,})$`), true},
	{"square_white", regexp.MustCompile(`^(□)\s*(.{2,})$`), true},
	{"square_black", regexp.MustCompile(`^(■)\s*(.{2,})$`), true},
	{"diamond", regexp.MustCompile(`^([◆◇])\s*(.{2,})$`), true},
	{"triangle", regexp.MustCompile(`^([▶▷►])\s*(.{2,})$`), true},
	{"roman_dash", regexp.MustCompile(`^([ⅠⅡⅢⅣⅤⅥⅦⅧⅨⅩ]-\d+)\.?\s+(.{2,})$`), true},
}

var subPatterns = []linePattern{
	{"num_paren", regexp.MustCompile(`^(\d{1,2}\))\s*(.{2,})$`), false},
	{"paren_num", regexp.MustCompile(`^(\(\d{1,2}\))\s*(.{2,})$`), false},
	{"hangul_dot", regexp.MustCompile(`^([가나다라마바사아자차카타파하]\.)\s*(.{2,})$`), false},
	{"hangul_paren", regexp.MustCompile(`^([가나다라마바사아자차카타파하]\))\s*(.{2,})$`), false},
	{"paren_hangul", regexp.MustCompile(`^(\([가나다라마바사아자차카타파하]\))\s*(.{2,})$`), false},
	{"circled", regexp.MustCompile(`^([①②③④⑤⑥⑦⑧⑨⑩⑪⑫⑬⑭⑮⑯⑰⑱⑲⑳])\s*(.{2,})$`), false},
	{"bullet", regexp.MustCompile(`^([○●◦▪￭])\s*(.{2,})$`), false},
}

// locateRegion returns the lines of the TOC region of text, or nil.
func locateRegion(text string) []string {
	start := -1
	for _, kw := range regionStart {
		if i := strings.Index(text, kw); i >= 0 && (start < 0 || i < start) {
			start = i
		}
	}
	if start >= 0 {
		// the region begins at the line holding the start keyword
		if nl := strings.LastIndex(text[:start], "\n"); nl >= 0 {
			start = nl + 1
		} else {
			start = 0
		}
		body := text[start:]
		firstNL := strings.Index(body, "\n")
		if firstNL < 0 {
			return nil
		}
		end := len(body)
		for _, kw := range regionEnd {
			if i := strings.Index(body[firstNL:], kw); i >= 0 && firstNL+i < end {
				end = firstNL + i
			}
		}
		lines := strings.Split(body[:end], "\n")
		if len(lines) > regionFallbackLines {
			lines = lines[:regionFallbackLines]
		}
		return lines
	}

	lines := strings.Split(text, "\n")
	run := 0
	for i, ln := range lines {
		if numberedLine.MatchString(strings.TrimSpace(ln)) {
			run++
			if run >= 3 {
				first := i - 2
				last := first + regionFallbackLines
				if last > len(lines) {
					last = len(lines)
				}
				return lines[first:last]
			}
			continue
		}
		if strings.TrimSpace(ln) != "" {
			run = 0
		}
	}
	return nil
}

// scanPatterns applies the heading catalogue to the region lines and keeps a
// short excerpt of the lines that follow each heading.
func scanPatterns(lines []string) []entry {
	var (
		es    []entry
		cur   strings.Builder
		limit int
	)
	flush := func() {
		if len(es) > 0 {
			es[len(es)-1].Excerpt = truncateRunes(strings.TrimSpace(cur.String()), limit)
		}
		cur.Reset()
	}
	for _, raw := range lines {
		ln := strings.TrimSpace(raw)
		if ln == "" {
			continue
		}
		if e, main, ok := matchLine(ln); ok {
			flush()
			es = append(es, e)
			limit = subExcerptRunes
			if main {
				limit = mainExcerptRunes
			}
			continue
		}
		if len(es) > 0 && utf8.RuneCountInString(cur.String()) < limit {
			cur.WriteString(ln)
			cur.WriteByte('\n')
		}
	}
	flush()
	return es
}

func matchLine(ln string) (entry, bool, bool) {
	for _, group := range [][]linePattern{mainPatterns, subPatterns} {
		for _, p := range group {
			m := p.re.FindStringSubmatch(ln)
			if m == nil {
				continue
			}
			title := strings.TrimSpace(leaderDots.ReplaceAllString(m[2], ""))
			title = strings.TrimSpace(trailingPage.ReplaceAllString(title, ""))
			if utf8.RuneCountInString(title) < 2 {
				continue
			}
			return entry{Number: m[1], Title: title}, p.main, true
		}
	}
	return entry{}, false, false
}

var trailingPage = regexp.MustCompile(`\s*[.·…]{2,}\s*\d{1,4}$`)
