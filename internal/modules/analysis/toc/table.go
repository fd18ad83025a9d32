package toc

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
)

var (
	tocHeaderKeywords = []string{"목차", "작성항목", "구성", "항목", "내용", "제출서류"}
	droppedTitles     = map[string]bool{"합계": true, "계": true, "비고": true}

	// leading number: dotted numerics, 한글 letters, circled or roman
	// numerals, optionally followed by "." or ")".
	leadingNumber  = regexp.MustCompile(`^(\d+(?:\.\d+)*\.?|\(?\d+\)|[가나다라마바사아자차카타파하][.)]|\([가나다라마바사아자차카타파하]\)|[①②③④⑤⑥⑦⑧⑨⑩⑪⑫⑬⑭⑮⑯⑰⑱⑲⑳]|(?:[IVX]+|[ⅠⅡⅢⅣⅤⅥⅦⅧⅨⅩⅪⅫ])\.?)(?:\s+|$)`)
	bareNumberCell = regexp.MustCompile(`^(?:\d+(?:\.\d+)*\.?|\(?\d+\)|[가나다라마바사아자차카타파하][.)]?|\([가나다라마바사아자차카타파하]\)|[①②③④⑤⑥⑦⑧⑨⑩⑪⑫⑬⑭⑮⑯⑰⑱⑲⑳]|(?:[IVX]+|[ⅠⅡⅢⅣⅤⅥⅦⅧⅨⅩⅪⅫ])\.?)$`)
	pageCell       = regexp.MustCompile(`^\d{1,4}$`)
	leaderDots     = regexp.MustCompile(`[\s.·…‥_-]{2,}$`)
)

// qualifies reports whether a table looks like a table of contents.
func qualifies(t analysis.Table) bool {
	if len(t.Data) < 2 {
		return false
	}
	header := strings.Join(t.Header(), " ")
	for _, kw := range tocHeaderKeywords {
		if strings.Contains(header, kw) {
			return true
		}
	}
	numbered := 0
	for _, row := range t.Data {
		if _, _, ok := splitNumber(row); ok {
			numbered++
		}
	}
	return float64(numbered) >= 0.3*float64(len(t.Data))
}

// splitNumber separates a leading section number from the remaining cells.
func splitNumber(row []string) (number string, rest []string, ok bool) {
	cells := make([]string, 0, len(row))
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	if len(cells) == 0 {
		return "", nil, false
	}
	if len(cells) >= 2 && bareNumberCell.MatchString(cells[0]) {
		return cells[0], cells[1:], true
	}
	m := leadingNumber.FindStringSubmatchIndex(cells[0])
	if m == nil {
		return "", nil, false
	}
	number = cells[0][m[2]:m[3]]
	first := strings.TrimSpace(cells[0][m[1]:])
	rest = cells[1:]
	if first != "" {
		rest = append([]string{first}, rest...)
	}
	if len(rest) == 0 {
		return "", nil, false
	}
	return number, rest, true
}

// parseTables returns entries from every qualifying table, in order.
func parseTables(tables []analysis.Table) (es []entry, hasPages bool) {
	for _, t := range tables {
		if !qualifies(t) {
			continue
		}
		for _, row := range t.Data {
			number, rest, ok := splitNumber(row)
			if !ok {
				continue
			}
			page := 0
			if len(rest) >= 2 && pageCell.MatchString(rest[len(rest)-1]) {
				page = atoi(rest[len(rest)-1])
				rest = rest[:len(rest)-1]
			}
			title := strings.TrimSpace(leaderDots.ReplaceAllString(strings.Join(rest, " "), ""))
			if utf8.RuneCountInString(title) < 2 || droppedTitles[title] {
				continue
			}
			if page > 0 {
				hasPages = true
			}
			es = append(es, entry{Number: number, Title: title, Page: page})
		}
	}
	return es, hasPages
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
