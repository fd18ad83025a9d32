package toc

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
)

// entry is a section candidate before filtering and numbering.
type entry struct {
	Number      string
	Title       string
	Description string
	Required    *bool
	// Depth is 1 for top-level headings; 0 means derive it from the
	// numbering style.
	Depth int
	Page  int
	// Excerpt is the text under the heading, used to write descriptions.
	Excerpt string
}

var (
	dottedNumber = regexp.MustCompile(`^\d+(?:\.\d+)*\.?$`)
	romanNumber  = regexp.MustCompile(`^(?:[IVX]+|[ⅠⅡⅢⅣⅤⅥⅦⅧⅨⅩⅪⅫ])\.?$`)
	hangulNumber = regexp.MustCompile(`^[가나다라마바사아자차카타파하]\.?$`)
	hangulParen  = regexp.MustCompile(`^\(?[가나다라마바사아자차카타파하]\)$`)
	circled      = regexp.MustCompile(`^[①②③④⑤⑥⑦⑧⑨⑩⑪⑫⑬⑭⑮⑯⑰⑱⑲⑳]$`)
	numParen     = regexp.MustCompile(`^\(?\d+\)$`)
)

// numberStyle classifies a raw section number and returns its dotted depth.
func numberStyle(raw string) (style string, segs int) {
	n := strings.TrimSpace(raw)
	switch {
	case dottedNumber.MatchString(n):
		return "num", len(strings.Split(strings.TrimSuffix(n, "."), "."))
	case romanNumber.MatchString(n):
		return "roman", 1
	case hangulNumber.MatchString(n):
		return "hangul", 1
	case hangulParen.MatchString(n):
		return "hangul_paren", 1
	case circled.MatchString(n):
		return "circled", 1
	case numParen.MatchString(n):
		return "num_paren", 1
	case n == "":
		return "none", 1
	default:
		r, _ := utf8.DecodeRuneInString(n)
		return "marker:" + string(r), 1
	}
}

// assignDepths fills Depth for entries without one. A style seen for the
// first time nests one level under the previous entry.
func assignDepths(es []entry) {
	levels := map[string]int{}
	prev := 0
	for i := range es {
		style, segs := numberStyle(es[i].Number)
		if es[i].Depth > 0 {
			if _, ok := levels[style]; !ok {
				levels[style] = es[i].Depth - (segs - 1)
			}
			prev = es[i].Depth
			continue
		}
		base, ok := levels[style]
		if !ok {
			base = prev + 1
			if base > 4 {
				base = 4
			}
			levels[style] = base
		}
		d := base + segs - 1
		if d < 1 {
			d = 1
		}
		es[i].Depth = d
		prev = d
	}
}

// validNumbering reports whether every number is dotted, unique, and has its
// parent earlier in the list.
func validNumbering(es []entry) bool {
	seen := map[string]bool{}
	for _, e := range es {
		n := strings.TrimSuffix(strings.TrimSpace(e.Number), ".")
		if !dottedNumber.MatchString(n) || seen[n] {
			return false
		}
		if i := strings.LastIndex(n, "."); i >= 0 && !seen[n[:i]] {
			return false
		}
		seen[n] = true
	}
	return true
}

// finalizeNumbers keeps valid numbering, otherwise renumbers from depth. The
// result always satisfies the numbering invariants.
func finalizeNumbers(es []entry) []analysis.Section {
	out := make([]analysis.Section, 0, len(es))
	if validNumbering(es) {
		for _, e := range es {
			out = append(out, toSection(e, strings.TrimSuffix(strings.TrimSpace(e.Number), ".")))
		}
		return out
	}
	assignDepths(es)
	var counters []int
	for _, e := range es {
		d := e.Depth
		if d > len(counters)+1 {
			d = len(counters) + 1
		}
		if d < 1 {
			d = 1
		}
		if d <= len(counters) {
			counters = counters[:d]
		} else {
			counters = append(counters, 0)
		}
		counters[d-1]++
		parts := make([]string, len(counters))
		for i, c := range counters {
			parts[i] = strconv.Itoa(c)
		}
		out = append(out, toSection(e, strings.Join(parts, ".")))
	}
	return out
}

func toSection(e entry, number string) analysis.Section {
	s := analysis.Section{
		Number:      number,
		Title:       e.Title,
		Description: e.Description,
		Required:    e.Required,
		Level:       analysis.LevelMain,
	}
	if i := strings.LastIndex(number, "."); i >= 0 {
		s.Level = analysis.LevelSub
		s.ParentNumber = number[:i]
	}
	return s
}

func fromSections(secs []analysis.Section) []entry {
	out := make([]entry, 0, len(secs))
	for _, s := range secs {
		out = append(out, entry{Number: s.Number, Title: s.Title, Description: s.Description, Required: s.Required})
	}
	return out
}
