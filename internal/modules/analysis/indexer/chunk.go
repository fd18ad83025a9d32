package indexer

import (
	"strings"
	"unicode/utf8"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
)

const (
	maxSectionRunes = 1500
	sliceRunes      = 1000
	maxLabelRunes   = 100
)

// piece is a chunk before it receives an id and document fields.
type piece struct {
	Text        string
	Section     string
	IsSectioned bool
}

// chunkPage splits one normalised page by main-marker headings. Every
// returned Text is a substring of page.
func chunkPage(page string) []piece {
	type span struct {
		start, end int
		label      string
	}
	var spans []span
	offset := 0
	headings := 0
	for _, ln := range strings.SplitAfter(page, "\n") {
		if isMainHeading(ln) {
			headings++
			if len(spans) > 0 {
				spans[len(spans)-1].end = offset
			} else if offset > 0 {
				spans = append(spans, span{start: 0, end: offset, label: analysis.SectionBody})
			}
			spans = append(spans, span{start: offset, label: headingLabel(ln)})
		}
		offset += len(ln)
	}
	if headings == 0 {
		return slicePieces(page, analysis.SectionBody)
	}
	spans[len(spans)-1].end = len(page)

	out := make([]piece, 0, len(spans))
	for _, sp := range spans {
		text := strings.TrimSpace(page[sp.start:sp.end])
		if text == "" {
			continue
		}
		if utf8.RuneCountInString(text) > maxSectionRunes {
			out = append(out, slicePieces(text, sp.label)...)
			continue
		}
		out = append(out, piece{Text: text, Section: sp.label, IsSectioned: true})
	}
	return out
}

// slicePieces cuts text into fixed rune-length slices.
func slicePieces(text, label string) []piece {
	var out []piece
	start, count := 0, 0
	for i := range text {
		if count == sliceRunes {
			if s := strings.TrimSpace(text[start:i]); s != "" {
				out = append(out, piece{Text: s, Section: label})
			}
			start, count = i, 0
		}
		count++
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, piece{Text: s, Section: label})
	}
	return out
}

func headingLabel(ln string) string {
	t := strings.TrimSpace(ln)
	t = strings.TrimSpace(strings.TrimLeft(t, MainMarkers))
	if t == "" {
		return analysis.SectionBody
	}
	if utf8.RuneCountInString(t) > maxLabelRunes {
		r := []rune(t)
		t = string(r[:maxLabelRunes])
	}
	return t
}
