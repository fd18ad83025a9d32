package indexer

import (
	"regexp"
	"strings"
)

const (
	MainMarkers = "□■●○◇◆▲▼"
	SubMarkers  = "￭▪▫"
)

var (
	markerBreak = regexp.MustCompile(`([^\n \t])[ \t]*([` + MainMarkers + SubMarkers + `])`)
	pageNumber  = regexp.MustCompile(`-[ \t]*\d+[ \t]*-`)
	blankRun    = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)
)

// Normalize forces heading markers onto their own lines and collapses runs of
// blank lines.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = markerBreak.ReplaceAllString(text, "$1\n$2")
	text = splitStandaloneDashes(text)
	return blankRun.ReplaceAllString(text, "\n\n")
}

// splitStandaloneDashes breaks before a "-" that has blanks on both sides.
// Dates keep their dashes and "- 3 -" page numbers are left alone.
func splitStandaloneDashes(s string) string {
	protected := pageNumber.FindAllStringIndex(s, -1)
	inside := func(i int) bool {
		for _, p := range protected {
			if i >= p[0] && i < p[1] {
				return true
			}
		}
		return false
	}
	out := make([]byte, 0, len(s)+16)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '-' && i > 0 && i+1 < len(s) && isBlank(s[i-1]) && isBlank(s[i+1]) && !inside(i) {
			trimmed := strings.TrimRight(string(out), " \t")
			if trimmed != "" && !strings.HasSuffix(trimmed, "\n") {
				out = append([]byte(trimmed), '\n')
			}
		}
		out = append(out, c)
	}
	return string(out)
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' }

// isMainHeading reports whether the trimmed line opens with a main marker.
func isMainHeading(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	for _, m := range MainMarkers {
		if strings.HasPrefix(t, string(m)) {
			return true
		}
	}
	return false
}
