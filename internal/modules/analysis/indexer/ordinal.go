package indexer

import (
	"regexp"
	"strconv"
)

var ordinalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`별지\s*제?\s*(\d+)\s*호`),
	regexp.MustCompile(`(?:붙임|별첨|첨부|서식)\s*[\[\(]?\s*(\d+)`),
}

// AttachmentOrdinal parses "붙임2", "별첨 3", "서식1" or "별지 제2호" from a
// filename. It returns nil when none matches.
func AttachmentOrdinal(filename string) *int {
	for _, re := range ordinalPatterns {
		m := re.FindStringSubmatch(filename)
		if len(m) < 2 {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			return &n
		}
	}
	return nil
}
