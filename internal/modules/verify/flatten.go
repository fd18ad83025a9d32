package verify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/platform/apierr"
)

// node is one element of the rich-text draft tree.
type node struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []node         `json:"content,omitempty"`
}

// Flat is the draft reduced to plain text plus its headings in order.
type Flat struct {
	Text     string
	Headings []string
}

var inlineTypes = map[string]bool{
	"text":      true,
	"hardBreak": true,
	"mention":   true,
	"emoji":     true,
}

// Flatten walks the draft tree. The root must be a "doc" node.
func Flatten(raw json.RawMessage) (Flat, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Flat{}, fmt.Errorf("draft_json is empty: %w", apierr.ErrInvalidArgument)
	}
	var root node
	if err := json.Unmarshal(raw, &root); err != nil {
		return Flat{}, fmt.Errorf("draft_json: %v: %w", err, apierr.ErrInvalidArgument)
	}
	if root.Type != "doc" {
		return Flat{}, fmt.Errorf("draft_json root type %q, want doc: %w", root.Type, apierr.ErrInvalidArgument)
	}

	var b strings.Builder
	var headings []string
	var walk func(n node)
	walk = func(n node) {
		switch n.Type {
		case "text":
			b.WriteString(n.Text)
			return
		case "hardBreak":
			b.WriteString("\n")
			return
		case "heading":
			if h := strings.TrimSpace(inlineText(n)); h != "" {
				headings = append(headings, h)
			}
		}
		for _, c := range n.Content {
			walk(c)
		}
		if !inlineTypes[n.Type] && n.Type != "doc" {
			b.WriteString("\n")
		}
	}
	walk(root)
	return Flat{Text: tidy(b.String()), Headings: headings}, nil
}

func inlineText(n node) string {
	var b strings.Builder
	var walk func(n node)
	walk = func(n node) {
		if n.Type == "text" {
			b.WriteString(n.Text)
		}
		for _, c := range n.Content {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// tidy trims each line and collapses runs of blank lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
