package drafting

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed styleguide.yaml
var defaultStyleGuide []byte

type Guide struct {
	Title string   `yaml:"title"`
	Tone  string   `yaml:"tone"`
	Rules []string `yaml:"rules"`
}

// StyleGuide maps main section numbers to writing guides.
type StyleGuide struct {
	Default  string            `yaml:"default"`
	Sections map[string]string `yaml:"sections"`
	Guides   map[string]Guide  `yaml:"guides"`
}

// LoadStyleGuide reads the guide from path, or the embedded default when
// path is empty.
func LoadStyleGuide(path string) (*StyleGuide, error) {
	raw := defaultStyleGuide
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read style guide: %w", err)
		}
		raw = b
	}
	var g StyleGuide
	if err := yaml.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("parse style guide: %w", err)
	}
	if _, ok := g.Guides[g.Default]; !ok {
		return nil, fmt.Errorf("style guide: default guide %q is not defined", g.Default)
	}
	for num, key := range g.Sections {
		if _, ok := g.Guides[key]; !ok {
			return nil, fmt.Errorf("style guide: section %s refers to unknown guide %q", num, key)
		}
	}
	return &g, nil
}

// For returns the guide for the main section of number.
func (g *StyleGuide) For(number string) Guide {
	if g == nil {
		return Guide{}
	}
	main, _, _ := strings.Cut(strings.TrimSpace(number), ".")
	if key, ok := g.Sections[main]; ok {
		return g.Guides[key]
	}
	return g.Guides[g.Default]
}

// Render is the prompt slice for number: the section guide followed by the
// general rules when they differ.
func (g *StyleGuide) Render(number string) string {
	if g == nil {
		return ""
	}
	var b strings.Builder
	write := func(gd Guide) {
		fmt.Fprintf(&b, "[%s]\n톤: %s\n", gd.Title, gd.Tone)
		for _, r := range gd.Rules {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	sec := g.For(number)
	write(sec)
	if def := g.Guides[g.Default]; def.Title != sec.Title {
		b.WriteString("\n")
		write(def)
	}
	return strings.TrimSpace(b.String())
}
