package analysis

import (
	"strings"
	"time"
)

type TOCSource string

const (
	SourceTemplate     TOCSource = "template"
	SourceAnnouncement TOCSource = "announcement"
	SourceDefault      TOCSource = "default"
)

type TOCMethod string

const (
	MethodTableParsing    TOCMethod = "table_parsing"
	MethodPatternMatching TOCMethod = "pattern_matching"
	MethodVisionBatch     TOCMethod = "vision_batch"
	MethodLLMText         TOCMethod = "llm_text_analysis"
	MethodRAGLLM          TOCMethod = "rag_llm"
	MethodFallback        TOCMethod = "fallback"
)

const (
	LevelMain = "main"
	LevelSub  = "sub"
)

// MaxDescriptionRunes bounds Section.Description.
const MaxDescriptionRunes = 200

type Section struct {
	Number       string `json:"number"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Required     *bool  `json:"required,omitempty"`
	Level        string `json:"level,omitempty"`
	ParentNumber string `json:"parent_number,omitempty"`
}

// Label is the "number title" form used as the drafting target key.
func (s Section) Label() string {
	return strings.TrimSpace(strings.TrimSpace(s.Number) + " " + strings.TrimSpace(s.Title))
}

func (s Section) IsMain() bool { return !strings.Contains(s.Number, ".") }

// IsAncestorOf reports whether other's number starts with s.Number + ".".
func (s Section) IsAncestorOf(other Section) bool {
	return s.Number != "" && strings.HasPrefix(other.Number, s.Number+".")
}

type TOC struct {
	Source              TOCSource `json:"source"`
	Method              TOCMethod `json:"extraction_method"`
	SourceFile          string    `json:"source_file,omitempty"`
	InferenceConfidence *float64  `json:"inference_confidence,omitempty"`
	HasPageNumbers      *bool     `json:"has_page_numbers,omitempty"`
	Sections            []Section `json:"sections"`
	TotalSections       int       `json:"total_sections"`
	ExtractedAt         time.Time `json:"extracted_at"`
}

// IsLeaf reports whether no section in the list descends from sections[i].
func IsLeaf(sections []Section, i int) bool {
	for j := range sections {
		if j != i && sections[i].IsAncestorOf(sections[j]) {
			return false
		}
	}
	return true
}

func Float(v float64) *float64 { return &v }
func Bool(v bool) *bool        { return &v }
