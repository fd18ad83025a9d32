package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type FeatureKind string

const (
	KindDate     FeatureKind = "date"
	KindPeriod   FeatureKind = "period"
	KindAmount   FeatureKind = "amount"
	KindCriteria FeatureKind = "criteria"
	KindText     FeatureKind = "text"
)

// Well-known feature keys other components look up.
const (
	FeatureSubmissionDocs     = "submission_docs"
	FeatureEvaluationCriteria = "evaluation_criteria"
)

// KeywordGroups accepts both the legacy flat list (treated as primary) and
// the grouped primary/secondary/related form.
type KeywordGroups struct {
	Primary   []string `yaml:"primary" json:"primary"`
	Secondary []string `yaml:"secondary" json:"secondary"`
	Related   []string `yaml:"related" json:"related"`
}

func (k *KeywordGroups) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var flat []string
		if err := node.Decode(&flat); err != nil {
			return err
		}
		*k = KeywordGroups{Primary: flat}
		return nil
	case yaml.MappingNode:
		type plain KeywordGroups
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*k = KeywordGroups(p)
		return nil
	case yaml.ScalarNode:
		if strings.TrimSpace(node.Value) == "" {
			*k = KeywordGroups{}
			return nil
		}
	}
	return fmt.Errorf("keywords: unsupported yaml node at line %d", node.Line)
}

func (k *KeywordGroups) UnmarshalJSON(b []byte) error {
	var flat []string
	if err := json.Unmarshal(b, &flat); err == nil {
		*k = KeywordGroups{Primary: flat}
		return nil
	}
	type plain KeywordGroups
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("keywords: %w", err)
	}
	*k = KeywordGroups(p)
	return nil
}

// Top returns up to n distinct keywords, primary first, then secondary, then
// related.
func (k KeywordGroups) Top(n int) []string {
	out := make([]string, 0, n)
	seen := map[string]bool{}
	for _, group := range [][]string{k.Primary, k.Secondary, k.Related} {
		for _, kw := range group {
			kw = strings.TrimSpace(kw)
			if kw == "" || seen[kw] {
				continue
			}
			if len(out) >= n {
				return out
			}
			seen[kw] = true
			out = append(out, kw)
		}
	}
	return out
}

type FeatureDefinition struct {
	Key         string        `yaml:"key" json:"key"`
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description" json:"description"`
	Kind        FeatureKind   `yaml:"kind" json:"kind"`
	Keywords    KeywordGroups `yaml:"keywords" json:"keywords"`
	Vision      bool          `yaml:"vision" json:"vision"`
}

type ChunkRef struct {
	File    string `json:"file"`
	Section string `json:"section"`
	Page    int    `json:"page"`
	ChunkID string `json:"chunk_id"`
}

const (
	MethodRAG    = "rag"
	MethodVision = "vision"
)

type ExtractedFeature struct {
	Code                   string     `json:"feature_code"`
	Name                   string     `json:"feature_name"`
	Title                  string     `json:"title"`
	Summary                string     `json:"summary"`
	FullContent            string     `json:"full_content"`
	KeyPoints              []string   `json:"key_points"`
	ChunksUsed             []ChunkRef `json:"chunks_used"`
	TopSimilarity          float64    `json:"vector_similarity"`
	ChunksFromAnnouncement int        `json:"chunks_from_announcement"`
	ChunksFromAttachments  int        `json:"chunks_from_attachments"`
	ReferencedAttachments  []string   `json:"referenced_attachments"`
	Method                 string     `json:"extraction_method"`
	ExtractedAt            time.Time  `json:"extracted_at"`
}

// Content prefers the full text and falls back to the summary.
func (f ExtractedFeature) Content() string {
	if strings.TrimSpace(f.FullContent) != "" {
		return f.FullContent
	}
	return f.Summary
}

type AttachmentTemplate struct {
	Filename         string   `json:"file_name"`
	HasTemplate      bool     `json:"has_template"`
	Confidence       float64  `json:"confidence_score"`
	FormFields       []string `json:"form_fields"`
	Tables           []Table  `json:"tables,omitempty"`
	AttachmentNumber *int     `json:"attachment_number,omitempty"`
}
