package features

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/platform/localmedia"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
	"github.com/yungbote/bizplan-backend/internal/platform/vectorstore"
)

const (
	queryKeywords   = 5
	queryResults    = 7
	maxDistance     = 1.2
	visionPageLimit = 10
)

type Deps struct {
	Log     *logger.Logger
	AI      openai.Client
	Store   vectorstore.Store
	Catalog []analysis.FeatureDefinition

	// Vision is optional; nil or VisionEnabled=false skips the override.
	Vision        openai.Client
	Renderer      localmedia.Renderer
	VisionEnabled bool

	Now func() time.Time
}

type Extractor struct {
	deps Deps
	log  *logger.Logger
	ai   openai.Client
}

func New(deps Deps) *Extractor {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Extractor{
		deps: deps,
		log:  deps.Log.With("component", "FeatureExtractor"),
		ai:   openai.WithTemperature(deps.AI, 0),
	}
}

type llmFeature struct {
	Found       bool     `json:"found"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	FullContent string   `json:"full_content"`
	KeyPoints   []string `json:"key_points"`
}

var featureSchema = openai.Object(map[string]any{
	"found":        openai.Boolean(),
	"title":        openai.String(),
	"content":      openai.String(),
	"full_content": openai.String(),
	"key_points":   openai.Array(openai.String()),
})

// Extract runs the catalogue in order and stores found features on the run.
func (e *Extractor) Extract(ctx context.Context, run *analysis.Run) error {
	if len(run.Chunks) == 0 {
		e.log.Warn("no chunks indexed, skipping feature extraction", "collection", run.Collection)
		run.Advance(analysis.StatusFeaturesExtracted)
		return nil
	}
	for _, def := range e.deps.Catalog {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := e.extractOne(ctx, run, def)
		if err != nil {
			e.log.Warn("feature extraction failed", "feature", def.Key, "error", err)
			run.AddError("특징 추출 실패 (%s): %v", def.Name, err)
			continue
		}
		if f != nil {
			run.Features = append(run.Features, *f)
		}
	}
	if e.visionActive() {
		e.applyVision(ctx, run)
	}
	e.log.Info("features extracted", "found", len(run.Features), "catalog", len(e.deps.Catalog))
	run.Advance(analysis.StatusFeaturesExtracted)
	return nil
}

// Query is the feature name followed by its top keywords.
func Query(def analysis.FeatureDefinition) string {
	parts := append([]string{def.Name}, def.Keywords.Top(queryKeywords)...)
	return strings.Join(parts, " ")
}

func (e *Extractor) extractOne(ctx context.Context, run *analysis.Run, def analysis.FeatureDefinition) (*analysis.ExtractedFeature, error) {
	vecs, err := e.deps.AI.Embed(ctx, []string{Query(def)})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embed query: empty result")
	}
	matches, err := e.deps.Store.Query(ctx, run.Collection, vecs[0], queryResults, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	if len(matches) == 0 {
		e.log.Debug("no chunks retrieved", "feature", def.Key)
		return nil, nil
	}
	if matches[0].Distance > maxDistance {
		e.log.Debug("top chunk too distant", "feature", def.Key, "distance", matches[0].Distance)
		return nil, nil
	}

	var ann, att []vectorstore.Match
	for _, m := range matches {
		if m.String("document_type") == string(analysis.DocumentAnnouncement) {
			ann = append(ann, m)
		} else {
			att = append(att, m)
		}
	}
	var out llmFeature
	user := featureUserPrompt(def, ann, att)
	if err := openai.GenerateInto(ctx, e.ai, featureSystemPrompt(def), user, "feature_extraction", featureSchema, &out); err != nil {
		return nil, err
	}
	if !out.Found {
		return nil, nil
	}

	refs := make([]analysis.ChunkRef, 0, len(matches))
	for _, m := range append(append([]vectorstore.Match{}, ann...), att...) {
		refs = append(refs, analysis.ChunkRef{
			File:    m.String("filename"),
			Section: m.String("section"),
			Page:    m.Int("page"),
			ChunkID: m.ID,
		})
	}
	return &analysis.ExtractedFeature{
		Code:                   def.Key,
		Name:                   def.Name,
		Title:                  strings.TrimSpace(out.Title),
		Summary:                strings.TrimSpace(out.Content),
		FullContent:            strings.TrimSpace(out.FullContent),
		KeyPoints:              nonEmpty(out.KeyPoints),
		ChunksUsed:             refs,
		TopSimilarity:          matches[0].Similarity(),
		ChunksFromAnnouncement: len(ann),
		ChunksFromAttachments:  len(att),
		ReferencedAttachments:  distinctFiles(att),
		Method:                 analysis.MethodRAG,
		ExtractedAt:            e.deps.Now().UTC(),
	}, nil
}

func distinctFiles(ms []vectorstore.Match) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, m := range ms {
		f := m.String("filename")
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
