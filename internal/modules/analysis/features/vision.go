package features

import (
	"context"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
)

type visionFeature struct {
	Found     bool     `json:"found"`
	Value     string   `json:"value"`
	KeyPoints []string `json:"key_points"`
}

var visionSchema = openai.Object(map[string]any{
	"found":      openai.Boolean(),
	"value":      openai.String(),
	"key_points": openai.Array(openai.String()),
})

func (e *Extractor) visionActive() bool {
	return e.deps.VisionEnabled && e.deps.Vision != nil && e.deps.Renderer != nil
}

// applyVision re-reads vision-flagged features from the first announcement
// pages and replaces the RAG record when the model finds a value. Failures
// leave the RAG results in place.
func (e *Extractor) applyVision(ctx context.Context, run *analysis.Run) {
	var targets []analysis.FeatureDefinition
	for _, def := range e.deps.Catalog {
		if def.Vision {
			targets = append(targets, def)
		}
	}
	ann := run.Announcement()
	if len(targets) == 0 || ann == nil || len(ann.Raw) == 0 {
		return
	}
	last := visionPageLimit
	if ann.PageCount > 0 && ann.PageCount < last {
		last = ann.PageCount
	}
	pages, err := e.deps.Renderer.RenderPages(ctx, ann.Raw, 1, last)
	if err != nil || len(pages) == 0 {
		e.log.Warn("announcement render failed, keeping rag features", "error", err)
		return
	}
	images := make([]openai.ImageInput, 0, len(pages))
	for _, p := range pages {
		images = append(images, openai.ImageInput{ImageURL: p.DataURL, Detail: "high"})
	}
	vision := openai.WithTemperature(e.deps.Vision, 0)

	for _, def := range targets {
		if ctx.Err() != nil {
			return
		}
		var out visionFeature
		user := "첨부된 이미지는 공고문의 첫 페이지들입니다. 요청한 항목의 값을 답하세요."
		if err := openai.GenerateIntoWithImages(ctx, vision, visionSystemPrompt(def), user, images, "vision_feature", visionSchema, &out); err != nil {
			e.log.Warn("vision extraction failed", "feature", def.Key, "error", err)
			continue
		}
		value := strings.TrimSpace(out.Value)
		if !out.Found || value == "" {
			continue
		}
		rec := analysis.ExtractedFeature{
			Code:                  def.Key,
			Name:                  def.Name,
			Title:                 def.Name,
			Summary:               value,
			FullContent:           value,
			KeyPoints:             nonEmpty(out.KeyPoints),
			ChunksUsed:            []analysis.ChunkRef{},
			ReferencedAttachments: []string{},
			Method:                analysis.MethodVision,
			ExtractedAt:           e.deps.Now().UTC(),
		}
		replaceOrInsert(run, e.deps.Catalog, rec)
		e.log.Debug("vision override applied", "feature", def.Key)
	}
}

// replaceOrInsert keeps run.Features in catalogue order with one record per
// code.
func replaceOrInsert(run *analysis.Run, catalog []analysis.FeatureDefinition, rec analysis.ExtractedFeature) {
	if existing := run.Feature(rec.Code); existing != nil {
		rec.TopSimilarity = existing.TopSimilarity
		*existing = rec
		return
	}
	pos := map[string]int{}
	for i, d := range catalog {
		pos[d.Key] = i
	}
	at := len(run.Features)
	for i, f := range run.Features {
		if pos[f.Code] > pos[rec.Code] {
			at = i
			break
		}
	}
	run.Features = append(run.Features, analysis.ExtractedFeature{})
	copy(run.Features[at+1:], run.Features[at:])
	run.Features[at] = rec
}
