package toc

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
	// minSections is the size at which a template strategy wins outright.
	minSections      = 3
	freeformMaxRunes = 15000
)

type Deps struct {
	Log   *logger.Logger
	AI    openai.Client
	Store vectorstore.Store

	Vision        openai.Client
	Renderer      localmedia.Renderer
	VisionEnabled bool

	Now func() time.Time
}

type Extractor struct {
	deps   Deps
	log    *logger.Logger
	ai     openai.Client
	vision openai.Client
}

func New(deps Deps) *Extractor {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	x := &Extractor{deps: deps, log: deps.Log.With("component", "TOCExtractor"), ai: openai.WithTemperature(deps.AI, 0)}
	if deps.Vision != nil {
		x.vision = openai.WithTemperature(deps.Vision, 0)
	}
	return x
}

func (x *Extractor) visionActive() bool {
	return x.deps.VisionEnabled && x.vision != nil && x.deps.Renderer != nil
}

// Extract routes to template extraction when a primary template exists,
// then announcement synthesis, then the default skeleton.
func (x *Extractor) Extract(ctx context.Context, run *analysis.Run) error {
	var toc *analysis.TOC
	if run.PrimaryTemplate != nil {
		if doc := run.Document(run.PrimaryTemplate.Filename); doc != nil {
			toc = x.fromTemplate(ctx, run, doc)
		}
	}
	if toc == nil && ctx.Err() == nil {
		toc = x.fromAnnouncement(ctx, run)
	}
	if toc == nil {
		toc = Default()
	}
	toc.TotalSections = len(toc.Sections)
	toc.ExtractedAt = x.deps.Now().UTC()
	run.TOC = toc
	x.log.Info("toc extracted",
		"source", toc.Source,
		"method", toc.Method,
		"sections", toc.TotalSections,
		"source_file", toc.SourceFile,
	)
	run.Advance(analysis.StatusTOCExtracted)
	return ctx.Err()
}

func (x *Extractor) fromTemplate(ctx context.Context, run *analysis.Run, doc *analysis.Document) *analysis.TOC {
	build := func(m analysis.TOCMethod, es []entry) *analysis.TOC {
		return &analysis.TOC{
			Source:     analysis.SourceTemplate,
			Method:     m,
			SourceFile: doc.Filename,
			Sections:   finalizeNumbers(es),
		}
	}
	var skeleton []entry
	keep := func(es []entry) {
		if len(skeleton) == 0 && len(es) > 0 {
			skeleton = es
		}
	}

	tableEntries, hasPages := parseTables(doc.Tables)
	tableEntries = filterEntries(tableEntries)
	if len(tableEntries) >= minSections {
		t := build(analysis.MethodTableParsing, tableEntries)
		t.HasPageNumbers = analysis.Bool(hasPages)
		return t
	}
	keep(tableEntries)

	region := locateRegion(doc.FullText)
	patternEntries := filterEntries(scanPatterns(region))
	if len(patternEntries) >= minSections {
		x.enrich(ctx, patternEntries)
		return build(analysis.MethodPatternMatching, patternEntries)
	}
	keep(patternEntries)

	if x.visionActive() && len(doc.Raw) > 0 {
		visionEntries, err := x.visionTOC(ctx, doc)
		if err != nil {
			x.log.Warn("vision toc failed", "filename", doc.Filename, "error", err)
		}
		visionEntries = filterEntries(visionEntries)
		if len(visionEntries) >= minSections {
			return build(analysis.MethodVisionBatch, visionEntries)
		}
		keep(visionEntries)
	}

	text := strings.Join(region, "\n")
	if strings.TrimSpace(text) == "" {
		text = truncateRunes(doc.FullText, freeformMaxRunes)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out llmSections
	if err := openai.GenerateInto(ctx, x.ai, freeformSystem, freeformUserPrompt(text, skeleton), "toc_freeform", sectionsSchema, &out); err != nil {
		x.log.Warn("llm toc failed", "filename", doc.Filename, "error", err)
		run.AddError("목차 추출 실패 (%s): %v", doc.Filename, err)
		return nil
	}
	llmEntries := filterEntries(fromLLM(out.Sections))
	if len(llmEntries) == 0 {
		return nil
	}
	return build(analysis.MethodLLMText, llmEntries)
}

// enrich fills descriptions from the excerpts in one call. Failures leave
// the entries unchanged.
func (x *Extractor) enrich(ctx context.Context, es []entry) {
	var out llmDescriptions
	if err := openai.GenerateInto(ctx, x.ai, enrichSystem, enrichUserPrompt(es), "toc_descriptions", descriptionsSchema, &out); err != nil {
		x.log.Warn("description enrichment failed", "error", err)
		return
	}
	byID := map[string]string{}
	for _, d := range out.Descriptions {
		byID[strings.TrimSpace(d.ID)] = strings.TrimSpace(d.Description)
	}
	for i := range es {
		if d := byID[fmt.Sprintf("s%d", i+1)]; d != "" && es[i].Description == "" {
			es[i].Description = truncateRunes(d, analysis.MaxDescriptionRunes)
		}
	}
}

func fromLLM(secs []llmSection) []entry {
	out := make([]entry, 0, len(secs))
	for _, s := range secs {
		out = append(out, entry{Number: strings.TrimSpace(s.Number), Title: strings.TrimSpace(s.Title), Description: strings.TrimSpace(s.Description)})
	}
	return out
}
