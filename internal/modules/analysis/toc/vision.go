package toc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
)

const (
	locateTitlePages   = 10
	locateTitleBatch   = 5
	locatePatternBatch = 3
	locatePatternPages = 30
	tocSpanDefault     = 10
	describeBatch      = 10
	describeMaxPages   = 40
)

var errTOCNotFound = errors.New("toc pages not found")

type tocLocation struct {
	HasTOCStart     bool   `json:"has_toc_start"`
	TOCStartPage    int    `json:"toc_start_page"`
	HasTOCEnd       bool   `json:"has_toc_end"`
	TOCEndPage      int    `json:"toc_end_page"`
	DetectionMethod string `json:"detection_method"`
}

var locationSchema = openai.Object(map[string]any{
	"has_toc_start":    openai.Boolean(),
	"toc_start_page":   openai.Integer(),
	"has_toc_end":      openai.Boolean(),
	"toc_end_page":     openai.Integer(),
	"detection_method": openai.Enum("title", "pattern", "none"),
})

// visionTOC locates the TOC pages, extracts sections from them in one call,
// then describes each section from the pages that follow.
func (x *Extractor) visionTOC(ctx context.Context, doc *analysis.Document) ([]entry, error) {
	last := doc.PageCount
	if last <= 0 {
		n, err := x.deps.Renderer.PageCount(ctx, doc.Raw)
		if err != nil {
			return nil, err
		}
		last = n
	}
	start, end, err := x.locateTOC(ctx, doc.Raw, last)
	if err != nil {
		return nil, err
	}
	if end < start {
		end = min(start+tocSpanDefault, last)
	}

	images, err := x.images(ctx, doc.Raw, start, end)
	if err != nil {
		return nil, err
	}
	var out llmSections
	user := fmt.Sprintf("목차 페이지 %d~%d 입니다.", start, end)
	if err := openai.GenerateIntoWithImages(ctx, x.vision, visionExtractSystem, user, images, "toc_vision_extract", sectionsSchema, &out); err != nil {
		return nil, err
	}
	es := fromLLM(out.Sections)
	if len(es) == 0 {
		return nil, nil
	}
	x.describe(ctx, doc.Raw, es, end+1, min(last, end+describeMaxPages))
	return es, nil
}

func (x *Extractor) locateTOC(ctx context.Context, pdf []byte, last int) (int, int, error) {
	ask := func(first, to int, hint string) (*tocLocation, error) {
		images, err := x.images(ctx, pdf, first, to)
		if err != nil {
			return nil, err
		}
		var loc tocLocation
		user := fmt.Sprintf("페이지 %s. %s", pageList(first, to), hint)
		if err := openai.GenerateIntoWithImages(ctx, x.vision, visionLocateSystem, user, images, "toc_vision_locate", locationSchema, &loc); err != nil {
			return nil, err
		}
		return &loc, nil
	}
	found := func(loc *tocLocation, first, to int) bool {
		return loc != nil && loc.HasTOCStart && loc.TOCStartPage >= first && loc.TOCStartPage <= to
	}
	endOf := func(loc *tocLocation) int {
		if loc.HasTOCEnd && loc.TOCEndPage >= loc.TOCStartPage && loc.TOCEndPage <= last {
			return loc.TOCEndPage
		}
		return 0
	}

	for first := 1; first <= min(locateTitlePages, last); first += locateTitleBatch {
		to := min(first+locateTitleBatch-1, min(locateTitlePages, last))
		loc, err := ask(first, to, "\"목차\", \"작성 목차\" 같은 제목으로 목차 시작 페이지를 찾으세요.")
		if err != nil {
			return 0, 0, err
		}
		if found(loc, first, to) {
			return loc.TOCStartPage, endOf(loc), nil
		}
	}
	for first := 1; first <= min(locatePatternPages, last); first += locatePatternBatch {
		to := min(first+locatePatternBatch-1, last)
		loc, err := ask(first, to, "번호가 매겨진 항목 줄이 3개 이상 연속되는 페이지를 찾으세요.")
		if err != nil {
			return 0, 0, err
		}
		if found(loc, first, to) {
			return loc.TOCStartPage, endOf(loc), nil
		}
	}
	return 0, 0, errTOCNotFound
}

// describe merges short writing-guide descriptions found on pages
// [from, to] into entries that still lack one.
func (x *Extractor) describe(ctx context.Context, pdf []byte, es []entry, from, to int) {
	var list strings.Builder
	for i, e := range es {
		fmt.Fprintf(&list, "[id=s%d] %s %s\n", i+1, e.Number, e.Title)
	}
	for first := from; first <= to; first += describeBatch {
		if ctx.Err() != nil || allDescribed(es) {
			return
		}
		images, err := x.images(ctx, pdf, first, min(first+describeBatch-1, to))
		if err != nil {
			x.log.Warn("describe render failed", "first", first, "error", err)
			return
		}
		var out llmDescriptions
		if err := openai.GenerateIntoWithImages(ctx, x.vision, visionDescribeSystem, list.String(), images, "toc_vision_describe", descriptionsSchema, &out); err != nil {
			x.log.Warn("describe call failed", "first", first, "error", err)
			continue
		}
		for _, d := range out.Descriptions {
			var idx int
			if _, err := fmt.Sscanf(strings.TrimSpace(d.ID), "s%d", &idx); err != nil || idx < 1 || idx > len(es) {
				continue
			}
			if es[idx-1].Description == "" {
				es[idx-1].Description = truncateRunes(strings.TrimSpace(d.Description), analysis.MaxDescriptionRunes)
			}
		}
	}
}

func allDescribed(es []entry) bool {
	for _, e := range es {
		if e.Description == "" {
			return false
		}
	}
	return true
}

func (x *Extractor) images(ctx context.Context, pdf []byte, first, last int) ([]openai.ImageInput, error) {
	pages, err := x.deps.Renderer.RenderPages(ctx, pdf, first, last)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages rendered for %d-%d", first, last)
	}
	out := make([]openai.ImageInput, 0, len(pages))
	for _, p := range pages {
		out = append(out, openai.ImageInput{ImageURL: p.DataURL, Detail: "high"})
	}
	return out, nil
}

func pageList(first, last int) string {
	parts := make([]string, 0, last-first+1)
	for p := first; p <= last; p++ {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, ", ")
}
