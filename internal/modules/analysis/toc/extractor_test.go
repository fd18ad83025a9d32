package toc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/platform/chromemdb"
	"github.com/yungbote/bizplan-backend/internal/platform/localmedia"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
	"github.com/yungbote/bizplan-backend/internal/platform/openai/openaitest"
	"github.com/yungbote/bizplan-backend/internal/platform/vectorstore"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func templateRun(doc *analysis.Document) *analysis.Run {
	run := analysis.NewRun(7, "u", nil)
	run.Collection = "project_7"
	run.Documents = []*analysis.Document{doc}
	run.PrimaryTemplate = &analysis.AttachmentTemplate{Filename: doc.Filename, HasTemplate: true, Confidence: 0.8}
	return run
}

func numbers(secs []analysis.Section) []string {
	out := make([]string, len(secs))
	for i, s := range secs {
		out[i] = s.Number
	}
	return out
}

func TestTableTOCFromTemplate(t *testing.T) {
	doc := &analysis.Document{ID: "d2", Filename: "붙임2 사업계획서.pdf", Type: analysis.DocumentAttachment, Tables: []analysis.Table{
		analysis.NewTable(1, [][]string{
			{"번호", "제목", "페이지"},
			{"1", "연구목적", "3"},
			{"1.1", "배경", "3"},
			{"2", "연구내용", "5"},
		}),
	}}
	run := templateRun(doc)
	x := New(Deps{Log: logger.Nop(), AI: &openaitest.Fake{}, Now: func() time.Time { return fixedNow }})

	require.NoError(t, x.Extract(context.Background(), run))
	toc := run.TOC
	require.NotNil(t, toc)
	assert.Equal(t, analysis.SourceTemplate, toc.Source)
	assert.Equal(t, analysis.MethodTableParsing, toc.Method)
	assert.Equal(t, []string{"1", "1.1", "2"}, numbers(toc.Sections))
	assert.Equal(t, "배경", toc.Sections[1].Title)
	require.NotNil(t, toc.HasPageNumbers)
	assert.True(t, *toc.HasPageNumbers)
	assert.Equal(t, "1", toc.Sections[1].ParentNumber)
	assert.Equal(t, analysis.LevelSub, toc.Sections[1].Level)
	assert.Equal(t, 3, toc.TotalSections)
	assert.Equal(t, fixedNow, toc.ExtractedAt)
	assert.Equal(t, analysis.StatusTOCExtracted, run.Status)
}

func TestPatternTOCWithEnrichment(t *testing.T) {
	text := strings.Join([]string{
		"붙임 2 사업계획서 양식",
		"작성 목차",
		"1. 사업 개요",
		"가. 추진 배경",
		"시장 상황과 문제 정의를 기술합니다.",
		"나. 필요성",
		"2. 사업화 전략",
		"작성요령",
		"3. 이 줄은 영역 밖입니다",
	}, "\n")
	doc := &analysis.Document{ID: "d2", Filename: "붙임2 서식.pdf", Type: analysis.DocumentAttachment, FullText: text}
	run := templateRun(doc)
	fake := &openaitest.Fake{JSONFunc: func(_, user, name string) (map[string]any, error) {
		require.Equal(t, "toc_descriptions", name)
		assert.Contains(t, user, "시장 상황과 문제 정의")
		return map[string]any{"descriptions": []any{
			map[string]any{"id": "s2", "description": "추진 배경을 구체적으로 작성"},
		}}, nil
	}}
	x := New(Deps{AI: fake})

	require.NoError(t, x.Extract(context.Background(), run))
	toc := run.TOC
	assert.Equal(t, analysis.MethodPatternMatching, toc.Method)
	assert.Equal(t, []string{"1", "1.1", "1.2", "2"}, numbers(toc.Sections))
	assert.Equal(t, "추진 배경", toc.Sections[1].Title)
	assert.Equal(t, "추진 배경을 구체적으로 작성", toc.Sections[1].Description)
	assert.Len(t, fake.CallsNamed("toc_descriptions"), 1)
}

func TestPatternEnrichmentFailureKeepsEntries(t *testing.T) {
	text := "작성 목차\n1. 사업 개요\n2. 기술 개발 계획\n3. 사업화 계획\n작성요령"
	run := templateRun(&analysis.Document{Filename: "서식.pdf", Type: analysis.DocumentAttachment, FullText: text})
	fake := &openaitest.Fake{JSONFunc: func(_, _, _ string) (map[string]any, error) { return nil, errors.New("boom") }}

	require.NoError(t, New(Deps{AI: fake}).Extract(context.Background(), run))
	assert.Equal(t, analysis.MethodPatternMatching, run.TOC.Method)
	assert.Len(t, run.TOC.Sections, 3)
	assert.Empty(t, run.Errors)
}

type pageRenderer struct{ pages int }

func (r pageRenderer) RenderPages(_ context.Context, _ []byte, first, last int) ([]localmedia.PageImage, error) {
	var out []localmedia.PageImage
	for p := first; p <= last && p <= r.pages; p++ {
		out = append(out, localmedia.PageImage{Page: p, DataURL: "data:image/png;base64,AAAA"})
	}
	return out, nil
}

func (r pageRenderer) PageCount(context.Context, []byte) (int, error) { return r.pages, nil }

func TestVisionTOC(t *testing.T) {
	doc := &analysis.Document{Filename: "서식.pdf", Type: analysis.DocumentAttachment, PageCount: 5, Raw: []byte("%PDF"), FullText: "표지"}
	run := templateRun(doc)
	vision := &openaitest.Fake{ImagesFunc: func(_, user string, images []openai.ImageInput, name string) (map[string]any, error) {
		for _, im := range images {
			assert.Equal(t, "high", im.Detail)
		}
		switch name {
		case "toc_vision_locate":
			return map[string]any{"has_toc_start": true, "toc_start_page": 2, "has_toc_end": true, "toc_end_page": 2, "detection_method": "title"}, nil
		case "toc_vision_extract":
			return map[string]any{"sections": []any{
				map[string]any{"number": "1", "title": "기업 현황", "description": ""},
				map[string]any{"number": "2", "title": "기술 개발 내용", "description": ""},
				map[string]any{"number": "3", "title": "사업화 방안", "description": "판로 계획"},
			}}, nil
		case "toc_vision_describe":
			return map[string]any{"descriptions": []any{
				map[string]any{"id": "s1", "description": "회사 연혁과 인력 현황"},
				map[string]any{"id": "s3", "description": "덮어쓰면 안 됨"},
				map[string]any{"id": "s9", "description": "없는 항목"},
			}}, nil
		}
		return nil, fmt.Errorf("unexpected %s", name)
	}}
	x := New(Deps{AI: &openaitest.Fake{}, Vision: vision, Renderer: pageRenderer{pages: 5}, VisionEnabled: true})

	require.NoError(t, x.Extract(context.Background(), run))
	toc := run.TOC
	assert.Equal(t, analysis.MethodVisionBatch, toc.Method)
	assert.Equal(t, []string{"1", "2", "3"}, numbers(toc.Sections))
	assert.Equal(t, "회사 연혁과 인력 현황", toc.Sections[0].Description)
	assert.Equal(t, "판로 계획", toc.Sections[2].Description)
	assert.Len(t, vision.CallsNamed("toc_vision_locate"), 1)
	assert.Len(t, vision.CallsNamed("toc_vision_extract"), 1)
	assert.Len(t, vision.CallsNamed("toc_vision_describe"), 1)
}

func TestFreeformAcceptsSmallResult(t *testing.T) {
	doc := &analysis.Document{Filename: "서식.hwp.pdf", Type: analysis.DocumentAttachment, FullText: "사업의 목적과 추진 계획을 자유롭게 서술하시오."}
	run := templateRun(doc)
	fake := &openaitest.Fake{JSONFunc: func(_, _, name string) (map[string]any, error) {
		require.Equal(t, "toc_freeform", name)
		return map[string]any{"sections": []any{
			map[string]any{"number": "1", "title": "사업 목적", "description": ""},
			map[string]any{"number": "2", "title": "추진 계획", "description": ""},
		}}, nil
	}}

	require.NoError(t, New(Deps{AI: fake}).Extract(context.Background(), run))
	assert.Equal(t, analysis.MethodLLMText, run.TOC.Method)
	assert.Equal(t, analysis.SourceTemplate, run.TOC.Source)
	assert.Len(t, run.TOC.Sections, 2)
}

func synthesisSections(n int) []any {
	out := make([]any, 0, n)
	for i := 1; i <= n; i++ {
		num := fmt.Sprint((i + 1) / 2)
		if i%2 == 0 {
			num += ".1"
		}
		out = append(out, map[string]any{"number": num, "title": fmt.Sprintf("항목 %d", i), "description": "작성 안내"})
	}
	return out
}

func TestAnnouncementSynthesis(t *testing.T) {
	store, err := chromemdb.Open(logger.Nop(), "")
	require.NoError(t, err)
	run := analysis.NewRun(7, "u", nil)
	run.Collection = "project_7"
	run.Documents = []*analysis.Document{{Filename: "공고문.pdf", Type: analysis.DocumentAnnouncement, FullText: "2024년 창업성장기술개발사업 공고. 제출서류: 사업계획서"}}
	run.Chunks = []analysis.Chunk{{ID: "chunk_000001", Text: "사업계획서 작성 항목은 기술개발 필요성, 개발 목표, 사업화 계획", Filename: "공고문.pdf", Section: "제출서류", Page: 3, DocumentType: analysis.DocumentAnnouncement}}
	require.NoError(t, store.Recreate(context.Background(), run.Collection, 32))
	require.NoError(t, store.Upsert(context.Background(), run.Collection, []vectorstore.Record{{
		ID: "chunk_000001", Vector: openaitest.HashEmbed(run.Chunks[0].Text), Text: run.Chunks[0].Text, Metadata: run.Chunks[0].Metadata(),
	}}))
	fake := &openaitest.Fake{JSONFunc: func(_, user, name string) (map[string]any, error) {
		require.Equal(t, "toc_synthesis", name)
		assert.Contains(t, user, "페이지: 3")
		assert.Contains(t, user, "창업성장기술개발사업")
		return map[string]any{"announcement_type": "R&D", "sections": synthesisSections(10)}, nil
	}}

	require.NoError(t, New(Deps{AI: fake, Store: store}).Extract(context.Background(), run))
	toc := run.TOC
	assert.Equal(t, analysis.SourceAnnouncement, toc.Source)
	assert.Equal(t, analysis.MethodRAGLLM, toc.Method)
	require.NotNil(t, toc.InferenceConfidence)
	assert.InDelta(t, 0.7, *toc.InferenceConfidence, 1e-9)
	assert.GreaterOrEqual(t, len(toc.Sections), 10)
	assert.Equal(t, "공고문.pdf", toc.SourceFile)
}

func TestDefaultWhenEverythingFails(t *testing.T) {
	run := analysis.NewRun(7, "u", nil)
	run.Documents = []*analysis.Document{{Filename: "공고문.pdf", Type: analysis.DocumentAnnouncement, FullText: "공고 본문"}}
	fake := &openaitest.Fake{JSONFunc: func(_, _, _ string) (map[string]any, error) { return nil, errors.New("rate limited") }}

	require.NoError(t, New(Deps{AI: fake}).Extract(context.Background(), run))
	assert.Equal(t, analysis.SourceDefault, run.TOC.Source)
	assert.Equal(t, analysis.MethodFallback, run.TOC.Method)
	assert.InDelta(t, 0.3, *run.TOC.InferenceConfidence, 1e-9)
	assert.Len(t, run.TOC.Sections, 5)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "rate limited")
}

func TestNoInputsYieldDefault(t *testing.T) {
	run := analysis.NewRun(7, "u", nil)
	require.NoError(t, New(Deps{AI: &openaitest.Fake{}}).Extract(context.Background(), run))
	assert.Equal(t, analysis.SourceDefault, run.TOC.Source)
	assert.Empty(t, run.Errors)
}
