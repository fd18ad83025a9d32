package toc

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/platform/openai"
)

const (
	synthesisResults      = 25
	synthesisChunks       = 20
	announcementMaxRunes  = 5000
	synthesisConfidence   = 0.7
	defaultSynthesisQuery = "사업계획서 작성 항목 목차 제출서류 평가항목"
)

// fromAnnouncement designs a TOC from the announcement and retrieved chunks.
func (x *Extractor) fromAnnouncement(ctx context.Context, run *analysis.Run) *analysis.TOC {
	ann := run.Announcement()
	if ann == nil && len(run.Chunks) == 0 {
		return nil
	}
	query := defaultSynthesisQuery
	if f := run.Feature(analysis.FeatureSubmissionDocs); f != nil && strings.TrimSpace(f.Content()) != "" {
		query = truncateRunes(f.Content(), 1000)
	}

	var b strings.Builder
	if len(run.Chunks) > 0 && x.deps.Store != nil {
		vecs, err := x.deps.AI.Embed(ctx, []string{query})
		if err == nil && len(vecs) > 0 {
			matches, qerr := x.deps.Store.Query(ctx, run.Collection, vecs[0], synthesisResults, nil)
			if qerr != nil {
				x.log.Warn("synthesis retrieval failed", "error", qerr)
			}
			b.WriteString("=== 관련 발췌 ===\n")
			for i, m := range matches {
				if i >= synthesisChunks {
					break
				}
				fmt.Fprintf(&b, "[파일: %s | 섹션: %s | 페이지: %d]\n%s\n\n", m.String("filename"), m.String("section"), m.Int("page"), strings.TrimSpace(m.Text))
			}
		} else if err != nil {
			x.log.Warn("synthesis query embedding failed", "error", err)
		}
	}
	if ann != nil {
		b.WriteString("=== 공고문 본문 ===\n")
		b.WriteString(truncateRunes(ann.FullText, announcementMaxRunes))
	}
	if strings.TrimSpace(b.String()) == "" {
		return nil
	}

	var out llmSynthesis
	if err := openai.GenerateInto(ctx, x.ai, synthesisSystem, b.String(), "toc_synthesis", synthesisSchema, &out); err != nil {
		x.log.Warn("toc synthesis failed", "error", err)
		run.AddError("공고문 기반 목차 생성 실패: %v", err)
		return nil
	}
	es := filterEntries(fromLLM(out.Sections))
	if len(es) == 0 {
		return nil
	}
	x.log.Debug("toc synthesized", "announcement_type", out.AnnouncementType, "sections", len(es))
	toc := &analysis.TOC{
		Source:              analysis.SourceAnnouncement,
		Method:              analysis.MethodRAGLLM,
		InferenceConfidence: analysis.Float(synthesisConfidence),
		Sections:            finalizeNumbers(es),
	}
	if ann != nil {
		toc.SourceFile = ann.Filename
	}
	return toc
}
