package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	pdf "github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/platform/chromemdb"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

func TestNormalizeForcesMarkersOntoLines(t *testing.T) {
	in := "공고 개요 □ 사업목적 ○ 세부내용 ￭ 항목 - 하위 항목\n접수기간 2024-03-01 ~ 2024-03-31\n- 3 -\n\n\n\n\n끝"
	out := Normalize(in)
	assert.Contains(t, out, "공고 개요\n□ 사업목적\n○ 세부내용\n￭ 항목\n- 하위 항목")
	assert.Contains(t, out, "2024-03-01 ~ 2024-03-31", "dates keep their dashes")
	assert.Contains(t, out, "\n- 3 -\n", "page numbers stay intact")
	assert.NotContains(t, out, "\n\n\n")
}

func TestChunkPageByHeadings(t *testing.T) {
	page := "머리말 문장\n□ 사업 개요\n내용 하나\n□ 지원 내용\n내용 둘"
	pieces := chunkPage(page)
	require.Len(t, pieces, 3)
	assert.Equal(t, analysis.SectionBody, pieces[0].Section)
	assert.Equal(t, "사업 개요", pieces[1].Section)
	assert.Equal(t, "지원 내용", pieces[2].Section)
	for _, p := range pieces {
		assert.True(t, p.IsSectioned)
		assert.True(t, strings.Contains(page, p.Text))
	}
}

func TestChunkPageFallsBackToSlices(t *testing.T) {
	page := strings.Repeat("가", 2500)
	pieces := chunkPage(page)
	require.Len(t, pieces, 3)
	for _, p := range pieces {
		assert.False(t, p.IsSectioned)
		assert.Equal(t, analysis.SectionBody, p.Section)
		assert.True(t, strings.Contains(page, p.Text))
	}

	long := "□ 긴 섹션\n" + strings.Repeat("나", 1600)
	pieces = chunkPage(long)
	require.Len(t, pieces, 2)
	assert.Equal(t, "긴 섹션", pieces[0].Section)
	assert.False(t, pieces[0].IsSectioned)
}

func TestAttachmentOrdinal(t *testing.T) {
	cases := map[string]int{
		"[붙임2] 사업계획서.pdf":    2,
		"별첨 3_참고자료.pdf":      3,
		"서식1 신청서.pdf":        1,
		"별지 제2호 서식.pdf":      2,
		"(첨부 4) 개인정보동의서.pdf": 4,
	}
	for name, want := range cases {
		got := AttachmentOrdinal(name)
		require.NotNil(t, got, name)
		assert.Equal(t, want, *got, name)
	}
	assert.Nil(t, AttachmentOrdinal("공고문.pdf"))
}

func TestLayoutRowsSplitsCellsAndTables(t *testing.T) {
	text := func(x float64, s string) pdf.Text {
		return pdf.Text{FontSize: 10, X: x, W: float64(len([]rune(s))) * 10, S: s}
	}
	rows := pdf.Rows{
		{Position: 700, Content: pdf.TextHorizontal{text(10, "목차 안내")}},
		{Position: 680, Content: pdf.TextHorizontal{text(10, "번호"), text(100, "제목"), text(300, "페이지")}},
		{Position: 660, Content: pdf.TextHorizontal{text(100, "연구목적"), text(10, "1"), text(300, "3")}},
		{Position: 640, Content: pdf.TextHorizontal{text(10, "2"), text(100, "연구내용"), text(300, "5")}},
	}
	lines := layoutRows(rows)
	require.Len(t, lines, 4)
	assert.Equal(t, "목차 안내", lines[0].text())
	assert.Equal(t, []string{"1", "연구목적", "3"}, lines[2].cells)

	tables := detectTables(4, lines)
	require.Len(t, tables, 1)
	assert.Equal(t, 4, tables[0].Page)
	assert.Equal(t, 3, tables[0].RowCount)
	assert.Equal(t, 3, tables[0].ColCount)
	assert.Equal(t, []string{"번호", "제목", "페이지"}, tables[0].Header())
}

type fakeExtractor map[string]*Extracted

func (f fakeExtractor) Extract(_ context.Context, data []byte) (*Extracted, error) {
	if e, ok := f[string(data)]; ok {
		return e, nil
	}
	return nil, errors.New("not a pdf")
}

type countingEmbedder struct {
	calls int
	fail  bool
}

func (e *countingEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	e.calls++
	if e.fail {
		return nil, errors.New("embedder down")
	}
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		out[i] = []float32{float32(len(s)%7) + 1, 1, float32(i%3) + 0.5}
	}
	return out, nil
}

func TestIndexBuildsChunksAndCollection(t *testing.T) {
	store, err := chromemdb.Open(logger.Nop(), "")
	require.NoError(t, err)
	ext := fakeExtractor{
		"ann": {PageCount: 2, Pages: map[int]string{
			1: "2024년 공고 □ 사업목적 지원합니다 □ 신청자격 중소기업",
			2: strings.Repeat("본문 텍스트 ", 300),
		}},
		"tpl": {PageCount: 1, Pages: map[int]string{1: "□ 작성 목차\n1. 연구목적"}},
	}
	emb := &countingEmbedder{}
	ix := New(Deps{Log: logger.Nop(), Extractor: ext, Embedder: emb, Store: store, BatchSize: 2})

	run := analysis.NewRun(42, "user-1", []analysis.InputFile{
		{Bytes: []byte("ann"), Filename: "공고문.pdf", Folder: 1},
		{Bytes: []byte("broken"), Filename: "붙임1 깨진파일.pdf", Folder: 2},
		{Bytes: []byte("tpl"), Filename: "붙임2 사업계획서.pdf", Folder: 2},
	})
	require.NoError(t, ix.Index(context.Background(), run))

	assert.Equal(t, "project_42", run.Collection)
	assert.Equal(t, analysis.StatusIndexed, run.Status)
	require.Len(t, run.Documents, 2)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "붙임1 깨진파일.pdf")
	assert.Equal(t, 2, *run.Documents[1].AttachmentNumber)

	docs := map[string]*analysis.Document{}
	for _, d := range run.Documents {
		docs[d.ID] = d
	}
	seen := map[string]bool{}
	for i, c := range run.Chunks {
		assert.Equal(t, fmt.Sprintf("chunk_%06d", i+1), c.ID)
		assert.False(t, seen[c.ID])
		seen[c.ID] = true
		doc, ok := docs[c.DocumentID]
		require.True(t, ok, "chunk %s has an unknown document", c.ID)
		assert.Contains(t, doc.Pages[c.Page], c.Text)
	}
	assert.Greater(t, emb.calls, 1)

	matches, err := store.Query(context.Background(), run.Collection, []float32{1, 1, 1}, 100, nil)
	require.NoError(t, err)
	assert.Len(t, matches, len(run.Chunks))
}

func TestIndexEmbeddingFailureIsFatal(t *testing.T) {
	store, err := chromemdb.Open(logger.Nop(), "")
	require.NoError(t, err)
	ix := New(Deps{
		Extractor: fakeExtractor{"ann": {PageCount: 1, Pages: map[int]string{1: "□ 개요"}}},
		Embedder:  &countingEmbedder{fail: true},
		Store:     store,
	})
	run := analysis.NewRun(1, "u", []analysis.InputFile{{Bytes: []byte("ann"), Filename: "a.pdf", Folder: 1}})
	require.Error(t, ix.Index(context.Background(), run))
}
