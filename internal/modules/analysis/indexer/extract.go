package indexer

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
)

// Extracted is the raw text layer of one PDF before normalisation.
type Extracted struct {
	Pages     map[int]string
	PageCount int
	Tables    []analysis.Table
}

type Extractor interface {
	Extract(ctx context.Context, data []byte) (*Extracted, error)
}

// PDFExtractor rebuilds page text from positioned text rows so tables keep
// their cell boundaries.
type PDFExtractor struct{}

func (PDFExtractor) Extract(ctx context.Context, data []byte) (out *Extracted, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("pdf: empty input")
	}
	// the reader panics on some malformed xref tables
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("pdf: malformed document: %v", rec)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf reader: %w", err)
	}
	n := r.NumPage()
	out = &Extracted{Pages: make(map[int]string, n), PageCount: n}
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			out.Pages[i] = ""
			continue
		}
		rows, rerr := p.GetTextByRow()
		if rerr != nil || len(rows) == 0 {
			plain, perr := p.GetPlainText(nil)
			if perr != nil {
				return nil, fmt.Errorf("pdf page %d: %w", i, perr)
			}
			out.Pages[i] = plain
			continue
		}
		lines := layoutRows(rows)
		texts := make([]string, 0, len(lines))
		for _, l := range lines {
			texts = append(texts, l.text())
		}
		out.Pages[i] = strings.Join(texts, "\n")
		out.Tables = append(out.Tables, detectTables(i, lines)...)
	}
	return out, nil
}

// line is one visual row split into cells at wide horizontal gaps.
type line struct {
	cells []string
}

func (l line) text() string { return strings.Join(l.cells, " ") }

func layoutRows(rows pdf.Rows) []line {
	sorted := make([]*pdf.Row, 0, len(rows))
	for _, r := range rows {
		if r != nil && len(r.Content) > 0 {
			sorted = append(sorted, r)
		}
	}
	// PDF y grows upwards.
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position > sorted[j].Position })

	out := make([]line, 0, len(sorted))
	for _, r := range sorted {
		texts := append(pdf.TextHorizontal(nil), r.Content...)
		sort.SliceStable(texts, func(i, j int) bool { return texts[i].X < texts[j].X })
		if l := splitCells(texts); len(l.cells) > 0 {
			out = append(out, l)
		}
	}
	return out
}

func splitCells(texts pdf.TextHorizontal) line {
	var (
		cells []string
		cur   strings.Builder
		end   = math.Inf(-1)
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			cells = append(cells, s)
		}
		cur.Reset()
	}
	for _, t := range texts {
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		gap := t.X - end
		switch {
		case math.IsInf(end, -1):
		case gap > math.Max(size*1.5, 12):
			flush()
		case gap > size*0.25:
			cur.WriteByte(' ')
		}
		cur.WriteString(t.S)
		if e := t.X + t.W; e > end {
			end = e
		}
	}
	flush()
	return line{cells: cells}
}

// detectTables groups runs of at least two consecutive multi-cell lines.
func detectTables(page int, lines []line) []analysis.Table {
	var (
		out []analysis.Table
		run [][]string
	)
	flush := func() {
		if len(run) >= 2 {
			out = append(out, analysis.NewTable(page, run))
		}
		run = nil
	}
	for _, l := range lines {
		if len(l.cells) >= 2 {
			run = append(run, l.cells)
			continue
		}
		flush()
	}
	flush()
	return out
}
