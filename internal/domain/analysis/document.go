package analysis

import (
	"sort"
	"strings"
)

type DocumentType string

const (
	DocumentAnnouncement DocumentType = "ANNOUNCEMENT"
	DocumentAttachment   DocumentType = "ATTACHMENT"
)

// FolderAnnouncement is the folder tag that marks the announcement file.
// Every other tag is an attachment.
const FolderAnnouncement = 1

// SectionBody labels text that precedes the first heading on a page.
const SectionBody = "본문"

// InputFile carries either raw bytes or a path (local or gs://).
type InputFile struct {
	Path     string `json:"path,omitempty"`
	Bytes    []byte `json:"bytes,omitempty"`
	Filename string `json:"filename"`
	Folder   int    `json:"folder"`
}

func (f InputFile) DocumentType() DocumentType {
	if f.Folder == FolderAnnouncement {
		return DocumentAnnouncement
	}
	return DocumentAttachment
}

func (f InputFile) Name() string {
	if n := strings.TrimSpace(f.Filename); n != "" {
		return n
	}
	p := strings.TrimRight(f.Path, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

type Table struct {
	Page     int        `json:"page"`
	Data     [][]string `json:"data"`
	RowCount int        `json:"rows"`
	ColCount int        `json:"cols"`
}

func NewTable(page int, rows [][]string) Table {
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	return Table{Page: page, Data: rows, RowCount: len(rows), ColCount: cols}
}

// Header returns the first row, or nil for an empty table.
func (t Table) Header() []string {
	if len(t.Data) == 0 {
		return nil
	}
	return t.Data[0]
}

type Document struct {
	ID               string         `json:"document_id"`
	Filename         string         `json:"file_name"`
	Type             DocumentType   `json:"document_type"`
	FullText         string         `json:"-"`
	Pages            map[int]string `json:"-"`
	PageCount        int            `json:"page_count"`
	Tables           []Table        `json:"-"`
	AttachmentNumber *int           `json:"attachment_number,omitempty"`
	ChunkStart       int            `json:"chunk_start"`
	ChunkEnd         int            `json:"chunk_end"`

	// Raw keeps the source bytes for page rendering.
	Raw []byte `json:"-"`
}

// PageNumbers returns the 1-based page numbers in ascending order.
func (d *Document) PageNumbers() []int {
	out := make([]int, 0, len(d.Pages))
	for p := range d.Pages {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Chunk is created once by the indexer and never mutated.
type Chunk struct {
	ID               string       `json:"chunk_id"`
	Text             string       `json:"text"`
	DocumentID       string       `json:"document_id"`
	DocumentType     DocumentType `json:"document_type"`
	Filename         string       `json:"filename"`
	Section          string       `json:"section"`
	Page             int          `json:"page"`
	IsSectioned      bool         `json:"is_sectioned"`
	AttachmentNumber *int         `json:"attachment_number,omitempty"`
}

// Metadata is the payload stored next to the chunk vector. A missing
// attachment ordinal is stored as 0.
func (c Chunk) Metadata() map[string]any {
	att := 0
	if c.AttachmentNumber != nil {
		att = *c.AttachmentNumber
	}
	return map[string]any{
		"document_id":       c.DocumentID,
		"document_type":     string(c.DocumentType),
		"filename":          c.Filename,
		"section":           c.Section,
		"page":              c.Page,
		"attachment_number": att,
		"chunk_id":          c.ID,
		"is_sectioned":      c.IsSectioned,
	}
}
