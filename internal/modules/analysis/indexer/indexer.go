package indexer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
	"github.com/yungbote/bizplan-backend/internal/platform/vectorstore"
)

const defaultBatchSize = 32

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type Deps struct {
	Log       *logger.Logger
	Loader    Loader
	Extractor Extractor
	Embedder  Embedder
	Store     vectorstore.Store
	BatchSize int
}

type Indexer struct {
	deps Deps
	log  *logger.Logger
}

func New(deps Deps) *Indexer {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Extractor == nil {
		deps.Extractor = PDFExtractor{}
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	return &Indexer{deps: deps, log: deps.Log.With("component", "Indexer")}
}

// Index parses every input file, chunks the pages, embeds the chunks and
// rebuilds the project collection. Per-file failures land in run.Errors;
// embedding and store failures are returned.
func (ix *Indexer) Index(ctx context.Context, run *analysis.Run) error {
	if run.Collection == "" {
		run.Collection = vectorstore.ProjectCollection(strconv.FormatInt(run.ProjectIdx, 10))
	}
	seq := 0
	for _, f := range run.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, chunks, err := ix.parseFile(ctx, f, &seq)
		if err != nil {
			ix.log.Warn("file extraction failed", "filename", f.Name(), "error", err)
			run.AddError("문서 처리 실패 (%s): %v", f.Name(), err)
			continue
		}
		run.Documents = append(run.Documents, doc)
		run.Chunks = append(run.Chunks, chunks...)
		ix.log.Info("document parsed",
			"filename", doc.Filename,
			"document_type", doc.Type,
			"pages", doc.PageCount,
			"tables", len(doc.Tables),
			"chunks", len(chunks),
		)
	}

	vectors, err := ix.embedChunks(ctx, run.Chunks)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(run.Chunks) == 0 {
		// nothing to store; drop any stale collection from a previous run
		if err := ix.deps.Store.Delete(ctx, run.Collection); err != nil {
			return fmt.Errorf("drop collection %s: %w", run.Collection, err)
		}
		ix.log.Warn("no chunks extracted", "collection", run.Collection, "files", len(run.Files))
		run.Advance(analysis.StatusIndexed)
		return nil
	}
	if err := ix.deps.Store.Recreate(ctx, run.Collection, len(vectors[0])); err != nil {
		return fmt.Errorf("recreate collection %s: %w", run.Collection, err)
	}
	records := make([]vectorstore.Record, len(run.Chunks))
	for i, c := range run.Chunks {
		records[i] = vectorstore.Record{ID: c.ID, Vector: vectors[i], Text: c.Text, Metadata: c.Metadata()}
	}
	if err := ix.deps.Store.Upsert(ctx, run.Collection, records); err != nil {
		return fmt.Errorf("upsert collection %s: %w", run.Collection, err)
	}
	ix.log.Info("collection built", "collection", run.Collection, "documents", len(run.Documents), "chunks", len(run.Chunks))
	run.Advance(analysis.StatusIndexed)
	return nil
}

func (ix *Indexer) parseFile(ctx context.Context, f analysis.InputFile, seq *int) (*analysis.Document, []analysis.Chunk, error) {
	data, err := ix.deps.Loader.Load(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	ext, err := ix.deps.Extractor.Extract(ctx, data)
	if err != nil {
		return nil, nil, err
	}
	doc := &analysis.Document{
		ID:               uuid.NewString(),
		Filename:         f.Name(),
		Type:             f.DocumentType(),
		Pages:            make(map[int]string, len(ext.Pages)),
		PageCount:        ext.PageCount,
		Tables:           ext.Tables,
		AttachmentNumber: AttachmentOrdinal(f.Name()),
		Raw:              data,
	}
	if doc.PageCount == 0 {
		doc.PageCount = len(ext.Pages)
	}
	for p, text := range ext.Pages {
		doc.Pages[p] = Normalize(text)
	}
	pages := doc.PageNumbers()
	texts := make([]string, 0, len(pages))
	var chunks []analysis.Chunk
	doc.ChunkStart = *seq + 1
	for _, p := range pages {
		texts = append(texts, doc.Pages[p])
		for _, pc := range chunkPage(doc.Pages[p]) {
			*seq++
			chunks = append(chunks, analysis.Chunk{
				ID:               ChunkID(*seq),
				Text:             pc.Text,
				DocumentID:       doc.ID,
				DocumentType:     doc.Type,
				Filename:         doc.Filename,
				Section:          pc.Section,
				Page:             p,
				IsSectioned:      pc.IsSectioned,
				AttachmentNumber: doc.AttachmentNumber,
			})
		}
	}
	doc.ChunkEnd = *seq
	doc.FullText = strings.Join(texts, "\n\n")
	return doc, chunks, nil
}

func ChunkID(n int) string { return fmt.Sprintf("chunk_%06d", n) }

func (ix *Indexer) embedChunks(ctx context.Context, chunks []analysis.Chunk) ([][]float32, error) {
	out := make([][]float32, 0, len(chunks))
	batch := ix.deps.BatchSize
	for start := 0; start < len(chunks); start += batch {
		end := start + batch
		if end > len(chunks) {
			end = len(chunks)
		}
		inputs := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			inputs = append(inputs, c.Text)
		}
		vecs, err := ix.deps.Embedder.Embed(ctx, inputs)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(inputs) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vecs), len(inputs))
		}
		out = append(out, vecs...)
		ix.log.Debug("embedding progress", "done", end, "total", len(chunks))
	}
	return out, nil
}
