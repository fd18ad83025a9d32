package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/bizplan-backend/internal/platform/observability"
	"github.com/yungbote/bizplan-backend/internal/platform/vectorstore"
)

// instrumentedVectorStore wraps every store call in a span and rejects
// vectors whose length differs from dim when dim is set.
type instrumentedVectorStore struct {
	provider string
	inner    vectorstore.Store
	dim      int
	tracer   trace.Tracer
}

func instrumentVectorStore(provider string, inner vectorstore.Store, dim int) vectorstore.Store {
	if inner == nil {
		return nil
	}
	return &instrumentedVectorStore{
		provider: provider,
		inner:    inner,
		dim:      dim,
		tracer:   observability.Tracer(),
	}
}

func (s *instrumentedVectorStore) Recreate(ctx context.Context, collection string, dim int) error {
	ctx, span := s.start(ctx, "recreate", collection)
	err := s.checkDim(dim)
	if err == nil {
		err = s.inner.Recreate(ctx, collection, dim)
	}
	s.end(span, err)
	return err
}

func (s *instrumentedVectorStore) Upsert(ctx context.Context, collection string, records []vectorstore.Record) error {
	ctx, span := s.start(ctx, "upsert", collection)
	span.SetAttributes(attribute.Int("vectorstore.records", len(records)))
	var err error
	for _, r := range records {
		if err = s.checkDim(len(r.Vector)); err != nil {
			err = fmt.Errorf("record %s: %w", r.ID, err)
			break
		}
	}
	if err == nil {
		err = s.inner.Upsert(ctx, collection, records)
	}
	s.end(span, err)
	return err
}

func (s *instrumentedVectorStore) Query(ctx context.Context, collection string, vector []float32, n int, where map[string]any) ([]vectorstore.Match, error) {
	ctx, span := s.start(ctx, "query", collection)
	span.SetAttributes(attribute.Int("vectorstore.top_k", n))
	var (
		out []vectorstore.Match
		err = s.checkDim(len(vector))
	)
	if err == nil {
		out, err = s.inner.Query(ctx, collection, vector, n, where)
		span.SetAttributes(attribute.Int("vectorstore.matches", len(out)))
	}
	s.end(span, err)
	return out, err
}

func (s *instrumentedVectorStore) Delete(ctx context.Context, collection string) error {
	ctx, span := s.start(ctx, "delete", collection)
	err := s.inner.Delete(ctx, collection)
	s.end(span, err)
	return err
}

func (s *instrumentedVectorStore) checkDim(got int) error {
	if s.dim > 0 && got != s.dim {
		return fmt.Errorf("vector dimension %d does not match configured %d", got, s.dim)
	}
	return nil
}

func (s *instrumentedVectorStore) start(ctx context.Context, op, collection string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "vectorstore."+op, trace.WithAttributes(
		attribute.String("vectorstore.provider", s.provider),
		attribute.String("vectorstore.collection", collection),
	))
}

func (s *instrumentedVectorStore) end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
