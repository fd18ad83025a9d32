package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/bizplan-backend/internal/platform/vectorstore"
)

func TestInstrumentVectorStorePassThrough(t *testing.T) {
	inner := &testVectorStore{}
	vs := instrumentVectorStore("chromem", inner, 0)
	if vs == nil {
		t.Fatalf("instrumentVectorStore: expected non-nil wrapper")
	}
	ctx := context.Background()

	if err := vs.Upsert(ctx, "c", []vectorstore.Record{{ID: "v1", Vector: []float32{1, 2, 3}}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := vs.Query(ctx, "c", []float32{1, 2, 3}, 3, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Query: want 1 match got %d", len(got))
	}
	if err := vs.Delete(ctx, "c"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if inner.upsertCalls != 1 || inner.queryCalls != 1 || inner.deleteCalls != 1 {
		t.Fatalf("unexpected call counts: upsert=%d query=%d delete=%d", inner.upsertCalls, inner.queryCalls, inner.deleteCalls)
	}
}

func TestInstrumentVectorStoreErrorPassThrough(t *testing.T) {
	want := errors.New("delete failed")
	vs := instrumentVectorStore("qdrant", &testVectorStore{err: want}, 0)
	if err := vs.Delete(context.Background(), "c"); !errors.Is(err, want) {
		t.Fatalf("Delete error: want=%v got=%v", want, err)
	}
}

func TestInstrumentVectorStoreEnforcesDimension(t *testing.T) {
	inner := &testVectorStore{}
	vs := instrumentVectorStore("qdrant", inner, 3)
	ctx := context.Background()

	err := vs.Upsert(ctx, "c", []vectorstore.Record{{ID: "ok", Vector: []float32{1, 2, 3}}, {ID: "short", Vector: []float32{1}}})
	if err == nil || !strings.Contains(err.Error(), "short") {
		t.Fatalf("Upsert: expected dimension error naming the record, got %v", err)
	}
	if _, err := vs.Query(ctx, "c", []float32{1, 2}, 3, nil); err == nil {
		t.Fatalf("Query: expected dimension error")
	}
	if err := vs.Recreate(ctx, "c", 4); err == nil {
		t.Fatalf("Recreate: expected dimension error")
	}
	if inner.upsertCalls != 0 || inner.queryCalls != 0 {
		t.Fatalf("mismatched vectors must not reach the store: upsert=%d query=%d", inner.upsertCalls, inner.queryCalls)
	}
}

func TestInstrumentVectorStoreNil(t *testing.T) {
	if instrumentVectorStore("chromem", nil, 0) != nil {
		t.Fatalf("nil inner store should stay nil")
	}
}
