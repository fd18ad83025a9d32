package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/bizplan-backend/internal/platform/logger"
	"github.com/yungbote/bizplan-backend/internal/platform/qdrant"
	"github.com/yungbote/bizplan-backend/internal/platform/vectorstore"
)

type testVectorStore struct {
	upsertCalls int
	queryCalls  int
	deleteCalls int
	readyErr    error
	readyCalls  int
	err         error
}

func (s *testVectorStore) Recreate(context.Context, string, int) error { return s.err }

func (s *testVectorStore) Upsert(context.Context, string, []vectorstore.Record) error {
	s.upsertCalls++
	return s.err
}

func (s *testVectorStore) Query(context.Context, string, []float32, int, map[string]any) ([]vectorstore.Match, error) {
	s.queryCalls++
	if s.err != nil {
		return nil, s.err
	}
	return []vectorstore.Match{{ID: "m1"}}, nil
}

func (s *testVectorStore) Delete(context.Context, string) error {
	s.deleteCalls++
	return s.err
}

type readyVectorStore struct{ *testVectorStore }

func (s readyVectorStore) Ready(context.Context) error {
	s.readyCalls++
	return s.readyErr
}

func stubVectorConstructors(t *testing.T) {
	t.Helper()
	origQdrant, origChromem := newQdrantVectorStore, openChromemStore
	t.Cleanup(func() {
		newQdrantVectorStore = origQdrant
		openChromemStore = origChromem
	})
}

func TestResolveVectorStoreProviderQdrantSelected(t *testing.T) {
	stubVectorConstructors(t)
	t.Setenv("QDRANT_URL", "http://qdrant:6333")

	inner := &testVectorStore{}
	var captured qdrant.Config
	newQdrantVectorStore = func(_ *logger.Logger, cfg qdrant.Config) (vectorstore.Store, error) {
		captured = cfg
		return readyVectorStore{inner}, nil
	}
	openChromemStore = func(*logger.Logger, string) (vectorstore.Store, error) {
		t.Fatalf("chromem should not be opened in qdrant mode")
		return nil, nil
	}

	vs, probe, err := resolveVectorStoreProvider(context.Background(), logger.Nop(), Config{VectorProvider: "qdrant"})
	if err != nil {
		t.Fatalf("resolveVectorStoreProvider: %v", err)
	}
	if captured.URL != "http://qdrant:6333" {
		t.Fatalf("qdrant.URL: want=%q got=%q", "http://qdrant:6333", captured.URL)
	}
	if inner.readyCalls != 1 {
		t.Fatalf("ready check at bootstrap: want=1 got=%d", inner.readyCalls)
	}
	if probe == nil {
		t.Fatalf("qdrant store should expose a health probe")
	}
	if err := vs.Upsert(context.Background(), "project_1", []vectorstore.Record{{ID: "c1", Vector: []float32{1, 2}}}); err != nil {
		t.Fatalf("vector store upsert: %v", err)
	}
	if inner.upsertCalls != 1 {
		t.Fatalf("underlying qdrant store not called; upsert_calls=%d", inner.upsertCalls)
	}
}

func TestResolveVectorStoreProviderChromemByDefault(t *testing.T) {
	stubVectorConstructors(t)

	var path string
	newQdrantVectorStore = func(*logger.Logger, qdrant.Config) (vectorstore.Store, error) {
		t.Fatalf("qdrant should not be initialised in chromem mode")
		return nil, nil
	}
	openChromemStore = func(_ *logger.Logger, p string) (vectorstore.Store, error) {
		path = p
		return &testVectorStore{}, nil
	}

	vs, probe, err := resolveVectorStoreProvider(context.Background(), logger.Nop(), Config{ChromemPath: "/var/lib/vectors"})
	if err != nil {
		t.Fatalf("resolveVectorStoreProvider: %v", err)
	}
	if vs == nil {
		t.Fatalf("vector store: expected non-nil")
	}
	if probe != nil {
		t.Fatalf("chromem has no readiness endpoint; probe should be nil")
	}
	if path != "/var/lib/vectors" {
		t.Fatalf("chromem path: want=%q got=%q", "/var/lib/vectors", path)
	}
}

func TestResolveVectorStoreProviderInMemoryChromem(t *testing.T) {
	vs, _, err := resolveVectorStoreProvider(context.Background(), logger.Nop(), Config{VectorProvider: "chromem"})
	if err != nil {
		t.Fatalf("resolveVectorStoreProvider: %v", err)
	}
	ctx := context.Background()
	if err := vs.Recreate(ctx, "project_9", 2); err != nil {
		t.Fatalf("Recreate: %v", err)
	}
	if err := vs.Upsert(ctx, "project_9", []vectorstore.Record{{ID: "a", Vector: []float32{1, 0}, Text: "개요"}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := vs.Query(ctx, "project_9", []float32{1, 0}, 3, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected matches: %+v", got)
	}
}

func TestResolveVectorStoreProviderErrorCodes(t *testing.T) {
	stubVectorConstructors(t)

	t.Run("invalid provider", func(t *testing.T) {
		_, _, err := resolveVectorStoreProvider(context.Background(), logger.Nop(), Config{VectorProvider: "pinecone"})
		assertBootstrapCode(t, err, VectorProviderBootstrapErrorInvalidConfig)
	})

	t.Run("ready check fails", func(t *testing.T) {
		t.Setenv("QDRANT_URL", "http://qdrant:6333")
		newQdrantVectorStore = func(*logger.Logger, qdrant.Config) (vectorstore.Store, error) {
			return readyVectorStore{&testVectorStore{readyErr: errors.New("503")}}, nil
		}
		_, _, err := resolveVectorStoreProvider(context.Background(), logger.Nop(), Config{VectorProvider: "qdrant"})
		assertBootstrapCode(t, err, VectorProviderBootstrapErrorConnectFailed)
	})

	t.Run("init fails", func(t *testing.T) {
		openChromemStore = func(*logger.Logger, string) (vectorstore.Store, error) {
			return nil, errors.New("corrupt database directory")
		}
		_, _, err := resolveVectorStoreProvider(context.Background(), logger.Nop(), Config{VectorProvider: "chromem"})
		assertBootstrapCode(t, err, VectorProviderBootstrapErrorProviderInitFailed)
	})
}

func assertBootstrapCode(t *testing.T, err error, want VectorProviderBootstrapErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	var bootErr *VectorProviderBootstrapError
	if !errors.As(err, &bootErr) {
		t.Fatalf("expected VectorProviderBootstrapError, got=%T", err)
	}
	if bootErr.Code != want {
		t.Fatalf("error code: want=%q got=%q", want, bootErr.Code)
	}
}
