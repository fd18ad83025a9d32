package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/yungbote/bizplan-backend/internal/platform/logger"
	"github.com/yungbote/bizplan-backend/internal/platform/vectorstore"
)

var errNoEmbedder = errors.New("chromemdb: documents must carry precomputed embeddings")

// Store is an embedded vector store backed by chromem-go. With an empty
// path the database lives in memory only.
type Store struct {
	log *logger.Logger
	db  *chromem.DB
}

func Open(log *logger.Logger, path string) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	path = strings.TrimSpace(path)
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", path, err)
		}
	}
	log.Info("chromem vector store opened", "path", path, "persistent", path != "")
	return &Store{log: log.With("service", "ChromemStore"), db: db}, nil
}

func noEmbed(context.Context, string) ([]float32, error) { return nil, errNoEmbedder }

func (s *Store) Recreate(ctx context.Context, collection string, dim int) error {
	if err := s.db.DeleteCollection(collection); err != nil {
		return fmt.Errorf("drop collection %s: %w", collection, err)
	}
	if _, err := s.db.GetOrCreateCollection(collection, map[string]string{"hnsw:space": "cosine"}, noEmbed); err != nil {
		return fmt.Errorf("create collection %s: %w", collection, err)
	}
	s.log.Debug("collection recreated", "collection", collection, "dim", dim)
	return nil
}

func (s *Store) collection(name string) (*chromem.Collection, error) {
	c := s.db.GetCollection(name, noEmbed)
	if c == nil {
		return nil, fmt.Errorf("collection %s does not exist", name)
	}
	return c, nil
}

func (s *Store) Upsert(ctx context.Context, collection string, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(records))
	vectors := make([][]float32, 0, len(records))
	metadatas := make([]map[string]string, 0, len(records))
	contents := make([]string, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.ID) == "" || len(r.Vector) == 0 {
			return fmt.Errorf("record %q: id and vector are required", r.ID)
		}
		ids = append(ids, r.ID)
		vectors = append(vectors, r.Vector)
		metadatas = append(metadatas, stringify(r.Metadata))
		contents = append(contents, r.Text)
	}
	if err := c.Add(ctx, ids, vectors, metadatas, contents); err != nil {
		return fmt.Errorf("upsert into %s: %w", collection, err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, vector []float32, n int, where map[string]any) ([]vectorstore.Match, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	// chromem rejects nResults larger than the collection.
	if count := c.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}
	res, err := c.QueryEmbedding(ctx, vector, n, stringify(where), nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	out := make([]vectorstore.Match, 0, len(res))
	for _, r := range res {
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		out = append(out, vectorstore.Match{
			ID:       r.ID,
			Text:     r.Content,
			Metadata: meta,
			Distance: 1 - float64(r.Similarity),
		})
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, collection string) error {
	return s.db.DeleteCollection(collection)
}

func stringify(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v == nil {
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}
