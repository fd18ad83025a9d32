package vectorstore

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Record is one stored item: an embedding plus the text it was computed from.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// Match is a query hit. Distance is cosine distance (1 - similarity), so it
// ranges over 0..2 with 0 meaning identical direction.
type Match struct {
	ID       string
	Text     string
	Metadata map[string]any
	Distance float64
}

func (m Match) Similarity() float64 { return 1 - m.Distance }

// Store is a named-collection vector store in cosine space.
type Store interface {
	// Recreate drops the collection if it exists and creates it empty.
	Recreate(ctx context.Context, collection string, dim int) error
	Upsert(ctx context.Context, collection string, records []Record) error
	// Query returns up to n matches ordered by ascending distance. where
	// restricts results to exact metadata matches.
	Query(ctx context.Context, collection string, vector []float32, n int, where map[string]any) ([]Match, error)
	Delete(ctx context.Context, collection string) error
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)

// ProjectCollection is the per-project collection name.
func ProjectCollection(projectIdx string) string {
	id := unsafeName.ReplaceAllString(strings.TrimSpace(projectIdx), "_")
	if id == "" {
		id = "default"
	}
	return "project_" + id
}

// String reads a metadata value as a string regardless of how the backend
// stored it.
func (m Match) String(key string) string {
	v, ok := m.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int reads a metadata value as an int. Backends that only keep strings
// round-trip numbers as their decimal form.
func (m Match) Int(key string) int {
	switch v := m.Metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	default:
		return 0
	}
}

func (m Match) Bool(key string) bool {
	switch v := m.Metadata[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}
