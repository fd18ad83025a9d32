package indexer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
)

// ObjectReader fetches remote objects by URI (gs://bucket/key).
type ObjectReader interface {
	Read(ctx context.Context, uri string) ([]byte, error)
}

// Loader resolves an InputFile to bytes: inline bytes first, then gs://
// paths, then the local filesystem.
type Loader struct {
	Remote ObjectReader
}

func (l Loader) Load(ctx context.Context, f analysis.InputFile) ([]byte, error) {
	if len(f.Bytes) > 0 {
		return f.Bytes, nil
	}
	p := strings.TrimSpace(f.Path)
	switch {
	case p == "":
		return nil, fmt.Errorf("file %q has neither bytes nor path", f.Name())
	case strings.HasPrefix(p, "gs://"):
		if l.Remote == nil {
			return nil, fmt.Errorf("file %q: gs:// paths are not configured", f.Name())
		}
		return l.Remote.Read(ctx, p)
	default:
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		return b, nil
	}
}
