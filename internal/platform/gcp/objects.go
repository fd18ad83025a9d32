package gcp

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"cloud.google.com/go/storage"

	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

// ObjectReader downloads gs:// objects. The storage client is created on
// first use so deployments that never pass gs:// paths need no credentials.
type ObjectReader struct {
	log      *logger.Logger
	maxBytes int64

	once   sync.Once
	client *storage.Client
	err    error
}

func NewObjectReader(log *logger.Logger, maxBytes int64) *ObjectReader {
	if log == nil {
		log = logger.Nop()
	}
	if maxBytes <= 0 {
		maxBytes = 100 << 20
	}
	return &ObjectReader{log: log.With("service", "GCSObjectReader"), maxBytes: maxBytes}
}

// ParseURI splits gs://bucket/key.
func ParseURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("gs uri needs bucket and object: %q", uri)
	}
	return bucket, key, nil
}

func (r *ObjectReader) Read(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	r.once.Do(func() {
		r.client, r.err = storage.NewClient(context.WithoutCancel(ctx), ClientOptionsFromEnv()...)
	})
	if r.err != nil {
		return nil, fmt.Errorf("gcs client: %w", r.err)
	}
	rc, err := r.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", uri, r.maxBytes)
	}
	r.log.Debug("gcs object read", "bucket", bucket, "key", key, "bytes", len(data))
	return data, nil
}

func (r *ObjectReader) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
