// Package backend talks to the product backend that owns projects, analysis
// results and draft documents.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/platform/apierr"
	"github.com/yungbote/bizplan-backend/internal/platform/envutil"
	"github.com/yungbote/bizplan-backend/internal/platform/httpx"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

const (
	pathSaveResult = "/api/analysis/save-result"
	pathGetContext = "/api/analysis/get-context"
	pathDocument   = "/api/drafts/document"
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	ContextTTL time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    envutil.String("BACKEND_URL", "http://localhost:8080"),
		Timeout:    envutil.Seconds("BACKEND_TIMEOUT_SECONDS", 30*time.Second),
		ContextTTL: envutil.Seconds("BACKEND_CONTEXT_TTL_SECONDS", time.Minute),
		MaxRetries: envutil.Int("BACKEND_MAX_RETRIES", 2),
	}
}

type Client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	maxRetries int

	contexts *gocache.Cache
	inflight singleflight.Group
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		log = logger.Nop()
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("missing BACKEND_URL")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid BACKEND_URL %q: %w", base, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ttl := cfg.ContextTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		log:        log.With("service", "BackendClient"),
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: cfg.MaxRetries,
		contexts:   gocache.New(ttl, 2*ttl),
	}, nil
}

// HTTPError is a non-2xx answer from the backend.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend http %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *Client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var rdr io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
		rdr = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return resp, raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil || len(bytes.TrimSpace(raw)) == 0 {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("backend decode %s: %w", path, uErr)
			}
			return nil
		}
		var he *HTTPError
		if errors.As(err, &he) && he.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s %s: %w", method, path, apierr.ErrNotFound)
		}
		if !httpx.IsRetryableError(err) || attempt >= c.maxRetries {
			return err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 5*time.Second))
		c.log.Warn("backend request retrying", "path", path, "attempt", attempt+1, "sleep", sleepFor.String(), "error", err.Error())
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
}

type saveResultRequest struct {
	ProjectIdx        int64                       `json:"project_idx"`
	UserID            string                      `json:"user_id"`
	ExtractedFeatures []analysis.ExtractedFeature `json:"extracted_features"`
	TableOfContents   *analysis.TOC               `json:"table_of_contents"`
}

// SaveResult stores the analysis output for the project and drops any cached
// context for it.
func (c *Client) SaveResult(ctx context.Context, run *analysis.Run) error {
	body := saveResultRequest{
		ProjectIdx:        run.ProjectIdx,
		UserID:            run.UserID,
		ExtractedFeatures: run.Features,
		TableOfContents:   run.TOC,
	}
	if body.ExtractedFeatures == nil {
		body.ExtractedFeatures = []analysis.ExtractedFeature{}
	}
	if err := c.do(ctx, http.MethodPost, pathSaveResult, body, nil); err != nil {
		return fmt.Errorf("save analysis result: %w", err)
	}
	c.contexts.Delete(contextKey(run.ProjectIdx))
	c.log.Info("analysis result saved", "project_idx", run.ProjectIdx, "features", len(body.ExtractedFeatures))
	return nil
}

func contextKey(projectIdx int64) string { return strconv.FormatInt(projectIdx, 10) }

type contextEnvelope struct {
	Data *analysis.Context `json:"data"`
}

// GetContext returns the saved analysis for a project. Concurrent callers
// share one request and results are cached for the configured TTL.
func (c *Client) GetContext(ctx context.Context, projectIdx int64) (*analysis.Context, error) {
	key := contextKey(projectIdx)
	if v, ok := c.contexts.Get(key); ok {
		return v.(*analysis.Context), nil
	}
	v, err, shared := c.inflight.Do(key, func() (any, error) {
		var env contextEnvelope
		path := pathGetContext + "?" + url.Values{"projectIdx": {key}}.Encode()
		if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
			return nil, err
		}
		if env.Data == nil {
			return nil, fmt.Errorf("project %d has no analysis context: %w", projectIdx, apierr.ErrNotFound)
		}
		c.contexts.SetDefault(key, env.Data)
		return env.Data, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get context: %w", err)
	}
	c.log.Debug("analysis context fetched", "project_idx", projectIdx, "shared", shared)
	return v.(*analysis.Context), nil
}

func documentPath(userID string, projectIdx int64) string {
	return pathDocument + "?" + url.Values{"userId": {userID}, "projectIdx": {contextKey(projectIdx)}}.Encode()
}

type documentEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// GetDocument loads the author's rich-text draft document.
func (c *Client) GetDocument(ctx context.Context, userID string, projectIdx int64) (json.RawMessage, error) {
	var env documentEnvelope
	if err := c.do(ctx, http.MethodGet, documentPath(userID, projectIdx), nil, &env); err != nil {
		return nil, fmt.Errorf("get draft document: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, fmt.Errorf("draft document for project %d: %w", projectIdx, apierr.ErrNotFound)
	}
	return env.Data, nil
}

type putDocumentRequest struct {
	Document json.RawMessage `json:"document"`
}

func (c *Client) PutDocument(ctx context.Context, userID string, projectIdx int64, doc json.RawMessage) error {
	if err := c.do(ctx, http.MethodPut, documentPath(userID, projectIdx), putDocumentRequest{Document: doc}, nil); err != nil {
		return fmt.Errorf("put draft document: %w", err)
	}
	return nil
}
