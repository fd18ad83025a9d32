package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/bizplan-backend/internal/platform/logger"
	"github.com/yungbote/bizplan-backend/internal/platform/vectorstore"
)

const (
	payloadRecordIDKey = "_record_id"
	payloadTextKey     = "_text"
	maxErrorBodyBytes  = 1024
)

var pointIDNamespace = uuid.MustParse("6a0c7a55-4a59-4d0c-9f3e-2f1d6f0b7e21")

// VectorStore talks to Qdrant's REST API. One Qdrant collection per
// logical collection, cosine distance.
type VectorStore struct {
	log     *logger.Logger
	baseURL string
	apiKey  string
	http    *http.Client
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type searchItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

func NewVectorStore(log *logger.Logger, cfg Config) (*VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &VectorStore{
		log:     log.With("service", "QdrantVectorStore"),
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		http:    &http.Client{Timeout: timeout},
	}
	log.Info("Qdrant vector store selected", "url", s.baseURL)
	return s, nil
}

// Ready checks the /readyz endpoint.
func (s *VectorStore) Ready(ctx context.Context) error {
	const op = "ready"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, "", OperationErrorTransportFailed, "build ready request failed", err)
	}
	s.authorize(req)
	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{Code: OperationErrorQueryFailed, Operation: op, StatusCode: resp.StatusCode}
	}
	return nil
}

func (s *VectorStore) Recreate(ctx context.Context, collection string, dim int) error {
	const op = "recreate"
	if dim <= 0 {
		return opErr(op, collection, OperationErrorValidation, "vector dimension must be positive", nil)
	}
	if err := s.Delete(ctx, collection); err != nil {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": "Cosine"},
	}
	return s.doJSON(ctx, op, collection, http.MethodPut, collectionPath(collection, ""), body, nil)
}

func (s *VectorStore) Delete(ctx context.Context, collection string) error {
	err := s.doJSON(ctx, "delete", collection, http.MethodDelete, collectionPath(collection, ""), nil, nil)
	var oe *OperationError
	if errors.As(err, &oe) && oe.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

func (s *VectorStore) Upsert(ctx context.Context, collection string, records []vectorstore.Record) error {
	const op = "upsert"
	if len(records) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(records))
	for _, r := range records {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return opErr(op, collection, OperationErrorValidation, "record id is required", nil)
		}
		if len(r.Vector) == 0 {
			return opErr(op, collection, OperationErrorValidation, fmt.Sprintf("record %q has empty vector", id), nil)
		}
		payload := make(map[string]any, len(r.Metadata)+2)
		for k, v := range r.Metadata {
			payload[k] = v
		}
		payload[payloadRecordIDKey] = id
		payload[payloadTextKey] = r.Text
		points = append(points, map[string]any{
			"id":      pointID(collection, id),
			"vector":  r.Vector,
			"payload": payload,
		})
	}
	return s.doJSON(ctx, op, collection, http.MethodPut, collectionPath(collection, "/points?wait=true"), map[string]any{"points": points}, nil)
}

func (s *VectorStore) Query(ctx context.Context, collection string, vector []float32, n int, where map[string]any) ([]vectorstore.Match, error) {
	const op = "query"
	if len(vector) == 0 {
		return nil, opErr(op, collection, OperationErrorValidation, "query vector required", nil)
	}
	if n <= 0 {
		n = 10
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        n,
		"with_payload": true,
		"with_vector":  false,
	}
	if f := equalityFilter(where); f != nil {
		req["filter"] = f
	}
	var items []searchItem
	if err := s.doJSON(ctx, op, collection, http.MethodPost, collectionPath(collection, "/points/search"), req, &items); err != nil {
		return nil, err
	}

	out := make([]vectorstore.Match, 0, len(items))
	for _, it := range items {
		id, _ := it.Payload[payloadRecordIDKey].(string)
		if id == "" {
			id = decodePointID(it.ID)
		}
		text, _ := it.Payload[payloadTextKey].(string)
		meta := make(map[string]any, len(it.Payload))
		for k, v := range it.Payload {
			if k == payloadRecordIDKey || k == payloadTextKey {
				continue
			}
			meta[k] = v
		}
		out = append(out, vectorstore.Match{
			ID:       id,
			Text:     text,
			Metadata: meta,
			Distance: 1 - it.Score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

func equalityFilter(where map[string]any) map[string]any {
	if len(where) == 0 {
		return nil
	}
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	must := make([]any, 0, len(keys))
	for _, k := range keys {
		must = append(must, map[string]any{
			"key":   k,
			"match": map[string]any{"value": where[k]},
		})
	}
	return map[string]any{"must": must}
}

func (s *VectorStore) authorize(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

func (s *VectorStore) doJSON(ctx context.Context, op, collection, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, collection, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, collection, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, collection, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return opErr(op, collection, OperationErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			Collection: collection,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("body=%q", truncateBody(raw)),
		}
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, collection, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if msg := parseEnvelopeStatus(env.Status); msg != "" {
		return &OperationError{Code: OperationErrorQueryFailed, Operation: op, Collection: collection, StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return opErr(op, collection, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, collection string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, collection, OperationErrorTimeout, "qdrant request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, collection, OperationErrorTimeout, "qdrant request timed out", err)
	}
	return opErr(op, collection, OperationErrorTransportFailed, "qdrant request failed", err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if strings.EqualFold(str, "ok") || strings.EqualFold(str, "acknowledged") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", str)
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && strings.TrimSpace(obj.Error) != "" {
		return strings.TrimSpace(obj.Error)
	}
	return "qdrant status=" + status
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

// Qdrant point ids must be UUIDs or integers; record ids are hashed into a
// stable UUID per collection.
func pointID(collection, recordID string) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(collection+"|"+recordID)).String()
}

func collectionPath(collection, suffix string) string {
	return "/collections/" + collection + suffix
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return fmt.Sprintf("%d", n)
	}
	return strings.TrimSpace(string(raw))
}
