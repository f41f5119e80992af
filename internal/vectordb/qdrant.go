package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// QdrantConfig holds connection settings for QdrantBackend.
type QdrantConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// QdrantBackend implements Backend against the Qdrant REST API.
type QdrantBackend struct {
	url    string
	apiKey string
	client *http.Client
}

// NewQdrantBackend creates a REST client for the Qdrant server at cfg.URL.
func NewQdrantBackend(cfg QdrantConfig) *QdrantBackend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &QdrantBackend{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (q *QdrantBackend) Name() string { return "qdrant" }

type qdrantVectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

func (q *QdrantBackend) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors json.RawMessage `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	status, err := q.do(ctx, http.MethodGet, q.collectionURL(name), nil, &resp)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	params, err := parseVectorParams(resp.Result.Config.Params.Vectors)
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", name, err)
	}
	return &CollectionInfo{Dimension: params.Size, Distance: params.Distance}, nil
}

// parseVectorParams accepts both the single unnamed vector form and the named
// form ({"name": {...}}), taking the first entry of the latter.
func parseVectorParams(raw json.RawMessage) (qdrantVectorParams, error) {
	var single qdrantVectorParams
	if err := json.Unmarshal(raw, &single); err == nil && single.Size > 0 {
		return single, nil
	}
	var named map[string]qdrantVectorParams
	if err := json.Unmarshal(raw, &named); err != nil {
		return qdrantVectorParams{}, fmt.Errorf("unrecognized vector params: %s", string(raw))
	}
	for _, p := range named {
		return p, nil
	}
	return qdrantVectorParams{}, fmt.Errorf("collection has no vector params")
}

func (q *QdrantBackend) CreateCollection(ctx context.Context, name string, dimension int) error {
	body := map[string]any{
		"vectors": qdrantVectorParams{Size: dimension, Distance: DistanceCosine},
	}
	_, err := q.do(ctx, http.MethodPut, q.collectionURL(name), body, nil)
	return err
}

type qdrantPoint struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Chunk     `json:"payload"`
}

func (q *QdrantBackend) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body := struct {
		Points []qdrantPoint `json:"points"`
	}{Points: make([]qdrantPoint, len(points))}
	for i, p := range points {
		body.Points[i] = qdrantPoint{ID: p.ID, Vector: p.Vector, Payload: p.Chunk}
	}
	_, err := q.do(ctx, http.MethodPut, q.collectionURL(name)+"/points?wait=true", body, nil)
	return err
}

func docFilter(docID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": "doc_id", "match": map[string]any{"value": docID}},
		},
	}
}

func (q *QdrantBackend) Search(ctx context.Context, name string, vector []float32, filter Filter, limit int) ([]Hit, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if filter.DocID != "" {
		req["filter"] = docFilter(filter.DocID)
	}

	var resp struct {
		Result []struct {
			ID      any     `json:"id"`
			Score   float32 `json:"score"`
			Payload Chunk   `json:"payload"`
		} `json:"result"`
	}
	status, err := q.do(ctx, http.MethodPost, q.collectionURL(name)+"/points/search", req, &resp)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, len(resp.Result))
	for i, r := range resp.Result {
		hits[i] = Hit{ID: fmt.Sprint(r.ID), Score: r.Score, Chunk: r.Payload}
	}
	return hits, nil
}

func (q *QdrantBackend) DeleteByDocID(ctx context.Context, name string, docID string) error {
	body := map[string]any{"filter": docFilter(docID)}
	_, err := q.do(ctx, http.MethodPost, q.collectionURL(name)+"/points/delete?wait=true", body, nil)
	return err
}

func (q *QdrantBackend) Count(ctx context.Context, name string) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if _, err := q.do(ctx, http.MethodPost, q.collectionURL(name)+"/points/count", map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (q *QdrantBackend) collectionURL(name string) string {
	return q.url + "/collections/" + url.PathEscape(name)
}

// do sends a JSON request and decodes the response into out when non-nil.
// The HTTP status is returned even on error so callers can treat 404 specially.
func (q *QdrantBackend) do(ctx context.Context, method, endpoint string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshalling qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("qdrant %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s: %s", method, endpoint, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding qdrant response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
