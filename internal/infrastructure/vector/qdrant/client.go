// Package qdrant implements the vector store port against a Qdrant server
// over its HTTP API, with one dense and one sparse named vector per point so
// semantic and lexical retrieval hit the same collection.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/unimind/uniquery/internal/core/domain"
)

const (
	denseVectorName   = "dense"
	lexicalVectorName = "lexical"
)

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// IndexChunks replaces the document's points: prior chunks are deleted first
// so reprocessing a document never leaves orphaned vectors behind.
func (c *Client) IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.DocumentChunk, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}
	if err := c.deleteDocumentPoints(ctx, doc.ID); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  map[string]any `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID: chunk.ID,
			Vector: map[string]any{
				denseVectorName:   vectors[i],
				lexicalVectorName: encodeSparseDocument(chunk),
			},
			Payload: map[string]any{
				"document_id": chunk.DocumentID,
				"filename":    chunk.Filename,
				"chunk_index": chunk.ChunkIndex,
				"text":        chunk.Text,
				"modality":    string(chunk.Modality),
				"language":    chunk.Language,
			},
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	return c.do(ctx, http.MethodPut, path, map[string]any{"points": points}, nil, "upsert")
}

// Search runs the dense pass; scores land in SemanticScore.
func (c *Client) Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.DocumentChunk, error) {
	if len(queryVector) == 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"query":        queryVector,
		"using":        denseVectorName,
		"limit":        limit,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		reqBody["filter"] = f
	}

	points, err := c.query(ctx, reqBody, "search")
	if err != nil {
		return nil, err
	}

	out := make([]domain.DocumentChunk, 0, len(points))
	for _, p := range points {
		chunk := chunkFromPoint(p)
		chunk.SemanticScore = p.Score
		out = append(out, chunk)
	}
	return out, nil
}

// SearchLexical runs the sparse pass; scores land in KeywordScore.
func (c *Client) SearchLexical(ctx context.Context, queryText string, limit int, filter domain.SearchFilter) ([]domain.DocumentChunk, error) {
	sparse := encodeSparseQuery(queryText)
	if len(sparse.Indices) == 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"query":        sparse,
		"using":        lexicalVectorName,
		"limit":        limit,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		reqBody["filter"] = f
	}

	points, err := c.query(ctx, reqBody, "lexical search")
	if err != nil {
		return nil, err
	}

	out := make([]domain.DocumentChunk, 0, len(points))
	for _, p := range points {
		chunk := chunkFromPoint(p)
		chunk.KeywordScore = p.Score
		out = append(out, chunk)
	}
	return out, nil
}

// FetchChunks scrolls the document's points, returning only the requested
// chunk indices.
func (c *Client) FetchChunks(ctx context.Context, documentID string, indices []int) ([]domain.DocumentChunk, error) {
	if len(indices) == 0 {
		return nil, nil
	}

	values := make([]any, 0, len(indices))
	for _, idx := range indices {
		values = append(values, idx)
	}
	reqBody := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "document_id", "match": map[string]any{"value": documentID}},
				{"key": "chunk_index", "match": map[string]any{"any": values}},
			},
		},
		"limit":        len(indices),
		"with_payload": true,
	}

	var response struct {
		Result struct {
			Points []scoredPoint `json:"points"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/scroll", c.collection)
	if err := c.do(ctx, http.MethodPost, path, reqBody, &response, "scroll"); err != nil {
		return nil, err
	}

	out := make([]domain.DocumentChunk, 0, len(response.Result.Points))
	for _, p := range response.Result.Points {
		out = append(out, chunkFromPoint(p))
	}
	return out, nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			denseVectorName: map[string]any{
				"size":     vectorSize,
				"distance": "Cosine",
			},
		},
		"sparse_vectors": map[string]any{
			lexicalVectorName: map[string]any{},
		},
	}

	path := fmt.Sprintf("/collections/%s", c.collection)
	err := c.do(ctx, http.MethodPut, path, reqBody, nil, "ensure collection")
	// 409 means the collection already exists, which is fine.
	if err != nil && !isConflict(err) {
		return err
	}

	c.ensureMu.Lock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) deleteDocumentPoints(ctx context.Context, documentID string) error {
	reqBody := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "document_id", "match": map[string]any{"value": documentID}},
			},
		},
	}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", c.collection)
	return c.do(ctx, http.MethodPost, path, reqBody, nil, "delete points")
}

type scoredPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) query(ctx context.Context, reqBody map[string]any, operation string) ([]scoredPoint, error) {
	var response struct {
		Result struct {
			Points []scoredPoint `json:"points"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/query", c.collection)
	if err := c.do(ctx, http.MethodPost, path, reqBody, &response, operation); err != nil {
		return nil, err
	}
	return response.Result.Points, nil
}

type statusError struct {
	operation  string
	statusCode int
	status     string
	body       string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.operation, e.status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.operation, e.status, e.body)
}

func isConflict(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.statusCode == http.StatusConflict
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{
			operation:  operation,
			statusCode: resp.StatusCode,
			status:     resp.Status,
			body:       strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func buildFilter(filter domain.SearchFilter) map[string]any {
	var must []map[string]any
	if len(filter.Modalities) > 0 {
		values := make([]any, 0, len(filter.Modalities))
		for _, m := range filter.Modalities {
			values = append(values, string(m))
		}
		must = append(must, map[string]any{
			"key":   "modality",
			"match": map[string]any{"any": values},
		})
	}
	if filter.Language != "" {
		must = append(must, map[string]any{
			"key":   "language",
			"match": map[string]any{"value": filter.Language},
		})
	}
	if filter.DocumentID != "" {
		must = append(must, map[string]any{
			"key":   "document_id",
			"match": map[string]any{"value": filter.DocumentID},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

func chunkFromPoint(p scoredPoint) domain.DocumentChunk {
	return domain.DocumentChunk{
		ID:         getStringValue(p.ID),
		DocumentID: getStringPayload(p.Payload, "document_id"),
		Filename:   getStringPayload(p.Payload, "filename"),
		ChunkIndex: getIntPayload(p.Payload, "chunk_index"),
		Text:       getStringPayload(p.Payload, "text"),
		Modality:   domain.Modality(getStringPayload(p.Payload, "modality")),
		Language:   getStringPayload(p.Payload, "language"),
	}
}

func getStringValue(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getStringPayload(payload map[string]any, key string) string {
	return getStringValue(payload[key])
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
