package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/core/ports"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/resilience"
)

const (
	payloadText    = "text"
	payloadChunkID = "chunk_id"
)

var errCollectionMissing = errors.New("qdrant collection does not exist")

// Store is a knowledge store backed by the qdrant REST API.
// Point ids are derived from chunk ids, so re-adding a chunk overwrites it.
type Store struct {
	baseURL    string
	collection string
	embedder   ports.Embedder
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

type Option func(*Store)

func WithExecutor(executor *resilience.Executor) Option {
	return func(s *Store) {
		s.executor = executor
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Store) {
		if httpClient != nil {
			s.httpClient = httpClient
		}
	}
}

func New(baseURL, collection string, embedder ports.Embedder, opts ...Option) *Store {
	s := &Store{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PointID maps a chunk id onto the UUID space qdrant accepts.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

func (s *Store) Add(ctx context.Context, documents []string, metadata []map[string]any, ids []string) error {
	if len(documents) != len(ids) || len(metadata) != len(ids) {
		return domain.WrapError(domain.ErrInvalidInput, "qdrant add",
			fmt.Errorf("documents, metadata and ids must have the same length"))
	}
	if len(ids) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, documents)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(documents) || len(vectors[0]) == 0 {
		return fmt.Errorf("embed documents: got %d vectors for %d documents", len(vectors), len(documents))
	}

	if err := s.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(ids))
	for i, id := range ids {
		payload := make(map[string]any, len(metadata[i])+2)
		for k, v := range metadata[i] {
			payload[k] = v
		}
		payload[payloadText] = documents[i]
		payload[payloadChunkID] = id

		points = append(points, point{
			ID:      PointID(id),
			Vector:  vectors[i],
			Payload: payload,
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.baseURL, s.collection)
	return s.do(ctx, "upsert", http.MethodPut, url, map[string]any{"points": points}, nil)
}

func (s *Store) Query(ctx context.Context, text string, k int) (domain.RetrievalBundle, error) {
	bundle := emptyBundle()
	if k <= 0 {
		return bundle, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return bundle, fmt.Errorf("embed query: %w", err)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", s.baseURL, s.collection)
	err = s.do(ctx, "search", http.MethodPost, url, map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}, &searchResp)
	if errors.Is(err, errCollectionMissing) {
		return bundle, nil
	}
	if err != nil {
		return bundle, err
	}

	for _, r := range searchResp.Result {
		meta := make(map[string]any, len(r.Payload))
		for key, v := range r.Payload {
			if key == payloadText || key == payloadChunkID {
				continue
			}
			meta[key] = v
		}
		bundle.Documents = append(bundle.Documents, getStringPayload(r.Payload, payloadText))
		bundle.Metadata = append(bundle.Metadata, meta)
		bundle.IDs = append(bundle.IDs, getStringPayload(r.Payload, payloadChunkID))
		bundle.Distances = append(bundle.Distances, 1-r.Score)
	}
	return bundle, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/count", s.baseURL, s.collection)
	err := s.do(ctx, "count", http.MethodPost, url, map[string]any{"exact": true}, &countResp)
	if errors.Is(err, errCollectionMissing) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return countResp.Result.Count, nil
}

func (s *Store) ensureCollection(ctx context.Context, vectorSize int) error {
	s.ensureMu.Lock()
	if s.ensuredCollection && s.ensuredVectorSize == vectorSize {
		s.ensureMu.Unlock()
		return nil
	}
	s.ensureMu.Unlock()

	url := fmt.Sprintf("%s/collections/%s", s.baseURL, s.collection)
	err := s.do(ctx, "ensure collection", http.MethodPut, url, map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}, nil)
	if err != nil && !isStatus(err, http.StatusConflict) {
		return err
	}

	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()
	s.ensuredCollection = true
	s.ensuredVectorSize = vectorSize
	return nil
}

func (s *Store) do(ctx context.Context, operation, method, url string, payload any, out any) error {
	err := s.executor.Execute(ctx, "qdrant."+operation, func(ctx context.Context) error {
		return s.send(ctx, operation, method, url, payload, out)
	}, resilience.ClassifyHTTPError)
	if err == nil {
		return nil
	}
	if isStatus(err, http.StatusNotFound) && operation != "ensure collection" {
		return errCollectionMissing
	}
	return resilience.WrapTemporary("qdrant "+operation, err, resilience.ClassifyHTTPError)
}

func (s *Store) send(ctx context.Context, operation, method, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &resilience.HTTPStatusError{
			Service:    "qdrant",
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
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

func isStatus(err error, code int) bool {
	var statusErr *resilience.HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

func emptyBundle() domain.RetrievalBundle {
	return domain.RetrievalBundle{
		Documents: []string{},
		Metadata:  []map[string]any{},
		IDs:       []string{},
		Distances: []float64{},
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
