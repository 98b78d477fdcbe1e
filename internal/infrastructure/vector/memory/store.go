package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/core/ports"
)

type entry struct {
	id       string
	text     string
	metadata map[string]any
	vector   []float32
}

// Store is an in-process knowledge store ranked by cosine distance.
type Store struct {
	embedder ports.Embedder

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

func New(embedder ports.Embedder) *Store {
	return &Store{
		embedder: embedder,
		entries:  make(map[string]*entry),
	}
}

func (s *Store) Add(ctx context.Context, documents []string, metadata []map[string]any, ids []string) error {
	if len(documents) != len(ids) || len(metadata) != len(ids) {
		return domain.WrapError(domain.ErrInvalidInput, "memory add",
			fmt.Errorf("documents, metadata and ids must have the same length"))
	}
	if len(ids) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, documents)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(documents) {
		return fmt.Errorf("embed documents: got %d vectors for %d documents", len(vectors), len(documents))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range ids {
		if _, ok := s.entries[id]; !ok {
			s.order = append(s.order, id)
		}
		meta := make(map[string]any, len(metadata[i]))
		for k, v := range metadata[i] {
			meta[k] = v
		}
		s.entries[id] = &entry{
			id:       id,
			text:     documents[i],
			metadata: meta,
			vector:   vectors[i],
		}
	}
	return nil
}

func (s *Store) Query(ctx context.Context, text string, k int) (domain.RetrievalBundle, error) {
	bundle := domain.RetrievalBundle{
		Documents: []string{},
		Metadata:  []map[string]any{},
		IDs:       []string{},
		Distances: []float64{},
	}
	if k <= 0 {
		return bundle, nil
	}

	s.mu.RLock()
	empty := len(s.entries) == 0
	s.mu.RUnlock()
	if empty {
		return bundle, nil
	}

	query, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return bundle, fmt.Errorf("embed query: %w", err)
	}

	type scored struct {
		e        *entry
		distance float64
	}

	s.mu.RLock()
	ranked := make([]scored, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		ranked = append(ranked, scored{e: e, distance: 1 - cosine(query, e.vector)})
	}
	s.mu.RUnlock()

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].distance < ranked[j].distance
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	for _, r := range ranked {
		bundle.Documents = append(bundle.Documents, r.e.text)
		bundle.Metadata = append(bundle.Metadata, r.e.metadata)
		bundle.IDs = append(bundle.IDs, r.e.id)
		bundle.Distances = append(bundle.Distances, r.distance)
	}
	return bundle, nil
}

func (s *Store) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
