package memory

import (
	"context"
	"testing"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/embedding/hashing"
)

func TestQueryEmptyStoreReturnsWellFormedBundle(t *testing.T) {
	bundle, err := New(hashing.New(32)).Query(context.Background(), "nash", 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if !bundle.Empty() || bundle.Metadata == nil || bundle.IDs == nil || bundle.Distances == nil {
		t.Fatalf("expected empty but non-nil lists, got %#v", bundle)
	}
}

func TestAddIsIdempotentByID(t *testing.T) {
	store := New(hashing.New(256))
	ctx := context.Background()
	docs := []string{"Nash equilibrium strategy", "Auction mechanism design"}
	metas := []map[string]any{{"title": "A"}, {"title": "B"}}
	ids := []string{"A_chunk_0", "B_chunk_0"}

	if err := store.Add(ctx, docs, metas, ids); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := store.Add(ctx, []string{"Nash equilibrium strategy revised"}, []map[string]any{{"title": "A2"}}, ids[:1]); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	count, _ := store.Count(ctx)
	if count != 2 {
		t.Fatalf("expected count 2 after upsert, got %d", count)
	}

	bundle, err := store.Query(ctx, "nash equilibrium", 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(bundle.IDs) != 2 || bundle.IDs[0] != "A_chunk_0" {
		t.Fatalf("expected nash chunk ranked first, got %#v", bundle.IDs)
	}
	if bundle.Metadata[0]["title"] != "A2" {
		t.Fatalf("expected last write to win, got %#v", bundle.Metadata[0])
	}
	if bundle.Distances[0] > bundle.Distances[1] {
		t.Fatalf("expected ascending distances, got %#v", bundle.Distances)
	}
}

func TestQueryLimitsToK(t *testing.T) {
	store := New(hashing.New(32))
	ctx := context.Background()
	_ = store.Add(ctx, []string{"a", "b", "c", "d"}, []map[string]any{{}, {}, {}, {}}, []string{"1", "2", "3", "4"})

	bundle, _ := store.Query(ctx, "a", 3)
	if len(bundle.Documents) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(bundle.Documents))
	}
}

func TestAddRejectsMismatchedLengths(t *testing.T) {
	err := New(hashing.New(8)).Add(context.Background(), []string{"a", "b"}, []map[string]any{{}}, []string{"a"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
