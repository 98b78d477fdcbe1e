package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/core/ports"
	"github.com/kirillkom/scholar-rag/internal/core/workflow"
)

// IngestUseCase seeds the knowledge store for a topic by running the
// search, filter and add nodes without asking a question.
type IngestUseCase struct {
	graph  *workflow.Graph
	store  ports.KnowledgeStore
	events ports.IndexEventPublisher
}

func NewIngestUseCase(
	graph *workflow.Graph,
	store ports.KnowledgeStore,
	events ports.IndexEventPublisher,
) *IngestUseCase {
	return &IngestUseCase{
		graph:  graph,
		store:  store,
		events: events,
	}
}

func (uc *IngestUseCase) Ingest(ctx context.Context, topic string) (*domain.IngestResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest", errors.New("topic is required"))
	}

	before, err := uc.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count store before ingest: %w", err)
	}

	state := domain.NewState(topic)
	state.NeedsContext = true

	if err := uc.graph.Exec(ctx, domain.NodeSearchExternal, state); err != nil {
		return nil, err
	}
	found := len(state.CandidatePapers)

	if found > 0 {
		if err := uc.graph.Exec(ctx, domain.NodeFilterPapers, state); err != nil {
			return nil, err
		}
	}
	kept := len(state.CandidatePapers)

	if kept > 0 {
		if err := uc.graph.Exec(ctx, domain.NodeAddToStore, state); err != nil {
			return nil, err
		}
	}

	after, err := uc.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count store after ingest: %w", err)
	}
	publishIndexed(ctx, uc.events, state.Indexed)

	indexed := state.Indexed
	if indexed == nil {
		indexed = []domain.Paper{}
	}
	slog.InfoContext(ctx, "ingest_completed",
		"found", found,
		"kept", kept,
		"indexed", len(indexed),
		"store_before", before,
		"store_after", after,
	)
	return &domain.IngestResult{
		Topic:       topic,
		Found:       found,
		Kept:        kept,
		Indexed:     indexed,
		StoreBefore: before,
		StoreAfter:  after,
	}, nil
}
