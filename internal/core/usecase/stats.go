package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/core/ports"
)

type StatsUseCase struct {
	store   ports.KnowledgeStore
	catalog ports.PaperCatalog
}

// NewStatsUseCase reports store size; catalog may be nil.
func NewStatsUseCase(store ports.KnowledgeStore, catalog ports.PaperCatalog) *StatsUseCase {
	return &StatsUseCase{store: store, catalog: catalog}
}

func (uc *StatsUseCase) Stats(ctx context.Context) (domain.StoreStats, error) {
	chunks, err := uc.store.Count(ctx)
	if err != nil {
		return domain.StoreStats{}, fmt.Errorf("count chunks: %w", err)
	}
	stats := domain.StoreStats{Chunks: chunks}
	if uc.catalog != nil {
		papers, err := uc.catalog.Count(ctx)
		if err != nil {
			return domain.StoreStats{}, fmt.Errorf("count papers: %w", err)
		}
		stats.Papers = papers
	}
	return stats, nil
}
