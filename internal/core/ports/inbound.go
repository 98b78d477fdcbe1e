package ports

import (
	"context"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for the retrieval-augmented answer loop.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string) (*domain.QueryResult, error)
}

// PaperIngestor seeds the knowledge store for a topic without answering a question.
type PaperIngestor interface {
	Ingest(ctx context.Context, topic string) (*domain.IngestResult, error)
}

// PaperReader is the inbound read model for the paper catalog.
type PaperReader interface {
	GetBySourceID(ctx context.Context, sourceID string) (*domain.PaperRecord, error)
	List(ctx context.Context, limit int) ([]domain.PaperRecord, error)
}

// StatsReader reports knowledge store and catalog sizes.
type StatsReader interface {
	Stats(ctx context.Context) (domain.StoreStats, error)
}

// PaperProcessor is the inbound contract for asynchronous PDF processing.
type PaperProcessor interface {
	ProcessPaper(ctx context.Context, sourceID string) error
}
