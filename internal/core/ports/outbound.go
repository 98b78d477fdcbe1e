package ports

import (
	"context"
	"io"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

// ChatModel completes a system+user prompt with free text.
type ChatModel interface {
	Complete(ctx context.Context, prompt domain.Prompt) (string, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// KnowledgeStore is the persistent semantic store the answer loop reads and grows.
// Add upserts by id; Query returns a well-formed empty bundle on an empty store.
type KnowledgeStore interface {
	Add(ctx context.Context, documents []string, metadata []map[string]any, ids []string) error
	Query(ctx context.Context, text string, k int) (domain.RetrievalBundle, error)
	Count(ctx context.Context) (int, error)
}

// PaperSearcher queries the external paper service.
type PaperSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.Paper, error)
}

// PaperChunker turns a paper into indexable chunks with stable ids.
type PaperChunker interface {
	ChunkPaper(paper domain.Paper) ([]domain.Chunk, error)
}

// PaperCatalog keeps a relational record of indexed papers.
type PaperCatalog interface {
	MarkIndexed(ctx context.Context, paper domain.Paper, chunkCount int) error
	GetBySourceID(ctx context.Context, sourceID string) (*domain.PaperRecord, error)
	List(ctx context.Context, limit int) ([]domain.PaperRecord, error)
	RecordPDF(ctx context.Context, sourceID, path string, pages int) error
	RecordPDFError(ctx context.Context, sourceID, errMessage string) error
	Count(ctx context.Context) (int, error)
}

// RunRecorder persists the trace of answered questions.
type RunRecorder interface {
	RecordRun(ctx context.Context, run domain.RunRecord) error
}

// IndexEventPublisher announces papers that reached the knowledge store.
type IndexEventPublisher interface {
	PublishPaperIndexed(ctx context.Context, sourceID string) error
}

// MessageQueue publishes/consumes paper indexing events.
type MessageQueue interface {
	IndexEventPublisher
	SubscribePaperIndexed(ctx context.Context, handler func(context.Context, string) error) error
}

// ObjectStorage stores downloaded paper files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// PDFDownloader fetches a remote PDF.
type PDFDownloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// PDFInspector validates a stored PDF without extracting its text.
type PDFInspector interface {
	PageCount(ctx context.Context, key string) (int, error)
}
