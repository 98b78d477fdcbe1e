package chunking

import (
	"fmt"
	"strings"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

// PaperChunker turns title and abstract into chunks keyed by "<source>_chunk_<i>".
type PaperChunker struct {
	splitter *Splitter
}

func NewPaperChunker(splitter *Splitter) *PaperChunker {
	if splitter == nil {
		splitter = NewDefaultSplitter()
	}
	return &PaperChunker{splitter: splitter}
}

func (c *PaperChunker) ChunkPaper(paper domain.Paper) ([]domain.Chunk, error) {
	if strings.TrimSpace(paper.SourceID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk paper", fmt.Errorf("source id is required"))
	}

	text := fmt.Sprintf("Title: %s\n\nAbstract: %s", paper.Title, paper.Abstract)
	parts := c.splitter.Split(text)

	chunks := make([]domain.Chunk, 0, len(parts))
	for i, part := range parts {
		meta := map[string]any{
			"title":       paper.Title,
			"authors":     strings.Join(paper.Authors, ", "),
			"published":   paper.Published,
			"source":      paper.SourceID,
			"chunk_index": i,
		}
		if paper.PDFURL != "" {
			meta["pdf_url"] = paper.PDFURL
		}
		chunks = append(chunks, domain.Chunk{
			ID:       fmt.Sprintf("%s_chunk_%d", paper.SourceID, i),
			Text:     part,
			Metadata: meta,
		})
	}
	return chunks, nil
}
