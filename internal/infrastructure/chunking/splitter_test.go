package chunking

import (
	"strings"
	"testing"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	s := NewSplitter(1000, 200)
	chunks := s.Split("  A short   abstract\n\nwith  spacing.  ")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "A short abstract with spacing." {
		t.Fatalf("expected collapsed whitespace, got %q", chunks[0])
	}
}

func TestSplitEmptyText(t *testing.T) {
	if chunks := NewDefaultSplitter().Split(" \n\t "); len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %#v", chunks)
	}
}

func TestSplitBreaksAtSentenceBoundaryWithOverlap(t *testing.T) {
	s := NewSplitter(50, 10)
	text := strings.Repeat("Players choose strategies. ", 6)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 50 {
			t.Fatalf("chunk %d exceeds size: %d", i, len([]rune(c)))
		}
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Fatalf("expected first chunk to end at a sentence boundary, got %q", chunks[0])
	}
	tail := chunks[0][len(chunks[0])-5:]
	if !strings.Contains(chunks[1], tail) {
		t.Fatalf("expected overlap between chunks: %q / %q", chunks[0], chunks[1])
	}
}

func TestSplitWithoutBoundaryUsesRawOffset(t *testing.T) {
	s := NewSplitter(20, 5)
	chunks := s.Split(strings.Repeat("x", 45))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %#v", len(chunks), chunks)
	}
	if len(chunks[0]) != 20 {
		t.Fatalf("expected raw cut at 20, got %d", len(chunks[0]))
	}
}

func TestNewSplitterNormalizesArguments(t *testing.T) {
	s := NewSplitter(0, -1)
	if s.chunkSize != 1000 || s.overlap != 0 {
		t.Fatalf("unexpected defaults: %#v", s)
	}
	s = NewSplitter(100, 100)
	if s.overlap >= s.chunkSize {
		t.Fatalf("expected overlap below chunk size, got %#v", s)
	}
}

func TestZeroValueSplitterTerminates(t *testing.T) {
	var s Splitter
	text := strings.Repeat("word ", 500)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected default window to split long text, got %d chunks", len(chunks))
	}
	for _, c := range chunks {
		if n := len([]rune(c)); n > defaultChunkSize {
			t.Fatalf("chunk exceeds default size: %d", n)
		}
	}
}

func TestChunkPaperShortAbstract(t *testing.T) {
	c := NewPaperChunker(nil)
	chunks, err := c.ChunkPaper(domain.Paper{
		Title:     "Nash Equilibria",
		Abstract:  "Short abstract.",
		Authors:   []string{"Ann", "Bob"},
		Published: "2020-01-02",
		SourceID:  "http://arxiv.org/abs/2001.00001v1",
	})
	if err != nil {
		t.Fatalf("ChunkPaper() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected exactly one chunk, got %d", len(chunks))
	}
	c0 := chunks[0]
	if c0.ID != "http://arxiv.org/abs/2001.00001v1_chunk_0" {
		t.Fatalf("unexpected id %q", c0.ID)
	}
	if c0.Text != "Title: Nash Equilibria Abstract: Short abstract." {
		t.Fatalf("unexpected text %q", c0.Text)
	}
	if c0.Metadata["authors"] != "Ann, Bob" || c0.Metadata["chunk_index"] != 0 {
		t.Fatalf("unexpected metadata %#v", c0.Metadata)
	}
	if _, ok := c0.Metadata["pdf_url"]; ok {
		t.Fatalf("expected no pdf_url when paper has none")
	}
}

func TestChunkPaperLongAbstractSharesMetadata(t *testing.T) {
	c := NewPaperChunker(NewDefaultSplitter())
	chunks, err := c.ChunkPaper(domain.Paper{
		Title:    "Repeated Games",
		Abstract: strings.Repeat("We analyse repeated interaction between players. ", 30),
		SourceID: "X",
		PDFURL:   "http://arxiv.org/pdf/X",
	})
	if err != nil {
		t.Fatalf("ChunkPaper() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ID != "X_chunk_0" || chunks[1].ID != "X_chunk_1" {
		t.Fatalf("unexpected ids %q %q", chunks[0].ID, chunks[1].ID)
	}
	for _, ch := range chunks[:2] {
		if ch.Metadata["pdf_url"] != "http://arxiv.org/pdf/X" {
			t.Fatalf("expected shared pdf url, got %#v", ch.Metadata)
		}
	}
	if chunks[1].Metadata["chunk_index"] != 1 {
		t.Fatalf("unexpected chunk index %#v", chunks[1].Metadata["chunk_index"])
	}
}

func TestChunkPaperRequiresSourceID(t *testing.T) {
	_, err := NewPaperChunker(nil).ChunkPaper(domain.Paper{Title: "t"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
