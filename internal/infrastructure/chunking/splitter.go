package chunking

import (
	"strings"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	boundaryLookback    = 100
)

// Splitter cuts text into overlapping windows that prefer sentence boundaries.
// The zero value splits with the default window and no overlap.
type Splitter struct {
	chunkSize int
	overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Splitter{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

func NewDefaultSplitter() *Splitter {
	return NewSplitter(defaultChunkSize, defaultChunkOverlap)
}

// Split collapses whitespace and returns one chunk for text that fits, otherwise
// windows of at most chunkSize runes cut after the nearest '.', '!', '?' or newline
// within the last 100 runes of the window.
func (s *Splitter) Split(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	size, overlap := s.window()
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	out := make([]string, 0, len(runes)/size+2)
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = sentenceEnd(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

func (s *Splitter) window() (size, overlap int) {
	size, overlap = s.chunkSize, s.overlap
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return size, overlap
}

func sentenceEnd(runes []rune, start, end int) int {
	lookback := boundaryLookback
	if end-start < lookback {
		lookback = end - start
	}
	for i := 0; i < lookback; i++ {
		switch runes[end-i] {
		case '.', '!', '?', '\n':
			return end - i + 1
		}
	}
	return end
}
