package domain

// RetrievalBundle holds the parallel result lists of a knowledge store query.
// All four slices have the same length and are ordered by ascending distance.
type RetrievalBundle struct {
	Documents []string         `json:"documents"`
	Metadata  []map[string]any `json:"metadata"`
	IDs       []string         `json:"ids"`
	Distances []float64        `json:"distances"`
}

func (b RetrievalBundle) Empty() bool {
	return len(b.Documents) == 0
}

// Top returns the first n documents, or all of them when fewer exist.
func (b RetrievalBundle) Top(n int) []string {
	if n <= 0 || len(b.Documents) <= n {
		return b.Documents
	}
	return b.Documents[:n]
}

type Source struct {
	ChunkID    string  `json:"chunk_id"`
	Title      string  `json:"title"`
	SourceID   string  `json:"source_id"`
	PDFURL     string  `json:"pdf_url,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Distance   float64 `json:"distance"`
}

// Sources projects the bundle metadata into answer citations.
func (b RetrievalBundle) Sources() []Source {
	out := make([]Source, 0, len(b.IDs))
	for i, id := range b.IDs {
		src := Source{ChunkID: id}
		if i < len(b.Metadata) {
			meta := b.Metadata[i]
			src.Title = metaString(meta, "title")
			src.SourceID = metaString(meta, "source")
			src.PDFURL = metaString(meta, "pdf_url")
			src.ChunkIndex = metaInt(meta, "chunk_index")
		}
		if i < len(b.Distances) {
			src.Distance = b.Distances[i]
		}
		out = append(out, src)
	}
	return out
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func metaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
