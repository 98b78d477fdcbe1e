package domain

import (
	"net/url"
	"path"
	"strings"
	"time"
)

// Paper is a search result from the external paper service.
type Paper struct {
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Authors   []string `json:"authors"`
	Published string   `json:"published"`
	SourceID  string   `json:"source_id"`
	PDFURL    string   `json:"pdf_url,omitempty"`
}

// Chunk is one indexable segment of a paper.
type Chunk struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

type PaperStatus string

const (
	PaperIndexed    PaperStatus = "indexed"
	PaperDownloaded PaperStatus = "downloaded"
)

// PaperRecord is the catalog view of a paper that reached the knowledge store.
type PaperRecord struct {
	Paper
	Status     PaperStatus `json:"status"`
	ChunkCount int         `json:"chunk_count"`
	PDFPath    string      `json:"pdf_path,omitempty"`
	PDFPages   int         `json:"pdf_pages,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// PDFFileName derives a storage key from a PDF url. Everything after /pdf/
// becomes the key with slashes folded to underscores, so archive-prefixed ids
// like cs/0105010v1 stay distinct. Other urls keep their basename.
func PDFFileName(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return "downloaded.pdf"
	}
	p := parsed.Path
	if idx := strings.Index(p, "/pdf/"); idx >= 0 {
		id := strings.Trim(p[idx+len("/pdf/"):], "/")
		id = strings.TrimSuffix(id, ".pdf")
		if id != "" {
			return strings.ReplaceAll(id, "/", "_") + ".pdf"
		}
	}
	name := path.Base(p)
	if strings.HasSuffix(name, ".pdf") {
		return name
	}
	if name == "" || name == "." || name == "/" {
		return "downloaded.pdf"
	}
	return name + ".pdf"
}
