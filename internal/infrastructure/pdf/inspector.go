package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/core/ports"
)

// Inspector validates stored PDFs by parsing their page tree.
type Inspector struct {
	storage ports.ObjectStorage
}

func NewInspector(storage ports.ObjectStorage) *Inspector {
	return &Inspector{storage: storage}
}

func (i *Inspector) PageCount(ctx context.Context, key string) (int, error) {
	reader, err := i.storage.Open(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("open stored pdf: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return 0, fmt.Errorf("read stored pdf: %w", err)
	}
	return PageCount(raw)
}

// PageCount parses raw PDF bytes and reports the number of pages.
func PageCount(raw []byte) (pages int, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(raw, " \r\n\t"), []byte("%PDF-")) {
		return 0, domain.WrapError(domain.ErrInvalidInput, "inspect pdf", fmt.Errorf("missing %%PDF header"))
	}
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, domain.WrapError(domain.ErrInvalidInput, "inspect pdf", fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "inspect pdf", err)
	}
	n := r.NumPage()
	if n <= 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "inspect pdf", fmt.Errorf("pdf has no pages"))
	}
	return n, nil
}
