package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

func seededCatalog() *catalogFake {
	c := newCatalogFake()
	for _, p := range gamePapers() {
		_ = c.MarkIndexed(context.Background(), p, 1)
	}
	return c
}

func TestProcessPaperStoresAndRecordsPDF(t *testing.T) {
	catalog := seededCatalog()
	downloader := &downloaderFake{body: "%PDF-1.4"}
	storage := &storageFake{}
	uc := NewProcessPaperUseCase(catalog, downloader, storage, &inspectorFake{pages: 12})

	if err := uc.ProcessPaper(context.Background(), "http://arxiv.org/abs/2001.00001v1"); err != nil {
		t.Fatalf("ProcessPaper() error = %v", err)
	}
	if storage.files["2001.00001v1.pdf"] != "%PDF-1.4" {
		t.Fatalf("expected pdf stored under derived key, got %#v", storage.files)
	}
	rec := catalog.records["http://arxiv.org/abs/2001.00001v1"]
	if rec.Status != domain.PaperDownloaded || rec.PDFPages != 12 || rec.PDFPath != "2001.00001v1.pdf" {
		t.Fatalf("unexpected catalog record %#v", rec)
	}
}

func TestProcessPaperSkipsMissingPDFURL(t *testing.T) {
	downloader := &downloaderFake{}
	uc := NewProcessPaperUseCase(seededCatalog(), downloader, &storageFake{}, &inspectorFake{})

	if err := uc.ProcessPaper(context.Background(), "http://arxiv.org/abs/2103.00002v1"); err != nil {
		t.Fatalf("ProcessPaper() error = %v", err)
	}
	if len(downloader.urls) != 0 {
		t.Fatalf("expected no download attempt")
	}
}

func TestProcessPaperRecordsDownloadFailure(t *testing.T) {
	catalog := seededCatalog()
	uc := NewProcessPaperUseCase(catalog, &downloaderFake{err: errors.New("timeout")}, &storageFake{}, &inspectorFake{})

	err := uc.ProcessPaper(context.Background(), "http://arxiv.org/abs/2001.00001v1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if catalog.pdfErrors["http://arxiv.org/abs/2001.00001v1"] == "" {
		t.Fatalf("expected pdf error recorded")
	}
}

func TestProcessPaperRecordsInvalidPDF(t *testing.T) {
	catalog := seededCatalog()
	inspector := &inspectorFake{err: domain.WrapError(domain.ErrInvalidInput, "inspect pdf", errors.New("missing header"))}
	uc := NewProcessPaperUseCase(catalog, &downloaderFake{body: "<html>"}, &storageFake{}, inspector)

	err := uc.ProcessPaper(context.Background(), "http://arxiv.org/abs/2001.00001v1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if catalog.records["http://arxiv.org/abs/2001.00001v1"].Status != domain.PaperIndexed {
		t.Fatalf("expected status unchanged on failure")
	}
}

func TestProcessPaperUnknownSource(t *testing.T) {
	uc := NewProcessPaperUseCase(newCatalogFake(), &downloaderFake{}, &storageFake{}, &inspectorFake{})
	err := uc.ProcessPaper(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
