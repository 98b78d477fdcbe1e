package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/core/ports"
)

// ProcessPaperUseCase downloads and validates the PDF of an indexed paper.
type ProcessPaperUseCase struct {
	catalog    ports.PaperCatalog
	downloader ports.PDFDownloader
	storage    ports.ObjectStorage
	inspector  ports.PDFInspector
}

func NewProcessPaperUseCase(
	catalog ports.PaperCatalog,
	downloader ports.PDFDownloader,
	storage ports.ObjectStorage,
	inspector ports.PDFInspector,
) *ProcessPaperUseCase {
	return &ProcessPaperUseCase{
		catalog:    catalog,
		downloader: downloader,
		storage:    storage,
		inspector:  inspector,
	}
}

func (uc *ProcessPaperUseCase) ProcessPaper(ctx context.Context, sourceID string) error {
	if strings.TrimSpace(sourceID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "process paper", errors.New("source id is required"))
	}

	paper, err := uc.catalog.GetBySourceID(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("fetch paper by source id: %w", err)
	}
	if strings.TrimSpace(paper.PDFURL) == "" {
		slog.InfoContext(ctx, "paper_pdf_skipped", "source_id", sourceID, "reason", "no pdf url")
		return nil
	}

	key, pages, err := uc.fetchPDF(ctx, paper.PDFURL)
	if err != nil {
		if failErr := uc.catalog.RecordPDFError(ctx, sourceID, err.Error()); failErr != nil {
			return fmt.Errorf("%w; record pdf error: %v", err, failErr)
		}
		return err
	}

	if err := uc.catalog.RecordPDF(ctx, sourceID, key, pages); err != nil {
		return fmt.Errorf("record pdf: %w", err)
	}
	slog.InfoContext(ctx, "paper_pdf_stored", "source_id", sourceID, "key", key, "pages", pages)
	return nil
}

func (uc *ProcessPaperUseCase) fetchPDF(ctx context.Context, pdfURL string) (string, int, error) {
	key := domain.PDFFileName(pdfURL)

	body, err := uc.downloader.Download(ctx, pdfURL)
	if err != nil {
		return "", 0, fmt.Errorf("download pdf: %w", err)
	}
	defer body.Close()

	if err := uc.storage.Save(ctx, key, body); err != nil {
		return "", 0, fmt.Errorf("save pdf: %w", err)
	}

	pages, err := uc.inspector.PageCount(ctx, key)
	if err != nil {
		return "", 0, fmt.Errorf("inspect pdf: %w", err)
	}
	return key, pages, nil
}
