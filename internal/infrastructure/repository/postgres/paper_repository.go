package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

type PaperRepository struct {
	db *sql.DB
}

func NewPaperRepository(db *sql.DB) *PaperRepository {
	return &PaperRepository{db: db}
}

const paperColumns = `source_id, title, abstract, authors, published, pdf_url, status, chunk_count, pdf_path, pdf_pages, error_message, created_at, updated_at`

func (r *PaperRepository) MarkIndexed(ctx context.Context, paper domain.Paper, chunkCount int) error {
	authorsJSON, err := json.Marshal(paper.Authors)
	if err != nil {
		return fmt.Errorf("marshal authors: %w", err)
	}
	if paper.Authors == nil {
		authorsJSON = []byte("[]")
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
INSERT INTO papers (source_id, title, abstract, authors, published, pdf_url, status, chunk_count, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
ON CONFLICT (source_id) DO UPDATE
SET title = EXCLUDED.title,
	abstract = EXCLUDED.abstract,
	authors = EXCLUDED.authors,
	published = EXCLUDED.published,
	pdf_url = EXCLUDED.pdf_url,
	chunk_count = EXCLUDED.chunk_count,
	updated_at = EXCLUDED.updated_at
`,
		paper.SourceID, paper.Title, paper.Abstract, authorsJSON, paper.Published, paper.PDFURL,
		string(domain.PaperIndexed), chunkCount, now,
	)
	if err != nil {
		return fmt.Errorf("upsert paper: %w", err)
	}
	return nil
}

func (r *PaperRepository) GetBySourceID(ctx context.Context, sourceID string) (*domain.PaperRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE source_id = $1`, sourceID)
	rec, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get paper", fmt.Errorf("paper %s", sourceID))
		}
		return nil, fmt.Errorf("scan paper: %w", err)
	}
	return rec, nil
}

func (r *PaperRepository) List(ctx context.Context, limit int) ([]domain.PaperRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+paperColumns+` FROM papers ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PaperRecord, 0, limit)
	for rows.Next() {
		rec, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate papers: %w", err)
	}
	return out, nil
}

func (r *PaperRepository) RecordPDF(ctx context.Context, sourceID, path string, pages int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE papers
SET pdf_path = $2, pdf_pages = $3, status = $4, error_message = '', updated_at = $5
WHERE source_id = $1
`, sourceID, path, pages, string(domain.PaperDownloaded), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record paper pdf: %w", err)
	}
	return requireAffected(res, "record paper pdf", sourceID)
}

func (r *PaperRepository) RecordPDFError(ctx context.Context, sourceID, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE papers
SET error_message = $2, updated_at = $3
WHERE source_id = $1
`, sourceID, errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record paper pdf error: %w", err)
	}
	return requireAffected(res, "record paper pdf error", sourceID)
}

func (r *PaperRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count papers: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (*domain.PaperRecord, error) {
	var (
		rec        domain.PaperRecord
		authorsRaw []byte
		status     string
		published  sql.NullString
		pdfURL     sql.NullString
		pdfPath    sql.NullString
		errMessage sql.NullString
	)
	err := row.Scan(
		&rec.SourceID, &rec.Title, &rec.Abstract, &authorsRaw, &published, &pdfURL, &status,
		&rec.ChunkCount, &pdfPath, &rec.PDFPages, &errMessage, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(authorsRaw) > 0 {
		if err := json.Unmarshal(authorsRaw, &rec.Authors); err != nil {
			return nil, fmt.Errorf("unmarshal authors: %w", err)
		}
	}
	rec.Published = published.String
	rec.PDFURL = pdfURL.String
	rec.PDFPath = pdfPath.String
	rec.Error = errMessage.String
	rec.Status = domain.PaperStatus(status)
	return &rec, nil
}

func requireAffected(res sql.Result, operation, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if n == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("paper %s", id))
	}
	return nil
}
