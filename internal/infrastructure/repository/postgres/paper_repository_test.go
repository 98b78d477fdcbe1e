package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

func TestPaperRepositoryMarkIndexedUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewPaperRepository(db)
	paper := domain.Paper{
		Title:     "Nash Equilibria",
		Abstract:  "Existence results.",
		Authors:   []string{"A", "B"},
		Published: "2020-01-02",
		SourceID:  "http://arxiv.org/abs/2001.00001v1",
		PDFURL:    "http://arxiv.org/pdf/2001.00001v1",
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO papers")).
		WithArgs(paper.SourceID, paper.Title, paper.Abstract, []byte(`["A","B"]`), paper.Published, paper.PDFURL,
			"indexed", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkIndexed(context.Background(), paper, 2); err != nil {
		t.Fatalf("MarkIndexed() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPaperRepositoryGetBySourceIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM papers WHERE source_id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = NewPaperRepository(db).GetBySourceID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPaperRepositoryListScansRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"source_id", "title", "abstract", "authors", "published", "pdf_url", "status",
		"chunk_count", "pdf_path", "pdf_pages", "error_message", "created_at", "updated_at",
	}).
		AddRow("id-1", "Nash", "abs", []byte(`["A"]`), "2020-01-02", "http://pdf", "downloaded",
			1, "id-1.pdf", 12, nil, now, now).
		AddRow("id-2", "Shapley", "abs", []byte(`[]`), nil, nil, "indexed",
			3, nil, 0, "download failed", now, now)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY updated_at DESC LIMIT $1")).
		WithArgs(10).
		WillReturnRows(rows)

	got, err := NewPaperRepository(db).List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Status != domain.PaperDownloaded || got[0].PDFPages != 12 || got[0].Authors[0] != "A" {
		t.Fatalf("unexpected first record %#v", got[0])
	}
	if got[1].Error != "download failed" || got[1].PDFURL != "" || got[1].ChunkCount != 3 {
		t.Fatalf("unexpected second record %#v", got[1])
	}
}

func TestPaperRepositoryRecordPDFRequiresExistingPaper(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE papers")).
		WithArgs("missing", "missing.pdf", 4, "downloaded", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPaperRepository(db).RecordPDF(context.Background(), "missing", "missing.pdf", 4)
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPaperRepositoryCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM papers")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	n, err := NewPaperRepository(db).Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5, got %d", n)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(schemaLockID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS papers")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
