package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

func TestRunRepositoryRecordRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	run := domain.RunRecord{
		ID:          "run-1",
		Question:    "What is a Nash equilibrium?",
		Answer:      "A stable profile.",
		Path:        []domain.Node{domain.NodeNeedsContext, domain.NodeGenerateAnswer},
		Iterations:  0,
		PapersAdded: 0,
		Duration:    1500 * time.Millisecond,
		CreatedAt:   created,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO query_runs")).
		WithArgs("run-1", run.Question, run.Answer, []byte(`["needs_context","generate_answer"]`),
			0, 0, "", int64(1500), created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewRunRepository(db).RecordRun(context.Background(), run); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunRepositoryListRuns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM query_runs")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "question", "answer", "path", "iterations", "papers_added", "error_message", "duration_ms", "created_at",
		}).AddRow("run-1", "q", nil, []byte(`["needs_context","add_to_store"]`), 3, 1, "iteration limit", int64(250), created))

	runs, err := NewRunRepository(db).ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	got := runs[0]
	if got.Path[1] != domain.NodeAddToStore || got.Duration != 250*time.Millisecond || got.Error != "iteration limit" {
		t.Fatalf("unexpected run %#v", got)
	}
}
