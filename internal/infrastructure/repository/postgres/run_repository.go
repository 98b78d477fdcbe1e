package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) RecordRun(ctx context.Context, run domain.RunRecord) error {
	pathJSON, err := json.Marshal(run.Path)
	if err != nil {
		return fmt.Errorf("marshal run path: %w", err)
	}
	if run.Path == nil {
		pathJSON = []byte("[]")
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO query_runs (id, question, answer, path, iterations, papers_added, error_message, duration_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		run.ID, run.Question, run.Answer, pathJSON, run.Iterations, run.PapersAdded, run.Error,
		run.Duration.Milliseconds(), run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert query run: %w", err)
	}
	return nil
}

func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, question, answer, path, iterations, papers_added, error_message, duration_ms, created_at
FROM query_runs
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list query runs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RunRecord, 0, limit)
	for rows.Next() {
		var (
			run        domain.RunRecord
			answer     sql.NullString
			pathRaw    []byte
			errMessage sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&run.ID, &run.Question, &answer, &pathRaw, &run.Iterations, &run.PapersAdded,
			&errMessage, &durationMS, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan query run: %w", err)
		}
		if len(pathRaw) > 0 {
			if err := json.Unmarshal(pathRaw, &run.Path); err != nil {
				return nil, fmt.Errorf("unmarshal run path: %w", err)
			}
		}
		run.Answer = answer.String
		run.Error = errMessage.String
		run.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query runs: %w", err)
	}
	return out, nil
}
