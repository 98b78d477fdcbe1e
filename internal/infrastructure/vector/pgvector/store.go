package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/pgvector/pgvector-go"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/core/ports"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store keeps chunks in a postgres table with a pgvector column.
// Distances are cosine distances computed by the <=> operator.
type Store struct {
	db        *sql.DB
	table     string
	dimension int
	embedder  ports.Embedder
}

func New(db *sql.DB, table string, dimension int, embedder ports.Embedder) (*Store, error) {
	if !tableName.MatchString(table) {
		return nil, domain.WrapError(domain.ErrConfiguration, "pgvector store", fmt.Errorf("invalid table name %q", table))
	}
	if dimension <= 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "pgvector store", fmt.Errorf("dimension must be positive"))
	}
	return &Store{db: db, table: table, dimension: dimension, embedder: embedder}, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS %[1]s (
	id TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	embedding vector(%[2]d) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s(created_at);
`, s.table, s.dimension)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure pgvector schema: %w", err)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, documents []string, metadata []map[string]any, ids []string) error {
	if len(documents) != len(ids) || len(metadata) != len(ids) {
		return domain.WrapError(domain.ErrInvalidInput, "pgvector add",
			fmt.Errorf("documents, metadata and ids must have the same length"))
	}
	if len(ids) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, documents)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(documents) {
		return fmt.Errorf("embed documents: got %d vectors for %d documents", len(vectors), len(documents))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := fmt.Sprintf(`
INSERT INTO %s (id, document, metadata, embedding)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE
SET document = EXCLUDED.document,
	metadata = EXCLUDED.metadata,
	embedding = EXCLUDED.embedding
`, s.table)

	for i, id := range ids {
		if len(vectors[i]) != s.dimension {
			return domain.WrapError(domain.ErrConfiguration, "pgvector add",
				fmt.Errorf("embedding dimension %d does not match column dimension %d", len(vectors[i]), s.dimension))
		}
		meta := metadata[i]
		if meta == nil {
			meta = map[string]any{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, query, id, documents[i], metaJSON, pgvector.NewVector(vectors[i])); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add tx: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, text string, k int) (domain.RetrievalBundle, error) {
	bundle := domain.RetrievalBundle{
		Documents: []string{},
		Metadata:  []map[string]any{},
		IDs:       []string{},
		Distances: []float64{},
	}
	if k <= 0 {
		return bundle, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return bundle, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, document, metadata, embedding <=> $1 AS distance
FROM %s
ORDER BY distance
LIMIT $2
`, s.table), pgvector.NewVector(vector), k)
	if err != nil {
		return bundle, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, document string
			metaRaw      []byte
			distance     float64
		)
		if err := rows.Scan(&id, &document, &metaRaw, &distance); err != nil {
			return bundle, fmt.Errorf("scan chunk: %w", err)
		}
		meta := map[string]any{}
		if len(metaRaw) > 0 {
			if err := json.Unmarshal(metaRaw, &meta); err != nil {
				return bundle, fmt.Errorf("unmarshal metadata for %s: %w", id, err)
			}
		}
		bundle.Documents = append(bundle.Documents, document)
		bundle.Metadata = append(bundle.Metadata, meta)
		bundle.IDs = append(bundle.IDs, id)
		bundle.Distances = append(bundle.Distances, distance)
	}
	if err := rows.Err(); err != nil {
		return bundle, fmt.Errorf("iterate chunks: %w", err)
	}
	return bundle, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
