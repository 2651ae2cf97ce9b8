package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/cvchat/internal/models"
	"github.com/xhad/cvchat/pkg/index"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// VectorStore mirrors the chunk index into a pgvector table and can serve
// inner-product searches from it.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
	table  string
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.ConnString == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	if config.TableName == "" {
		config.TableName = "cv_chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1024
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
		table:  pgx.Identifier{config.TableName}.Sanitize(),
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			position INTEGER PRIMARY KEY,
			id TEXT NOT NULL,
			source TEXT NOT NULL,
			chunk_id INTEGER NOT NULL,
			chunk_size INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d)
		)`, vs.table, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	// No ANN index on embedding: searches scan every row so top-k is exact,
	// matching the in-memory index. Tables created with the old approximate
	// index lose it here.
	dropIndex := fmt.Sprintf("DROP INDEX IF EXISTS %s",
		pgx.Identifier{vs.config.TableName + "_embedding_idx"}.Sanitize())
	if _, err := vs.pool.Exec(ctx, dropIndex); err != nil {
		return fmt.Errorf("failed to drop approximate index: %w", err)
	}
	return nil
}

// Sync replaces the table contents with records and their vectors in a
// single transaction.
func (vs *VectorStore) Sync(ctx context.Context, records []models.Record, vectors [][]float32) error {
	if len(records) != len(vectors) {
		return fmt.Errorf("%d records but %d vectors", len(records), len(vectors))
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", vs.table)); err != nil {
		return fmt.Errorf("failed to clear table: %w", err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, position, source, chunk_id, chunk_size, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		vs.table)

	for i, rec := range records {
		if len(vectors[i]) != vs.config.VectorDim {
			return fmt.Errorf("record %d: %w", i, index.ErrDimensionMismatch)
		}
		id := fmt.Sprintf("%s#%d", rec.Metadata.Source, rec.Metadata.ChunkID)
		_, err = tx.Exec(ctx, stmt,
			id,
			i,
			sanitizeUTF8(rec.Metadata.Source),
			rec.Metadata.ChunkID,
			rec.Metadata.ChunkSize,
			sanitizeUTF8(rec.Content),
			pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Search returns the k rows with the highest inner product against query.
// Vectors are unit length, so inner product ranks like cosine.
func (vs *VectorStore) Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	if len(query) != vs.config.VectorDim {
		return nil, fmt.Errorf("query has %d dimensions, expected %d: %w", len(query), vs.config.VectorDim, index.ErrDimensionMismatch)
	}

	// <#> is the negative inner product.
	stmt := fmt.Sprintf(`
		SELECT content, source, chunk_id, chunk_size, (embedding <#> $1) * -1 AS score
		FROM %s
		ORDER BY embedding <#> $1, position
		LIMIT $2`,
		vs.table)

	rows, err := vs.pool.Query(ctx, stmt, pgvector.NewVector(index.Normalize(query)), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	results := make([]models.SearchResult, 0, k)
	for rows.Next() {
		var (
			r     models.SearchResult
			score float64
		)
		err := rows.Scan(
			&r.Content,
			&r.Metadata.Source,
			&r.Metadata.ChunkID,
			&r.Metadata.ChunkSize,
			&score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Score = float32(score)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return results, nil
}

// Count reports how many chunks the table holds.
func (vs *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := vs.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", vs.table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

// sanitizeUTF8 drops invalid bytes; Postgres rejects them in TEXT columns.
func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
