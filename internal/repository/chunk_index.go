package repository

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/talentsift/talentsift/internal/domain"
)

// ChunkIndexRepository persists embedded document chunks and serves
// similarity queries over them. Entries are keyed by
// (collection, source_id, chunk_id); upserting replaces by key.
type ChunkIndexRepository struct {
	db         dbtx
	dimensions int
}

func NewChunkIndexRepository(pool *pgxpool.Pool, dimensions int) *ChunkIndexRepository {
	return &ChunkIndexRepository{db: pool, dimensions: dimensions}
}

func NewChunkIndexRepositoryWithTx(tx pgx.Tx, dimensions int) *ChunkIndexRepository {
	return &ChunkIndexRepository{db: tx, dimensions: dimensions}
}

// Upsert stores entries, replacing any existing entry with the same key.
// Entries with a wrong embedding dimension are rejected before anything is
// written.
func (r *ChunkIndexRepository) Upsert(ctx context.Context, collection string, entries []domain.IndexEntry) error {
	for i := range entries {
		if err := domain.ValidateIndexEntry(&entries[i], r.dimensions); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	for _, e := range entries {
		_, err := r.db.Exec(ctx,
			`INSERT INTO chunk_index (collection, source_id, chunk_id, doc_type, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (collection, source_id, chunk_id)
			 DO UPDATE SET doc_type = EXCLUDED.doc_type,
			               content = EXCLUDED.content,
			               embedding = EXCLUDED.embedding`,
			collection, e.SourceID, e.ChunkID, e.DocType, e.Text,
			pgvector.NewVector(e.Embedding), now,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Search returns up to k entries ranked by cosine similarity to the query
// embedding, optionally restricted to one document type. Entries whose stored
// dimension does not match the query are skipped with a warning; they must
// never distort the ranking. Ties break on insertion order.
func (r *ChunkIndexRepository) Search(ctx context.Context, collection string, embedding []float32, k int, docType domain.DocType) ([]domain.RetrievedPassage, error) {
	if k <= 0 {
		k = 1
	}

	// The warning covers exactly the entries this query would otherwise rank,
	// so it carries the same doc_type restriction.
	countQuery := `SELECT count(*) FROM chunk_index
		 WHERE collection = $1 AND vector_dims(embedding) <> $2`
	countArgs := []any{collection, len(embedding)}
	if docType != "" {
		countQuery += " AND doc_type = $3"
		countArgs = append(countArgs, docType)
	}

	var skipped int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&skipped); err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Printf("chunk_index: skipping %d entries in %s with mismatched embedding dimensions", skipped, collection)
	}

	query := `
		SELECT source_id, chunk_id, doc_type, content,
		       1.0 / (1.0 + (embedding <=> $1)) AS score
		FROM chunk_index
		WHERE collection = $2 AND vector_dims(embedding) = $3`
	args := []any{pgvector.NewVector(embedding), collection, len(embedding)}

	if docType != "" {
		query += " AND doc_type = $5"
		args = append(args, k, docType)
	} else {
		args = append(args, k)
	}
	query += " ORDER BY score DESC, id ASC LIMIT $4"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	passages := make([]domain.RetrievedPassage, 0, k)
	for rows.Next() {
		var p domain.RetrievedPassage
		var score float64
		if err := rows.Scan(&p.SourceID, &p.ChunkID, &p.DocType, &p.Text, &score); err != nil {
			return nil, err
		}
		p.Score = float32(score)
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

// DeleteBySource removes all entries for a source, used before re-ingesting
// an updated document.
func (r *ChunkIndexRepository) DeleteBySource(ctx context.Context, collection, sourceID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM chunk_index WHERE collection = $1 AND source_id = $2`,
		collection, sourceID,
	)
	return err
}

// CountBySource returns the number of stored entries for one source.
func (r *ChunkIndexRepository) CountBySource(ctx context.Context, collection, sourceID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM chunk_index WHERE collection = $1 AND source_id = $2`,
		collection, sourceID,
	).Scan(&n)
	return n, err
}
