package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"question-rag/internal/models"
)

// PgStore persists chunk embeddings in Postgres with pgvector.
// Writes for one question happen inside a single transaction holding
// an advisory lock on the question id, so a reindex is atomic: readers
// see the old chunk set or the new one, never a mix, and two writers
// for the same question serialize even across processes.
type PgStore struct {
	db *bun.DB
}

func NewPgStore(db *bun.DB) *PgStore {
	return &PgStore{db: db}
}

// ReplaceChunks deletes any existing chunks for the question and
// inserts the new set, all-or-nothing.
func (s *PgStore) ReplaceChunks(ctx context.Context, questionID string, chunks []models.ChunkEmbedding) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockQuestion(ctx, tx, questionID); err != nil {
			return err
		}
		if _, err := tx.NewDelete().
			Model((*models.ChunkEmbedding)(nil)).
			Where("question_id = ?", questionID).
			Exec(ctx); err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&chunks).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: replace chunks for question %s: %v", models.ErrChunkStoreWrite, questionID, err)
	}
	return nil
}

// DeleteByQuestion removes all chunks for a question and reports how
// many rows went away. A question with no chunks deletes zero rows and
// is not an error.
func (s *PgStore) DeleteByQuestion(ctx context.Context, questionID string) (int, error) {
	var deleted int64
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockQuestion(ctx, tx, questionID); err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*models.ChunkEmbedding)(nil)).
			Where("question_id = ?", questionID).
			Exec(ctx)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: delete chunks for question %s: %v", models.ErrChunkStoreWrite, questionID, err)
	}
	return int(deleted), nil
}

// GetByQuestion returns the question's chunks ordered by chunk_index.
func (s *PgStore) GetByQuestion(ctx context.Context, questionID string) ([]models.ChunkEmbedding, error) {
	var chunks []models.ChunkEmbedding
	err := s.db.NewSelect().
		Model(&chunks).
		Where("question_id = ?", questionID).
		Order("chunk_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: get chunks for question %s: %v", models.ErrChunkStoreRead, questionID, err)
	}
	return chunks, nil
}

// Search ranks stored chunks by cosine similarity to the query vector
// using the pgvector cosine-distance operator: score is
// 1 - (embedding <=> query), the raw cosine value in [-1, 1]. Rows
// below the threshold are excluded, ties break on lower chunk_index
// then lower question id, and at most limit rows come back.
func (s *PgStore) Search(ctx context.Context, queryEmbedding []float32, limit int, threshold float64) ([]models.ScoredChunk, error) {
	query := models.Vector(queryEmbedding)
	var rows []models.ChunkEmbedding
	err := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("ce.*").
		ColumnExpr("1 - (ce.embedding <=> ?) AS score", query).
		Where("1 - (ce.embedding <=> ?) >= ?", query, threshold).
		OrderExpr("ce.embedding <=> ?", query).
		OrderExpr("ce.chunk_index ASC").
		OrderExpr("ce.question_id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %v", models.ErrChunkStoreRead, err)
	}

	results := make([]models.ScoredChunk, 0, len(rows))
	for _, row := range rows {
		results = append(results, models.ScoredChunk{Chunk: row, Score: row.Score})
	}
	return results, nil
}

// Stats aggregates the whole store in one statement, so the snapshot
// cannot straddle a concurrent reindex.
func (s *PgStore) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	err := s.db.NewSelect().
		Model((*models.ChunkEmbedding)(nil)).
		ColumnExpr("count(*) AS total_chunks").
		ColumnExpr("count(DISTINCT ce.question_id) AS questions_indexed").
		ColumnExpr("coalesce(avg(ce.chunk_size), 0) AS avg_chunk_size").
		Scan(ctx, &stats)
	if err != nil {
		return models.Stats{}, fmt.Errorf("%w: stats: %v", models.ErrChunkStoreRead, err)
	}
	return stats, nil
}

// lockQuestion takes a transaction-scoped advisory lock keyed on the
// question id. Released automatically at commit or rollback.
func lockQuestion(ctx context.Context, tx bun.Tx, questionID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", questionID).Exec(ctx)
	return err
}
