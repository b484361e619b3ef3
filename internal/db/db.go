package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"question-rag/internal/config"
	"question-rag/internal/models"
)

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.URL + "?sslmode=disable"
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Password))), nil
}

// InitDB creates the pgvector extension, the questions and
// chunk_embeddings tables and the nearest-neighbor index. The chunk
// table is raw DDL because the vector dimension is configuration, not
// something a model tag can carry.
func InitDB(ctx context.Context, db *bun.DB, vectorSize int) error {
	if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create extension: %w", err)
	}

	if _, err := db.NewCreateTable().Model((*models.Question)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create questions table: %w", err)
	}

	createChunks := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS chunk_embeddings (
    id VARCHAR(36) PRIMARY KEY,
    question_id VARCHAR(36) NOT NULL REFERENCES questions (id) ON DELETE CASCADE,
    chunk_index INTEGER NOT NULL,
    chunk_text TEXT NOT NULL,
    chunk_size INTEGER NOT NULL,
    embedding VECTOR(%d) NOT NULL,
    chunk_metadata JSONB,
    processing_model VARCHAR(100),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (question_id, chunk_index)
)`, vectorSize)
	if _, err := db.ExecContext(ctx, createChunks); err != nil {
		return fmt.Errorf("create chunk_embeddings table: %w", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS chunk_embeddings_question_id_idx ON chunk_embeddings (question_id)`); err != nil {
		return fmt.Errorf("create question index: %w", err)
	}

	// ivfflat trades the scan plan for latency; ranking semantics are
	// unchanged because the score expression is the same.
	createIvfflat := `
CREATE INDEX IF NOT EXISTS chunk_embeddings_embedding_idx
ON chunk_embeddings
USING ivfflat (embedding vector_cosine_ops)
WITH (lists = 100)`
	if _, err := db.ExecContext(ctx, createIvfflat); err != nil {
		return fmt.Errorf("create vector index: %w", err)
	}

	return nil
}

// DropTables removes both tables; used by tooling when rebuilding a
// database from scratch.
func DropTables(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS chunk_embeddings`); err != nil {
		return err
	}
	_, err := db.NewDropTable().Model((*models.Question)(nil)).IfExists().Exec(ctx)
	return err
}
