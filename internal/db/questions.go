package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"question-rag/internal/models"
)

// QuestionRepo is the thin collaborator surface the embedding core
// needs from the question subsystem: an existence check plus create
// and delete hooks for tooling and tests. Question lifecycle beyond
// that is owned elsewhere; chunk cleanup on question deletion rides
// the ON DELETE CASCADE foreign key.
type QuestionRepo struct {
	db *bun.DB
}

func NewQuestionRepo(db *bun.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

func (r *QuestionRepo) Exists(ctx context.Context, questionID string) (bool, error) {
	ok, err := r.db.NewSelect().
		Model((*models.Question)(nil)).
		Where("q.id = ?", questionID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: question exists check: %v", models.ErrChunkStoreRead, err)
	}
	return ok, nil
}

func (r *QuestionRepo) Create(ctx context.Context, question *models.Question) error {
	if _, err := r.db.NewInsert().Model(question).Exec(ctx); err != nil {
		return fmt.Errorf("%w: create question: %v", models.ErrChunkStoreWrite, err)
	}
	return nil
}

func (r *QuestionRepo) Delete(ctx context.Context, questionID string) error {
	if _, err := r.db.NewDelete().
		Model((*models.Question)(nil)).
		Where("q.id = ?", questionID).
		Exec(ctx); err != nil {
		return fmt.Errorf("%w: delete question: %v", models.ErrChunkStoreWrite, err)
	}
	return nil
}
