package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Question is the owning record for chunk embeddings. Only the fields
// the embedding core needs are modeled here; profile, category and the
// rest of the question workflow live outside this service.
type Question struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID           string    `bun:"id,pk"`
	QuestionText string    `bun:"question_text,notnull"`
	Status       string    `bun:"status,notnull,default:'PENDING'"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
