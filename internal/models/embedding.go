package models

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/uptrace/bun"

	"question-rag/internal/helper"
)

// ChunkEmbedding is one indexed unit of retrievable question context:
// a bounded substring of the source text plus its embedding vector.
// Rows are written in bulk when a question is (re)indexed and never
// mutated afterwards; deleting the question cascades to its chunks.
type ChunkEmbedding struct {
	bun.BaseModel `bun:"table:chunk_embeddings,alias:ce"`

	ID              string            `bun:"id,pk"`
	QuestionID      string            `bun:"question_id,notnull"`
	ChunkIndex      int               `bun:"chunk_index,notnull"`
	ChunkText       string            `bun:"chunk_text,notnull"`
	ChunkSize       int               `bun:"chunk_size,notnull"`
	// The column dimension comes from configuration; db.InitDB owns
	// the DDL.
	Embedding       Vector            `bun:"embedding,notnull,type:vector"`
	ChunkMetadata   map[string]string `bun:"chunk_metadata,type:jsonb"`
	ProcessingModel string            `bun:"processing_model"`
	CreatedAt       time.Time         `bun:"created_at,notnull,default:current_timestamp"`

	// Score is populated by similarity queries only, never persisted.
	Score float64 `bun:"score,scanonly"`
}

// NewChunkEmbedding builds a chunk row, enforcing the creation-time
// invariants: non-empty text and chunk_size equal to the character
// length of chunk_text.
func NewChunkEmbedding(questionID string, index int, text string, embedding []float32, metadata map[string]string, processingModel string) (ChunkEmbedding, error) {
	if text == "" {
		return ChunkEmbedding{}, fmt.Errorf("%w: chunk %d of question %s has no text", ErrEmptyContext, index, questionID)
	}
	id, err := helper.GenerateUUID()
	if err != nil {
		return ChunkEmbedding{}, err
	}
	return ChunkEmbedding{
		ID:              id,
		QuestionID:      questionID,
		ChunkIndex:      index,
		ChunkText:       text,
		ChunkSize:       utf8.RuneCountInString(text),
		Embedding:       embedding,
		ChunkMetadata:   metadata,
		ProcessingModel: processingModel,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// ScoredChunk pairs a chunk with its cosine similarity to a query
// vector. Score is the raw cosine value in [-1, 1]; it is not clipped
// to [0, 1], so a similarity threshold of 0.7 means cosine >= 0.7.
type ScoredChunk struct {
	Chunk ChunkEmbedding
	Score float64
}

// Stats is a single consistent snapshot of the chunk store.
type Stats struct {
	TotalChunks      int64   `bun:"total_chunks"`
	QuestionsIndexed int64   `bun:"questions_indexed"`
	AvgChunkSize     float64 `bun:"avg_chunk_size"`
}

// PromptResponse is the result of answer generation over retrieved
// context.
type PromptResponse struct {
	Query   string
	Source  string
	Content string
}
