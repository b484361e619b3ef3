// Package rag is the embedding pipeline and similarity search engine:
// it turns question context text into persisted, retrievable vector
// chunks and answers semantic queries over them.
package rag

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"question-rag/internal/chunker"
	"question-rag/internal/config"
	"question-rag/internal/embedding"
	"question-rag/internal/llm"
	"question-rag/internal/models"
)

// Store is the persistence capability the pipeline writes to and the
// search engine reads from. ReplaceChunks must be atomic at question
// granularity; Search must exclude scores below the threshold and
// order descending with the chunk_index/question-id tie-break.
type Store interface {
	ReplaceChunks(ctx context.Context, questionID string, chunks []models.ChunkEmbedding) error
	DeleteByQuestion(ctx context.Context, questionID string) (int, error)
	GetByQuestion(ctx context.Context, questionID string) ([]models.ChunkEmbedding, error)
	Search(ctx context.Context, queryEmbedding []float32, limit int, threshold float64) ([]models.ScoredChunk, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// QuestionRepository is the collaborator that owns question records.
type QuestionRepository interface {
	Exists(ctx context.Context, questionID string) (bool, error)
}

type Service struct {
	store     Store
	questions QuestionRepository
	embedder  *embedding.BatchEmbedder
	cfg       *config.RAGConfig
	chatCfg   *config.LLMConfig
	locks     *keyedMutex
}

// NewService wires the pipeline. questions may be nil when no question
// subsystem is attached (local/offline runs); chatCfg may be nil when
// answer generation is not configured.
func NewService(store Store, questions QuestionRepository, embedder *embedding.BatchEmbedder, cfg *config.RAGConfig, chatCfg *config.LLMConfig) *Service {
	return &Service{
		store:     store,
		questions: questions,
		embedder:  embedder,
		cfg:       cfg,
		chatCfg:   chatCfg,
		locks:     newKeyedMutex(),
	}
}

// CreateEmbeddings chunks the question's context text, vectorizes all
// chunks in one batched provider call and persists them in a single
// transaction. Either every chunk for the question becomes visible or
// none does; a provider failure partway leaves nothing behind. A
// question that already has chunks gets its set replaced wholesale.
// Returns the number of chunks created.
func (s *Service) CreateEmbeddings(ctx context.Context, questionID, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("%w: question %s", models.ErrEmptyContext, questionID)
	}
	if s.questions != nil {
		ok, err := s.questions.Exists(ctx, questionID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("%w: %s", models.ErrQuestionNotFound, questionID)
		}
	}

	segments, err := chunker.Chunk(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		return 0, err
	}

	unlock := s.locks.lock(questionID)
	defer unlock()

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, err
	}

	totalLength := strconv.Itoa(len([]rune(text)))
	chunkCount := strconv.Itoa(len(segments))
	chunks := make([]models.ChunkEmbedding, 0, len(segments))
	for i, seg := range segments {
		chunk, err := models.NewChunkEmbedding(questionID, seg.Index, seg.Text, vectors[i], map[string]string{
			models.MetaChunkCount:  chunkCount,
			models.MetaTotalLength: totalLength,
			models.MetaStartOffset: strconv.Itoa(seg.Start),
			models.MetaOverlap:     strconv.Itoa(s.cfg.ChunkOverlap),
		}, s.embedder.Model())
		if err != nil {
			return 0, err
		}
		chunks = append(chunks, chunk)
	}

	if err := s.store.ReplaceChunks(ctx, questionID, chunks); err != nil {
		return 0, err
	}

	log.Info().Str("question_id", questionID).Int("chunks", len(chunks)).Msg("Indexed question context")
	return len(chunks), nil
}

// ReindexQuestion fully replaces the question's chunk set from freshly
// chunked and embedded text. The delete and insert share one
// transactional boundary, so a concurrent search sees the old set or
// the new set, never a mix.
func (s *Service) ReindexQuestion(ctx context.Context, questionID, text string) (int, error) {
	return s.CreateEmbeddings(ctx, questionID, text)
}

// DeleteEmbeddings removes every chunk of the question and returns the
// deleted count. Zero chunks deleted is a valid outcome, not an error.
func (s *Service) DeleteEmbeddings(ctx context.Context, questionID string) (int, error) {
	unlock := s.locks.lock(questionID)
	defer unlock()

	deleted, err := s.store.DeleteByQuestion(ctx, questionID)
	if err != nil {
		return 0, err
	}
	log.Info().Str("question_id", questionID).Int("deleted", deleted).Msg("Deleted question embeddings")
	return deleted, nil
}

// GetEmbeddings returns the question's chunks ordered by chunk_index.
// An unindexed question yields an empty slice.
func (s *Service) GetEmbeddings(ctx context.Context, questionID string) ([]models.ChunkEmbedding, error) {
	return s.store.GetByQuestion(ctx, questionID)
}

// SearchByText vectorizes the query and ranks stored chunks by cosine
// similarity. Scores are raw cosine values in [-1, 1]; results below
// threshold are excluded entirely. An empty store returns an empty
// slice.
func (s *Service) SearchByText(ctx context.Context, queryText string, limit int, threshold float64) ([]models.ScoredChunk, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, fmt.Errorf("%w: query text is blank", models.ErrInvalidSearchParams)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit %d must be positive", models.ErrInvalidSearchParams, limit)
	}
	if threshold < -1 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %g must be in [-1, 1]", models.ErrInvalidSearchParams, threshold)
	}

	queryEmbedding, err := s.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, err
	}
	return s.store.Search(ctx, queryEmbedding, limit, threshold)
}

// Stats reports aggregate counts over the chunk store.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	return s.store.Stats(ctx)
}

// Answer retrieves the best-matching chunks for the query and asks the
// chat model to answer from them. The retrieved chunk texts come back
// as Source so callers can show provenance.
func (s *Service) Answer(ctx context.Context, queryText string) (*models.PromptResponse, error) {
	if s.chatCfg == nil {
		return nil, fmt.Errorf("chat model not configured")
	}

	results, err := s.SearchByText(ctx, queryText, s.cfg.SearchLimit, s.cfg.SimilarityThreshold)
	if err != nil {
		return nil, err
	}

	var source strings.Builder
	for i, result := range results {
		if i > 0 {
			source.WriteString(models.ContextSeparator)
		}
		source.WriteString(result.Chunk.ChunkText)
	}

	prompt := fmt.Sprintf(models.AnswerPromptTemplate, source.String(), queryText)
	content, err := llm.Complete(ctx, s.chatCfg, models.AnswerSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	return &models.PromptResponse{
		Query:   queryText,
		Source:  source.String(),
		Content: content,
	}, nil
}
