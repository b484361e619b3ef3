// Package memstore is a full-scan, in-memory chunk store with the same
// contract as the pgvector store. It pins the ranking semantics the
// native index must reproduce, and it is the store tests run against.
package memstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"question-rag/internal/models"
)

type Store struct {
	mu     sync.RWMutex
	chunks map[string][]models.ChunkEmbedding // keyed by question id, sorted by chunk_index
}

func New() *Store {
	return &Store{chunks: make(map[string][]models.ChunkEmbedding)}
}

// ReplaceChunks swaps the question's chunk set atomically under the
// store lock.
func (s *Store) ReplaceChunks(ctx context.Context, questionID string, chunks []models.ChunkEmbedding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([]models.ChunkEmbedding, len(chunks))
	copy(cp, chunks)
	sort.Slice(cp, func(i, j int) bool { return cp[i].ChunkIndex < cp[j].ChunkIndex })

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(cp) == 0 {
		delete(s.chunks, questionID)
		return nil
	}
	s.chunks[questionID] = cp
	return nil
}

func (s *Store) DeleteByQuestion(ctx context.Context, questionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.chunks[questionID])
	delete(s.chunks, questionID)
	return n, nil
}

func (s *Store) GetByQuestion(ctx context.Context, questionID string) ([]models.ChunkEmbedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChunkEmbedding, len(s.chunks[questionID]))
	copy(out, s.chunks[questionID])
	return out, nil
}

// Search scans every stored vector, scores it with cosine similarity,
// drops scores below the threshold and returns at most limit results
// in descending score order. Ties break on lower chunk_index, then
// lower question id.
func (s *Store) Search(ctx context.Context, queryEmbedding []float32, limit int, threshold float64) ([]models.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []models.ScoredChunk
	for _, chunks := range s.chunks {
		for _, chunk := range chunks {
			score := CosineSimilarity(queryEmbedding, chunk.Embedding)
			if score < threshold {
				continue
			}
			c := chunk
			c.Score = score
			scored = append(scored, models.ScoredChunk{Chunk: c, Score: score})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Chunk.ChunkIndex != scored[j].Chunk.ChunkIndex {
			return scored[i].Chunk.ChunkIndex < scored[j].Chunk.ChunkIndex
		}
		return scored[i].Chunk.QuestionID < scored[j].Chunk.QuestionID
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	if scored == nil {
		scored = []models.ScoredChunk{}
	}
	return scored, nil
}

// Stats reports totals over a single lock-held scan.
func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	if err := ctx.Err(); err != nil {
		return models.Stats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats models.Stats
	var sizeSum int64
	for _, chunks := range s.chunks {
		if len(chunks) == 0 {
			continue
		}
		stats.QuestionsIndexed++
		stats.TotalChunks += int64(len(chunks))
		for _, chunk := range chunks {
			sizeSum += int64(chunk.ChunkSize)
		}
	}
	if stats.TotalChunks > 0 {
		stats.AvgChunkSize = float64(sizeSum) / float64(stats.TotalChunks)
	}
	return stats, nil
}

// CosineSimilarity computes the cosine of the angle between two
// vectors, in [-1, 1]. Zero-magnitude or mismatched vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
