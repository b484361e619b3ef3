package memstore

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"question-rag/internal/models"
)

func chunk(id, questionID string, index int, text string, embedding []float32) models.ChunkEmbedding {
	return models.ChunkEmbedding{
		ID:         id,
		QuestionID: questionID,
		ChunkIndex: index,
		ChunkText:  text,
		ChunkSize:  len([]rune(text)),
		Embedding:  embedding,
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	// cos 45°
	assert.InDelta(t, math.Sqrt2/2, CosineSimilarity([]float32{1, 0}, []float32{1, 1}), 1e-6)
	// degenerate inputs score zero instead of NaN
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, CosineSimilarity(nil, nil))
}

func TestSearchOrderingMatchesHandComputedScores(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.ReplaceChunks(ctx, "q1", []models.ChunkEmbedding{
		chunk("c0", "q1", 0, "exact", []float32{1, 0}),
		chunk("c1", "q1", 1, "close", []float32{0.6, 0.8}),
		chunk("c2", "q1", 2, "orthogonal", []float32{0, 1}),
	}))

	results, err := store.Search(ctx, []float32{1, 0}, 10, -1)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// scores computed by hand: 1.0, 0.6, 0.0
	assert.Equal(t, "c0", results[0].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "c1", results[1].Chunk.ID)
	assert.InDelta(t, 0.6, results[1].Score, 1e-6)
	assert.Equal(t, "c2", results[2].Chunk.ID)
	assert.InDelta(t, 0.0, results[2].Score, 1e-6)
}

func TestSearchThresholdExcludesLowScores(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.ReplaceChunks(ctx, "q1", []models.ChunkEmbedding{
		chunk("c0", "q1", 0, "halfway", []float32{1, 1, 0, 0}),
	}))

	// best match scores ~0.707; a 0.99 threshold excludes it entirely
	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, 5, 0.99)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchTieBreakByChunkIndexThenQuestionID(t *testing.T) {
	ctx := context.Background()
	store := New()

	same := []float32{1, 0}
	require.NoError(t, store.ReplaceChunks(ctx, "q2", []models.ChunkEmbedding{
		chunk("b0", "q2", 0, "tie", same),
		chunk("b1", "q2", 1, "tie", same),
	}))
	require.NoError(t, store.ReplaceChunks(ctx, "q1", []models.ChunkEmbedding{
		chunk("a0", "q1", 0, "tie", same),
	}))

	results, err := store.Search(ctx, same, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a0", results[0].Chunk.ID) // index 0, q1
	assert.Equal(t, "b0", results[1].Chunk.ID) // index 0, q2
	assert.Equal(t, "b1", results[2].Chunk.ID) // index 1, q2
}

func TestSearchHonorsLimit(t *testing.T) {
	ctx := context.Background()
	store := New()

	var chunks []models.ChunkEmbedding
	for i := 0; i < 10; i++ {
		chunks = append(chunks, chunk("", "q1", i, "text", []float32{1, 0}))
	}
	require.NoError(t, store.ReplaceChunks(ctx, "q1", chunks))

	results, err := store.Search(ctx, []float32{1, 0}, 3, 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchEmptyStore(t *testing.T) {
	results, err := New().Search(context.Background(), []float32{1, 0}, 5, 0.5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReplaceChunksSwapsWholeSet(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.ReplaceChunks(ctx, "q1", []models.ChunkEmbedding{
		chunk("old0", "q1", 0, "old text", []float32{1, 0}),
		chunk("old1", "q1", 1, "old text", []float32{1, 0}),
	}))
	require.NoError(t, store.ReplaceChunks(ctx, "q1", []models.ChunkEmbedding{
		chunk("new0", "q1", 0, "new text", []float32{0, 1}),
	}))

	got, err := store.GetByQuestion(ctx, "q1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new0", got[0].ID)
	assert.Equal(t, "new text", got[0].ChunkText)
}

func TestDeleteByQuestionReportsCount(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.ReplaceChunks(ctx, "q1", []models.ChunkEmbedding{
		chunk("c0", "q1", 0, "text", []float32{1, 0}),
		chunk("c1", "q1", 1, "text", []float32{1, 0}),
	}))

	n, err := store.DeleteByQuestion(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.DeleteByQuestion(ctx, "q1")
	require.NoError(t, err)
	assert.Zero(t, n, "deleting an unindexed question is not an error")

	got, err := store.GetByQuestion(ctx, "q1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetByQuestionOrderedByChunkIndex(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.ReplaceChunks(ctx, "q1", []models.ChunkEmbedding{
		chunk("c2", "q1", 2, "third", []float32{1, 0}),
		chunk("c0", "q1", 0, "first", []float32{1, 0}),
		chunk("c1", "q1", 1, "second", []float32{1, 0}),
	}))

	got, err := store.GetByQuestion(ctx, "q1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, i, c.ChunkIndex)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store := New()

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalChunks)
	assert.Zero(t, stats.QuestionsIndexed)
	assert.Zero(t, stats.AvgChunkSize)

	require.NoError(t, store.ReplaceChunks(ctx, "q1", []models.ChunkEmbedding{
		chunk("c0", "q1", 0, "1234567890", []float32{1, 0}), // size 10
		chunk("c1", "q1", 1, "12345678901234567890", []float32{1, 0}), // size 20
	}))
	require.NoError(t, store.ReplaceChunks(ctx, "q2", []models.ChunkEmbedding{
		chunk("d0", "q2", 0, "123456", []float32{0, 1}), // size 6
	}))

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalChunks)
	assert.EqualValues(t, 2, stats.QuestionsIndexed)
	assert.InDelta(t, 12.0, stats.AvgChunkSize, 1e-9)
}

func TestStatsDecreasesAfterDelete(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.ReplaceChunks(ctx, "q1", []models.ChunkEmbedding{
		chunk("c0", "q1", 0, "text", []float32{1, 0}),
		chunk("c1", "q1", 1, "text", []float32{1, 0}),
		chunk("c2", "q1", 2, "text", []float32{1, 0}),
	}))

	before, err := store.Stats(ctx)
	require.NoError(t, err)

	deleted, err := store.DeleteByQuestion(ctx, "q1")
	require.NoError(t, err)

	after, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.TotalChunks-int64(deleted), after.TotalChunks)
	assert.Zero(t, after.QuestionsIndexed)
}
