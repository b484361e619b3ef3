package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"question-rag/internal/models"
)

// hashEmbedder is a deterministic stub vectorizer: no network, same
// vector for the same text, configurable dimension.
type hashEmbedder struct {
	dim     int
	batches [][]string // every EmbedDocuments call, for batch assertions
	failAt  int        // fail the n-th EmbedDocuments call (1-based, 0 = never)
	calls   int
}

func (h *hashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.vector(text), nil
}

func (h *hashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.calls++
	h.batches = append(h.batches, texts)
	if h.failAt > 0 && h.calls >= h.failAt {
		return nil, fmt.Errorf("provider exploded")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *hashEmbedder) vector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, h.dim)
	for i := range vec {
		vec[i] = float32(sum[(i*7+3)%len(sum)])/255 - 0.5
	}
	return vec
}

// slowEmbedder blocks until the call context is cancelled.
type slowEmbedder struct{ dim int }

func (s slowEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s slowEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// opaqueSlowEmbedder blocks until the deadline but reports its own
// error instead of surfacing the context error, the way some provider
// clients do.
type opaqueSlowEmbedder struct{}

func (opaqueSlowEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	<-ctx.Done()
	return nil, fmt.Errorf("upstream gave up")
}

func (opaqueSlowEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, fmt.Errorf("upstream gave up")
}

func TestBatchEmbedderSplitsAndPreservesOrder(t *testing.T) {
	inner := &hashEmbedder{dim: 8}
	batcher := NewBatchEmbedder(inner, 8, 3, time.Minute, "stub-model")

	texts := []string{"a", "b", "c", "d", "e", "f", "g"}
	vectors, err := batcher.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	// sub-batches of at most 3, in input order
	require.Len(t, inner.batches, 3)
	assert.Equal(t, []string{"a", "b", "c"}, inner.batches[0])
	assert.Equal(t, []string{"d", "e", "f"}, inner.batches[1])
	assert.Equal(t, []string{"g"}, inner.batches[2])

	// result order matches input order regardless of sub-batching
	for i, text := range texts {
		assert.Equal(t, inner.vector(text), vectors[i], "vector %d out of order", i)
	}
}

func TestBatchEmbedderSingleBatchWhenUnderLimit(t *testing.T) {
	inner := &hashEmbedder{dim: 4}
	batcher := NewBatchEmbedder(inner, 4, 32, time.Minute, "stub-model")

	_, err := batcher.EmbedDocuments(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestBatchEmbedderEmptyInput(t *testing.T) {
	inner := &hashEmbedder{dim: 4}
	batcher := NewBatchEmbedder(inner, 4, 32, time.Minute, "stub-model")

	vectors, err := batcher.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, inner.calls)
}

func TestBatchEmbedderDimensionMismatch(t *testing.T) {
	inner := &hashEmbedder{dim: 8}
	batcher := NewBatchEmbedder(inner, 16, 32, time.Minute, "stub-model")

	_, err := batcher.EmbedDocuments(context.Background(), []string{"a"})
	require.ErrorIs(t, err, models.ErrDimensionMismatch)

	_, err = batcher.EmbedQuery(context.Background(), "a")
	require.ErrorIs(t, err, models.ErrDimensionMismatch)
}

func TestBatchEmbedderFailureIsolation(t *testing.T) {
	inner := &hashEmbedder{dim: 8, failAt: 2}
	batcher := NewBatchEmbedder(inner, 8, 2, time.Minute, "stub-model")

	vectors, err := batcher.EmbedDocuments(context.Background(), []string{"a", "b", "c", "d"})
	require.ErrorIs(t, err, models.ErrEmbedProvider)
	assert.Nil(t, vectors, "a failed sub-batch must not surface partial vectors")
}

func TestBatchEmbedderTimeout(t *testing.T) {
	batcher := NewBatchEmbedder(slowEmbedder{dim: 4}, 4, 32, 10*time.Millisecond, "stub-model")

	_, err := batcher.EmbedDocuments(context.Background(), []string{"a"})
	require.ErrorIs(t, err, models.ErrEmbedTimeout)

	_, err = batcher.EmbedQuery(context.Background(), "a")
	require.ErrorIs(t, err, models.ErrEmbedTimeout)
}

func TestBatchEmbedderTimeoutDetectedFromCallContext(t *testing.T) {
	// the provider hides the deadline behind its own error; the call
	// context state must still classify this as a timeout
	batcher := NewBatchEmbedder(opaqueSlowEmbedder{}, 4, 32, 10*time.Millisecond, "stub-model")

	_, err := batcher.EmbedDocuments(context.Background(), []string{"a"})
	require.ErrorIs(t, err, models.ErrEmbedTimeout)

	_, err = batcher.EmbedQuery(context.Background(), "a")
	require.ErrorIs(t, err, models.ErrEmbedTimeout)
}

func TestBatchEmbedderTimeoutDistinctFromProviderError(t *testing.T) {
	inner := &hashEmbedder{dim: 8, failAt: 1}
	batcher := NewBatchEmbedder(inner, 8, 32, time.Minute, "stub-model")

	_, err := batcher.EmbedDocuments(context.Background(), []string{"a"})
	require.ErrorIs(t, err, models.ErrEmbedProvider)
	assert.NotErrorIs(t, err, models.ErrEmbedTimeout)
}

func TestHashEmbedderIsDeterministic(t *testing.T) {
	a := &hashEmbedder{dim: 12}
	b := &hashEmbedder{dim: 12}
	assert.Equal(t, a.vector("same text"), b.vector("same text"))
	assert.NotEqual(t, a.vector("one"), a.vector("two"))
}
