package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"question-rag/internal/models"
)

// Embedder is the injected vectorization capability: given text,
// return a fixed-length numeric vector, or fail. langchaingo's
// embeddings.EmbedderImpl satisfies it; tests use a deterministic
// hash-based stub.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// BatchEmbedder wraps an Embedder with the provider limits the
// pipeline relies on: a maximum batch size (larger inputs are split
// into sub-batches and the results concatenated in input order), a
// per-call timeout, and a dimension check on every returned vector.
//
// If any sub-batch fails, the whole call fails and no vectors are
// returned; partial results would let text and vectors drift apart
// downstream. Nothing is cached or retried here; retry policy belongs
// to the caller.
type BatchEmbedder struct {
	inner     Embedder
	dimension int
	batchSize int
	timeout   time.Duration
	model     string
}

func NewBatchEmbedder(inner Embedder, dimension, batchSize int, timeout time.Duration, model string) *BatchEmbedder {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &BatchEmbedder{
		inner:     inner,
		dimension: dimension,
		batchSize: batchSize,
		timeout:   timeout,
		model:     model,
	}
}

// Dimension is the configured embedding dimension every vector must have.
func (b *BatchEmbedder) Dimension() int { return b.dimension }

// Model is the provider model name recorded on persisted chunks.
func (b *BatchEmbedder) Model() string { return b.model }

// EmbedQuery vectorizes a single text under the configured timeout.
func (b *BatchEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := b.callContext(ctx)
	defer cancel()

	vec, err := b.inner.EmbedQuery(callCtx, text)
	if err != nil {
		return nil, b.providerError(callCtx.Err(), err)
	}
	if err := b.checkDimension(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedDocuments vectorizes texts in input order. Sub-batch boundaries
// are invisible to the caller: the result has exactly one vector per
// input text, in the same order.
func (b *BatchEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))

		callCtx, cancel := b.callContext(ctx)
		batch, err := b.inner.EmbedDocuments(callCtx, texts[start:end])
		ctxErr := callCtx.Err()
		cancel()
		if err != nil {
			return nil, b.providerError(ctxErr, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: asked for %d vectors, got %d", models.ErrEmbedProvider, end-start, len(batch))
		}
		for _, vec := range batch {
			if err := b.checkDimension(vec); err != nil {
				return nil, err
			}
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (b *BatchEmbedder) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b *BatchEmbedder) checkDimension(vec []float32) error {
	if len(vec) != b.dimension {
		return fmt.Errorf("%w: provider returned %d dimensions, configured %d", models.ErrDimensionMismatch, len(vec), b.dimension)
	}
	return nil
}

// providerError distinguishes a timeout from an ordinary provider
// failure so callers can decide whether a retry makes sense. ctxErr is
// the per-call context error captured before cancellation; a provider
// may wrap or swallow the deadline in its own error type, so the
// context state is checked too.
func (b *BatchEmbedder) providerError(ctxErr, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctxErr, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", models.ErrEmbedTimeout, b.timeout, err)
	}
	return fmt.Errorf("%w: %v", models.ErrEmbedProvider, err)
}
