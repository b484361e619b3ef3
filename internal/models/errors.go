package models

import "errors"

// Error kinds surfaced by the embedding and search core. Callers match
// them with errors.Is; the transport layer owns the mapping to response
// codes. Nothing in the core swallows one of these.
var (
	// validation
	ErrInvalidChunkConfig  = errors.New("invalid chunk config")
	ErrInvalidSearchParams = errors.New("invalid search params")
	ErrEmptyContext        = errors.New("context text is empty")

	// embedding provider
	ErrEmbedProvider     = errors.New("embedding provider failed")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmbedTimeout      = errors.New("embedding call timed out")

	// storage
	ErrChunkStoreWrite = errors.New("chunk store write failed")
	ErrChunkStoreRead  = errors.New("chunk store read failed")

	// collaborators
	ErrQuestionNotFound = errors.New("question not found")
)
