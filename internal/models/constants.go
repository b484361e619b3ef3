package models

// Metadata keys written into chunk_metadata by the embedding pipeline.
// The search engine never interprets these; they exist for debugging
// and for reconstructing chunk provenance.
const (
	MetaChunkCount  = "chunk_count"
	MetaTotalLength = "total_length"
	MetaStartOffset = "start_offset"
	MetaOverlap     = "overlap"
)

const ContextSeparator = "\n---\n"

var (
	AnswerSystemPrompt = `You are a helpful assistant. Use the provided context to answer the query.`

	AnswerPromptTemplate = `Context:
%s
Query: %s`
)
