package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://user@localhost:5432/app
embed_llm:
  provider: ollama
  model: all-minilm
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://user@localhost:5432/app", cfg.Database.URL)
	assert.Equal(t, "all-minilm", cfg.EmbedLLM.Model)

	assert.Equal(t, 384, cfg.RAG.VectorSize)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 32, cfg.RAG.MaxBatchSize)
	assert.Equal(t, 5, cfg.RAG.SearchLimit)
	assert.Equal(t, 0.7, cfg.RAG.SimilarityThreshold)
	assert.Equal(t, 30*time.Second, cfg.RAG.EmbedTimeout())
}

func TestLoadConfigExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, `
rag:
  vector_size: 768
  chunk_size: 500
  chunk_overlap: 50
  similarity_threshold: 0.2
  embed_timeout_secs: 5
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 768, cfg.RAG.VectorSize)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 50, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 0.2, cfg.RAG.SimilarityThreshold)
	assert.Equal(t, 5*time.Second, cfg.RAG.EmbedTimeout())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
