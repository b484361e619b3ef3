package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
	RAG      RAGConfig      `yaml:"rag"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai" or "ollama"
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

// RAGConfig carries the explicit knobs of the embedding and search
// core. They are injected into the pipeline and engine constructors
// rather than read from ambient state.
type RAGConfig struct {
	VectorSize          int     `yaml:"vector_size"`
	ChunkSize           int     `yaml:"chunk_size"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
	MaxBatchSize        int     `yaml:"max_batch_size"`
	SearchLimit         int     `yaml:"search_limit"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	EmbedTimeoutSecs    int     `yaml:"embed_timeout_secs"`
	EncryptionKey       string  `yaml:"encryption_key"`
}

const (
	defaultVectorSize       = 384
	defaultChunkSize        = 1000
	defaultChunkOverlap     = 200
	defaultMaxBatchSize     = 32
	defaultSearchLimit      = 5
	defaultThreshold        = 0.7
	defaultEmbedTimeoutSecs = 30
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.RAG.applyDefaults()
	return &cfg, nil
}

func (r *RAGConfig) applyDefaults() {
	if r.VectorSize == 0 {
		r.VectorSize = defaultVectorSize
	}
	if r.ChunkSize == 0 {
		r.ChunkSize = defaultChunkSize
	}
	if r.ChunkOverlap == 0 {
		r.ChunkOverlap = defaultChunkOverlap
	}
	if r.MaxBatchSize == 0 {
		r.MaxBatchSize = defaultMaxBatchSize
	}
	if r.SearchLimit == 0 {
		r.SearchLimit = defaultSearchLimit
	}
	if r.SimilarityThreshold == 0 {
		r.SimilarityThreshold = defaultThreshold
	}
	if r.EmbedTimeoutSecs == 0 {
		r.EmbedTimeoutSecs = defaultEmbedTimeoutSecs
	}
}

// EmbedTimeout is the per-call bound on provider vectorization.
func (r *RAGConfig) EmbedTimeout() time.Duration {
	return time.Duration(r.EmbedTimeoutSecs) * time.Second
}
