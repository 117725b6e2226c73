package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the complete docrag configuration.
type Config struct {
	Version      int                `yaml:"version" json:"version"`
	Paths        PathsConfig        `yaml:"paths" json:"paths"`
	Retrieval    RetrievalConfig    `yaml:"retrieval" json:"retrieval"`
	Chunking     ChunkingConfig     `yaml:"chunking" json:"chunking"`
	Embeddings   EmbeddingsConfig   `yaml:"embeddings" json:"embeddings"`
	LLM          LLMConfig          `yaml:"llm" json:"llm"`
	Reranker     RerankerConfig     `yaml:"reranker" json:"reranker"`
	Conversation ConversationConfig `yaml:"conversation" json:"conversation"`
	Performance  PerformanceConfig  `yaml:"performance" json:"performance"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`
}

// PathsConfig configures where documents live and where the snapshot is kept.
type PathsConfig struct {
	// DocumentsDir is the root of the document corpus. Subdirectories
	// become category labels on chunks.
	DocumentsDir string `yaml:"documents_dir" json:"documents_dir"`

	// DataDir holds the persisted snapshot and its lock file.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// RetrievalConfig configures the hybrid retrieval stage.
type RetrievalConfig struct {
	// LexicalTopK is the number of candidates requested from the BM25 index.
	LexicalTopK int `yaml:"lexical_top_k" json:"lexical_top_k"`

	// VectorTopK is the number of candidates requested from the vector index.
	VectorTopK int `yaml:"vector_top_k" json:"vector_top_k"`

	// RerankTopK caps how many merged candidates are handed to the reranker.
	RerankTopK int `yaml:"rerank_top_k" json:"rerank_top_k"`

	// ContextTopK is the number of chunks that make it into the final answer
	// context after reranking.
	ContextTopK int `yaml:"context_top_k" json:"context_top_k"`
}

// ChunkingConfig configures sentence-window segmentation.
type ChunkingConfig struct {
	// ChunkSize is the number of sentences per chunk.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// ChunkOverlap is the number of sentences shared between adjacent chunks.
	// Must be smaller than ChunkSize.
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`

	// MinChunkChars drops chunks shorter than this after trimming.
	MinChunkChars int `yaml:"min_chunk_chars" json:"min_chunk_chars"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "openai" or "static".
	// Empty falls back to "openai" when OPENAI_API_KEY is set, else "static".
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`

	// CacheSize bounds the in-process LRU over query embeddings.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// LLMConfig configures the answer-generation model.
type LLMConfig struct {
	Model       string  `yaml:"model" json:"model"`
	Temperature float32 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
}

// RerankerConfig configures the external cross-encoder service.
type RerankerConfig struct {
	// Provider selects the reranker: "http" or "none".
	Provider string `yaml:"provider" json:"provider"`

	// Endpoint is the HTTP reranker service URL (provider "http").
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// TimeoutSeconds bounds a single rerank call.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// ConversationConfig configures multi-turn chat behavior.
type ConversationConfig struct {
	// MaxHistory is the number of retained question/answer turns.
	MaxHistory int `yaml:"max_history" json:"max_history"`

	// SystemPrompt overrides the default assistant instructions.
	SystemPrompt string `yaml:"system_prompt" json:"system_prompt"`
}

// PerformanceConfig configures parallelism during index builds.
type PerformanceConfig struct {
	// IndexWorkers bounds concurrent per-file extraction during rebuilds.
	IndexWorkers int `yaml:"index_workers" json:"index_workers"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultSystemPrompt is used when conversation.system_prompt is empty.
const DefaultSystemPrompt = "You are a helpful assistant that answers questions " +
	"using the provided document context. When the context does not contain the " +
	"answer, say so instead of guessing. Cite the source documents you used."

// NewConfig creates a Config with defaults for every option.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DocumentsDir: "documents",
			DataDir:      defaultDataDir(),
		},
		Retrieval: RetrievalConfig{
			LexicalTopK: 20,
			VectorTopK:  20,
			RerankTopK:  40,
			ContextTopK: 6,
		},
		Chunking: ChunkingConfig{
			ChunkSize:     5,
			ChunkOverlap:  2,
			MinChunkChars: 40,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			BatchSize:  32,
			CacheSize:  1000,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		Reranker: RerankerConfig{
			Provider:       "none",
			Endpoint:       "http://localhost:8787/rerank",
			TimeoutSeconds: 30,
		},
		Conversation: ConversationConfig{
			MaxHistory:   10,
			SystemPrompt: "",
		},
		Performance: PerformanceConfig{
			IndexWorkers: runtime.NumCPU(),
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// defaultDataDir returns the default snapshot directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docrag")
	}
	return filepath.Join(home, ".docrag")
}

// Load loads configuration from the given directory in order of increasing
// precedence:
//  1. Hardcoded defaults
//  2. Project config (docrag.yaml or docrag.yml in dir)
//  3. Environment variables (DOCRAG_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load docrag.yaml or docrag.yml from dir.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, "docrag.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, "docrag.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.DocumentsDir != "" {
		c.Paths.DocumentsDir = other.Paths.DocumentsDir
	}
	if other.Paths.DataDir != "" {
		c.Paths.DataDir = other.Paths.DataDir
	}

	if other.Retrieval.LexicalTopK != 0 {
		c.Retrieval.LexicalTopK = other.Retrieval.LexicalTopK
	}
	if other.Retrieval.VectorTopK != 0 {
		c.Retrieval.VectorTopK = other.Retrieval.VectorTopK
	}
	if other.Retrieval.RerankTopK != 0 {
		c.Retrieval.RerankTopK = other.Retrieval.RerankTopK
	}
	if other.Retrieval.ContextTopK != 0 {
		c.Retrieval.ContextTopK = other.Retrieval.ContextTopK
	}

	if other.Chunking.ChunkSize != 0 {
		c.Chunking.ChunkSize = other.Chunking.ChunkSize
	}
	if other.Chunking.ChunkOverlap != 0 {
		c.Chunking.ChunkOverlap = other.Chunking.ChunkOverlap
	}
	if other.Chunking.MinChunkChars != 0 {
		c.Chunking.MinChunkChars = other.Chunking.MinChunkChars
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.LLM.Model != "" {
		c.LLM.Model = other.LLM.Model
	}
	if other.LLM.Temperature != 0 {
		c.LLM.Temperature = other.LLM.Temperature
	}
	if other.LLM.MaxTokens != 0 {
		c.LLM.MaxTokens = other.LLM.MaxTokens
	}

	if other.Reranker.Provider != "" {
		c.Reranker.Provider = other.Reranker.Provider
	}
	if other.Reranker.Endpoint != "" {
		c.Reranker.Endpoint = other.Reranker.Endpoint
	}
	if other.Reranker.TimeoutSeconds != 0 {
		c.Reranker.TimeoutSeconds = other.Reranker.TimeoutSeconds
	}

	if other.Conversation.MaxHistory != 0 {
		c.Conversation.MaxHistory = other.Conversation.MaxHistory
	}
	if other.Conversation.SystemPrompt != "" {
		c.Conversation.SystemPrompt = other.Conversation.SystemPrompt
	}

	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

// applyEnvOverrides applies DOCRAG_* environment variables. Environment
// variables take precedence over file configuration.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCRAG_DOCUMENTS_DIR"); v != "" {
		c.Paths.DocumentsDir = v
	}
	if v := os.Getenv("DOCRAG_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("DOCRAG_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("DOCRAG_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("DOCRAG_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("DOCRAG_RERANKER_ENDPOINT"); v != "" {
		c.Reranker.Endpoint = v
	}
	if v := os.Getenv("DOCRAG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DOCRAG_INDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Performance.IndexWorkers = n
		}
	}
}

// Validate checks the configuration for values that would break indexing or
// retrieval. It returns the first problem found.
func (c *Config) Validate() error {
	if c.Retrieval.LexicalTopK < 0 {
		return fmt.Errorf("retrieval.lexical_top_k must be >= 0, got %d", c.Retrieval.LexicalTopK)
	}
	if c.Retrieval.VectorTopK < 0 {
		return fmt.Errorf("retrieval.vector_top_k must be >= 0, got %d", c.Retrieval.VectorTopK)
	}
	if c.Retrieval.RerankTopK <= 0 {
		return fmt.Errorf("retrieval.rerank_top_k must be > 0, got %d", c.Retrieval.RerankTopK)
	}
	if c.Retrieval.ContextTopK <= 0 {
		return fmt.Errorf("retrieval.context_top_k must be > 0, got %d", c.Retrieval.ContextTopK)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be > 0, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap must be in [0, chunk_size), got %d", c.Chunking.ChunkOverlap)
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be > 0, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be > 0, got %d", c.Embeddings.BatchSize)
	}
	switch c.Reranker.Provider {
	case "none", "http":
	default:
		return fmt.Errorf("reranker.provider must be \"none\" or \"http\", got %q", c.Reranker.Provider)
	}
	if c.Conversation.MaxHistory <= 0 {
		return fmt.Errorf("conversation.max_history must be > 0, got %d", c.Conversation.MaxHistory)
	}
	if c.Performance.IndexWorkers <= 0 {
		return fmt.Errorf("performance.index_workers must be > 0, got %d", c.Performance.IndexWorkers)
	}
	return nil
}

// SystemPromptOrDefault returns the configured system prompt, falling back to
// DefaultSystemPrompt when unset.
func (c *Config) SystemPromptOrDefault() string {
	if c.Conversation.SystemPrompt != "" {
		return c.Conversation.SystemPrompt
	}
	return DefaultSystemPrompt
}

// SnapshotPath returns the path of the persisted index snapshot.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.Paths.DataDir, "snapshot.json")
}

// LockPath returns the path of the cross-process writer lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "snapshot.lock")
}

// WriteYAML writes the configuration to the given path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
