package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Defaults
// ============================================================================

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, 20, cfg.Retrieval.LexicalTopK)
	assert.Equal(t, 20, cfg.Retrieval.VectorTopK)
	assert.Equal(t, 40, cfg.Retrieval.RerankTopK)
	assert.Equal(t, 6, cfg.Retrieval.ContextTopK)
	assert.Equal(t, 5, cfg.Chunking.ChunkSize)
	assert.Equal(t, 2, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, 40, cfg.Chunking.MinChunkChars)
	assert.Equal(t, 1536, cfg.Embeddings.Dimensions)
	assert.Equal(t, "none", cfg.Reranker.Provider)
	assert.Equal(t, 10, cfg.Conversation.MaxHistory)
	assert.Greater(t, cfg.Performance.IndexWorkers, 0)
}

func TestNewConfig_DefaultsAreValid(t *testing.T) {
	require.NoError(t, NewConfig().Validate())
}

// ============================================================================
// Loading and merging
// ============================================================================

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	// Given an empty directory
	dir := t.TempDir()

	// When loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then defaults apply
	assert.Equal(t, 5, cfg.Chunking.ChunkSize)
	assert.Equal(t, "text-embedding-3-small", cfg.Embeddings.Model)
}

func TestLoad_ProjectConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
retrieval:
  lexical_top_k: 50
  context_top_k: 3
chunking:
  chunk_size: 8
  chunk_overlap: 3
reranker:
  provider: http
  endpoint: http://localhost:9000/rerank
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docrag.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Retrieval.LexicalTopK)
	assert.Equal(t, 3, cfg.Retrieval.ContextTopK)
	assert.Equal(t, 8, cfg.Chunking.ChunkSize)
	assert.Equal(t, 3, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, "http", cfg.Reranker.Provider)
	assert.Equal(t, "http://localhost:9000/rerank", cfg.Reranker.Endpoint)

	// Untouched sections keep their defaults.
	assert.Equal(t, 20, cfg.Retrieval.VectorTopK)
	assert.Equal(t, 10, cfg.Conversation.MaxHistory)
}

func TestLoad_YmlFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docrag.yml"),
		[]byte("conversation:\n  max_history: 4\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Conversation.MaxHistory)
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docrag.yaml"),
		[]byte("retrieval: [not a map"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docrag.yaml"),
		[]byte("logging:\n  level: debug\n"), 0o644))
	t.Setenv("DOCRAG_LOG_LEVEL", "warn")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

// ============================================================================
// Validation
// ============================================================================

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative lexical top-k", func(c *Config) { c.Retrieval.LexicalTopK = -1 }},
		{"zero rerank top-k", func(c *Config) { c.Retrieval.RerankTopK = 0 }},
		{"zero context top-k", func(c *Config) { c.Retrieval.ContextTopK = 0 }},
		{"zero chunk size", func(c *Config) { c.Chunking.ChunkSize = 0 }},
		{"overlap >= chunk size", func(c *Config) { c.Chunking.ChunkOverlap = c.Chunking.ChunkSize }},
		{"zero dimensions", func(c *Config) { c.Embeddings.Dimensions = 0 }},
		{"unknown reranker provider", func(c *Config) { c.Reranker.Provider = "grpc" }},
		{"zero max history", func(c *Config) { c.Conversation.MaxHistory = 0 }},
		{"zero index workers", func(c *Config) { c.Performance.IndexWorkers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// ============================================================================
// Paths and round-trip
// ============================================================================

func TestSnapshotPath(t *testing.T) {
	cfg := NewConfig()
	cfg.Paths.DataDir = "/tmp/docrag-data"

	assert.Equal(t, filepath.Join("/tmp/docrag-data", "snapshot.json"), cfg.SnapshotPath())
	assert.Equal(t, filepath.Join("/tmp/docrag-data", "snapshot.lock"), cfg.LockPath())
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Retrieval.ContextTopK = 9
	cfg.Paths.DocumentsDir = "corpus"

	path := filepath.Join(dir, "docrag.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Retrieval.ContextTopK)
	assert.Equal(t, "corpus", loaded.Paths.DocumentsDir)
}

func TestSystemPromptOrDefault(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, DefaultSystemPrompt, cfg.SystemPromptOrDefault())

	cfg.Conversation.SystemPrompt = "answer tersely"
	assert.Equal(t, "answer tersely", cfg.SystemPromptOrDefault())
}
