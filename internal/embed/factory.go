package embed

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/docrag/docrag/internal/config"
)

// NewFromConfig creates the configured embedder, wrapped in an LRU cache.
//
// Provider selection:
//   - "openai": OpenAI embeddings API, requires OPENAI_API_KEY
//   - "static": deterministic hash-based embedder, no dependencies
//   - "": openai when OPENAI_API_KEY is set, static otherwise
func NewFromConfig(cfg *config.Config) (Embedder, error) {
	provider := cfg.Embeddings.Provider
	if provider == "" {
		if os.Getenv("OPENAI_API_KEY") != "" {
			provider = "openai"
		} else {
			provider = "static"
		}
		slog.Debug("auto-selected embedding provider", slog.String("provider", provider))
	}

	var inner Embedder
	switch provider {
	case "openai":
		e, err := NewOpenAIEmbedder("", cfg.Embeddings.Model, cfg.Embeddings.Dimensions, cfg.Embeddings.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai embedder: %w", err)
		}
		inner = e
	case "static":
		inner = NewStaticEmbedder()
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}

	slog.Info("embedder ready",
		slog.String("provider", provider),
		slog.String("model", inner.ModelName()),
		slog.Int("dimensions", inner.Dimensions()))

	return NewCachedEmbedder(inner, cfg.Embeddings.CacheSize), nil
}
