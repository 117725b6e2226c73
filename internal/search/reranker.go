package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/docrag/docrag/internal/config"
	ragerrors "github.com/docrag/docrag/internal/errors"
)

// RerankResult is one reranker score, keyed by the candidate's position in
// the submitted document list.
type RerankResult struct {
	Index int
	Score float64
}

// Reranker assigns a single relevance score to each candidate document.
type Reranker interface {
	// Rerank scores documents against the query. Results may come back in
	// any order; Index ties each score to its input document.
	Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error)

	// Close releases resources.
	Close() error
}

// NoOpReranker preserves the incoming candidate order: every document gets
// a zero score, so a stable sort downstream changes nothing.
type NoOpReranker struct{}

var _ Reranker = (*NoOpReranker)(nil)

func (NoOpReranker) Rerank(_ context.Context, _ string, documents []string) ([]RerankResult, error) {
	results := make([]RerankResult, len(documents))
	for i := range documents {
		results[i] = RerankResult{Index: i}
	}
	return results, nil
}

func (NoOpReranker) Close() error { return nil }

const defaultRerankTimeout = 30 * time.Second

// HTTPReranker calls a local cross-encoder service over HTTP. The service
// accepts a POST of {query, documents} on /rerank and returns one score per
// document.
type HTTPReranker struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
}

var _ Reranker = (*HTTPReranker)(nil)

// NewHTTPReranker creates a reranker client. No connection is made until the
// first call.
func NewHTTPReranker(endpoint string, timeout time.Duration) *HTTPReranker {
	if timeout <= 0 {
		timeout = defaultRerankTimeout
	}
	return &HTTPReranker{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		endpoint: endpoint,
		timeout:  timeout,
	}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

func (r *HTTPReranker) Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error) {
	if len(documents) == 0 {
		return []RerankResult{}, nil
	}

	start := time.Now()

	body, err := json.Marshal(rerankRequest{Query: query, Documents: documents})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, r.endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, ragerrors.Wrap(ragerrors.ErrCodeRerankerAPI, fmt.Errorf("rerank request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, ragerrors.Wrap(ragerrors.ErrCodeRerankerAPI,
			fmt.Errorf("rerank failed (status %d): %s", resp.StatusCode, string(msg)))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	results := make([]RerankResult, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		if item.Index < 0 || item.Index >= len(documents) {
			return nil, fmt.Errorf("rerank response index %d out of range for %d documents", item.Index, len(documents))
		}
		results = append(results, RerankResult{Index: item.Index, Score: item.Score})
	}

	slog.Debug("rerank complete",
		slog.Int("documents", len(documents)),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

func (r *HTTPReranker) Close() error {
	if transport, ok := r.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}

// NewRerankerFromConfig picks the reranker implementation by provider name.
func NewRerankerFromConfig(cfg *config.RerankerConfig) (Reranker, error) {
	switch cfg.Provider {
	case "", "none":
		return NoOpReranker{}, nil
	case "http":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("reranker provider %q requires an endpoint", cfg.Provider)
		}
		return NewHTTPReranker(cfg.Endpoint, time.Duration(cfg.TimeoutSeconds)*time.Second), nil
	default:
		return nil, fmt.Errorf("unknown reranker provider %q", cfg.Provider)
	}
}
