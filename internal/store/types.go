// Package store provides the in-memory retrieval indexes: a BM25 lexical
// index backed by Bleve and an HNSW vector index. Both are ephemeral; they
// are rebuilt from a snapshot on startup and after every index build.
package store

import (
	"context"
	"fmt"
)

// Document is a unit of text handed to the lexical index.
type Document struct {
	// ID is the chunk ID.
	ID string

	// Content is the chunk text.
	Content string
}

// BM25Result is one lexical search hit.
type BM25Result struct {
	// DocID is the chunk ID.
	DocID string

	// Score is the BM25 relevance score. Higher is better.
	Score float64
}

// VectorResult is one vector search hit.
type VectorResult struct {
	// ID is the chunk ID.
	ID string

	// Distance is the raw metric distance to the query.
	Distance float32

	// Score is the similarity in [0, 1]. Higher is better.
	Score float32
}

// ErrDimensionMismatch is returned when a vector's width does not match the
// index's configured dimensions.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// BM25Index is the lexical index interface.
type BM25Index interface {
	// Index adds documents. Existing IDs are replaced.
	Index(ctx context.Context, docs []*Document) error

	// Search returns up to limit documents matching the query, best first.
	// An empty or non-matching query returns an empty slice.
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)

	// Count returns the number of indexed documents.
	Count() (int, error)

	// Close releases resources.
	Close() error
}

// VectorIndex is the vector index interface.
type VectorIndex interface {
	// Add inserts vectors keyed by chunk ID. Existing IDs are replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search returns up to k nearest neighbors to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Count returns the number of live vectors.
	Count() int

	// Dimensions returns the configured vector width.
	Dimensions() int

	// Close releases resources.
	Close() error
}

// VectorIndexConfig configures the HNSW index.
type VectorIndexConfig struct {
	// Dimensions is the required vector width.
	Dimensions int

	// Metric is "cos" or "l2" (default "cos").
	Metric string

	// M is the HNSW connectivity parameter (default 16).
	M int

	// EfSearch is the HNSW search expansion factor (default 20).
	EfSearch int
}

// DefaultVectorIndexConfig returns the default HNSW configuration for the
// given dimensionality.
func DefaultVectorIndexConfig(dimensions int) VectorIndexConfig {
	return VectorIndexConfig{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   20,
	}
}
