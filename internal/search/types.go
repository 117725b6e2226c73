// Package search implements hybrid retrieval: lexical and vector lookups run
// in parallel, their candidates are merged and deduplicated by chunk ID,
// truncated deterministically, reranked, and the top results returned as
// generation context.
package search

import (
	"context"

	"github.com/docrag/docrag/internal/snapshot"
	"github.com/docrag/docrag/internal/store"
)

// SourceTag records which lookup produced a candidate.
type SourceTag string

const (
	SourceLexical SourceTag = "lexical"
	SourceVector  SourceTag = "vector"
	SourceBoth    SourceTag = "both"
)

// Candidate is an ephemeral per-query retrieval candidate. Scores from the
// two lookups are not comparable with each other; they only matter within
// their own source until the reranker assigns a single relevance score.
type Candidate struct {
	ChunkID  string
	LexScore float64
	VecScore float64
	Source   SourceTag
}

// singleScore returns the one score a single-source candidate carries.
func (c *Candidate) singleScore() float64 {
	if c.Source == SourceVector {
		return c.VecScore
	}
	return c.LexScore
}

// Result is one retrieved chunk with its final rerank score.
type Result struct {
	Chunk  *snapshot.Chunk
	Score  float64
	Source SourceTag
}

// Source is the read view of a live index generation. A value obtained once
// is immutable, so both lookups of one query observe the same state.
type Source interface {
	SearchLexical(ctx context.Context, query string, k int) ([]*store.BM25Result, error)
	SearchVector(ctx context.Context, vector []float32, k int) ([]*store.VectorResult, error)
	Chunk(id string) *snapshot.Chunk
	Dimensions() int
}

// SourceProvider yields the current Source, or an error when no index has
// been built yet.
type SourceProvider func() (Source, error)
