package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docrag/docrag/internal/config"
	"github.com/docrag/docrag/internal/embed"
)

// Engine runs hybrid retrieval against the current index generation.
type Engine struct {
	source   SourceProvider
	embedder embed.Embedder
	reranker Reranker
	cfg      config.RetrievalConfig
}

// NewEngine wires the retrieval pipeline. The provider is consulted once per
// query so every Retrieve observes exactly one index generation.
func NewEngine(source SourceProvider, embedder embed.Embedder, reranker Reranker, cfg config.RetrievalConfig) *Engine {
	return &Engine{
		source:   source,
		embedder: embedder,
		reranker: reranker,
		cfg:      cfg,
	}
}

// Retrieve returns at most ContextTopK chunks ranked by rerank score. An
// empty corpus or a query matching nothing yields an empty slice, not an
// error. A query before any successful build returns the provider's
// not-initialized error.
func (e *Engine) Retrieve(ctx context.Context, query string) ([]*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*Result{}, nil
	}

	src, err := e.source()
	if err != nil {
		return nil, err
	}

	start := time.Now()

	lexical, vector, err := e.parallelSearch(ctx, src, query)
	if err != nil {
		return nil, err
	}

	merged := mergeCandidates(lexical, vector)
	if len(merged) == 0 {
		return []*Result{}, nil
	}
	pool := truncateForRerank(merged, e.cfg.RerankTopK)

	ranked, err := e.rerank(ctx, src, query, pool)
	if err != nil {
		return nil, err
	}

	if len(ranked) > e.cfg.ContextTopK {
		ranked = ranked[:e.cfg.ContextTopK]
	}

	slog.Debug("retrieval complete",
		slog.Int("lexical", len(lexical)),
		slog.Int("vector", len(vector)),
		slog.Int("merged", len(merged)),
		slog.Int("reranked", len(pool)),
		slog.Int("returned", len(ranked)),
		slog.Duration("duration", time.Since(start)))

	return ranked, nil
}

// parallelSearch forks the lexical and vector lookups and joins their
// results. A failure in one branch is tolerated so the other branch's
// results still flow through; only both failing is an error.
func (e *Engine) parallelSearch(ctx context.Context, src Source, query string) ([]lexHit, []vecHit, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		lexical []lexHit
		vector  []vecHit
		lexErr  error
		vecErr  error
	)

	g.Go(func() error {
		results, err := src.SearchLexical(gctx, query, e.cfg.LexicalTopK)
		if err != nil {
			lexErr = err
			return nil
		}
		lexical = make([]lexHit, len(results))
		for i, r := range results {
			lexical[i] = lexHit{id: r.DocID, score: r.Score}
		}
		return nil
	})

	g.Go(func() error {
		embedding, err := e.embedder.Embed(gctx, query)
		if err != nil {
			vecErr = fmt.Errorf("query embedding failed: %w", err)
			return nil
		}
		results, err := src.SearchVector(gctx, embedding, e.cfg.VectorTopK)
		if err != nil {
			vecErr = err
			return nil
		}
		vector = make([]vecHit, len(results))
		for i, r := range results {
			vector[i] = vecHit{id: r.ID, score: float64(r.Score)}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if lexErr != nil && vecErr != nil {
		return nil, nil, errors.Join(lexErr, vecErr)
	}
	if lexErr != nil {
		slog.Warn("lexical search failed, continuing with vector results", slog.String("error", lexErr.Error()))
	}
	if vecErr != nil {
		slog.Warn("vector search failed, continuing with lexical results", slog.String("error", vecErr.Error()))
	}

	return lexical, vector, nil
}

// rerank scores the candidate pool and returns results sorted by score
// descending. The sort is stable: equal scores keep the pool order, which
// truncateForRerank made deterministic.
func (e *Engine) rerank(ctx context.Context, src Source, query string, pool []*Candidate) ([]*Result, error) {
	texts := make([]string, 0, len(pool))
	kept := make([]*Candidate, 0, len(pool))
	for _, c := range pool {
		chunk := src.Chunk(c.ChunkID)
		if chunk == nil {
			// A hit pointing at a chunk the snapshot no longer carries
			// would be an index bug; drop it rather than fail the query.
			slog.Warn("dropping candidate without a chunk", slog.String("chunkId", c.ChunkID))
			continue
		}
		texts = append(texts, chunk.Text)
		kept = append(kept, c)
	}

	scores, err := e.reranker.Rerank(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("rerank failed: %w", err)
	}

	scoreByIndex := make(map[int]float64, len(scores))
	for _, s := range scores {
		scoreByIndex[s.Index] = s.Score
	}

	results := make([]*Result, len(kept))
	for i, c := range kept {
		results[i] = &Result{
			Chunk:  src.Chunk(c.ChunkID),
			Score:  scoreByIndex[i],
			Source: c.Source,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results, nil
}
