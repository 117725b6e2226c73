package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docrag/docrag/internal/chunk"
	"github.com/docrag/docrag/internal/embed"
	ragerrors "github.com/docrag/docrag/internal/errors"
	"github.com/docrag/docrag/internal/scanner"
	"github.com/docrag/docrag/internal/snapshot"
)

// ErrDimensionChanged is returned when the embedder's dimensionality no
// longer matches the previous snapshot. The previous snapshot stays intact;
// a forced full rebuild resolves the conflict.
type ErrDimensionChanged struct {
	Snapshot int
	Embedder int
}

func (e *ErrDimensionChanged) Error() string {
	return fmt.Sprintf("embedding dimensions changed: snapshot has %d, embedder produces %d (run a forced full rebuild)",
		e.Snapshot, e.Embedder)
}

// BuildReport summarizes what a rebuild did.
type BuildReport struct {
	Added     int `json:"added"`
	Modified  int `json:"modified"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`

	// ChunksReused counts chunks carried over from the previous snapshot
	// without re-embedding.
	ChunksReused int `json:"chunksReused"`

	// ChunksEmbedded counts newly generated embeddings.
	ChunksEmbedded int `json:"chunksEmbedded"`

	// Skipped lists files that hit per-file failures during this build.
	// A previously indexed file listed here keeps its prior chunks.
	Skipped []FileError `json:"skipped,omitempty"`

	Duration time.Duration `json:"duration"`
}

// Builder produces snapshots from change sets.
type Builder struct {
	chunker  *chunk.SentenceChunker
	embedder embed.Embedder

	// workers bounds concurrent per-file extraction.
	workers int
}

// NewBuilder creates a builder. workers <= 0 means serial extraction.
func NewBuilder(chunker *chunk.SentenceChunker, embedder embed.Embedder, workers int) *Builder {
	if workers <= 0 {
		workers = 1
	}
	return &Builder{
		chunker:  chunker,
		embedder: embedder,
		workers:  workers,
	}
}

// extraction is the result of segmenting and chunking one file.
type extraction struct {
	path   string
	chunks []*snapshot.Chunk
	err    error
}

// Rebuild produces a new snapshot from the change set. Chunks and embeddings
// of unchanged files are carried over from prev without modification; added
// and modified files are re-extracted in parallel and re-embedded in
// batches. Removed files simply contribute nothing. Per-file extraction
// failures skip the file and continue; an embedding failure or a dimension
// inconsistency aborts the whole build with prev untouched.
func (b *Builder) Rebuild(ctx context.Context, changes *ChangeSet, files []*scanner.FileInfo, prev *snapshot.Snapshot) (*snapshot.Snapshot, *BuildReport, error) {
	start := time.Now()

	dims := b.embedder.Dimensions()
	if prev != nil && len(changes.Unchanged) > 0 && prev.Dimensions != dims {
		return nil, nil, &ErrDimensionChanged{Snapshot: prev.Dimensions, Embedder: dims}
	}

	report := &BuildReport{
		Added:     len(changes.Added),
		Modified:  len(changes.Modified),
		Removed:   len(changes.Removed),
		Unchanged: len(changes.Unchanged),
		Skipped:   append([]FileError(nil), changes.Failed...),
	}

	next := snapshot.New(dims)

	// Carry over unchanged files wholesale. The chunk structs and embedding
	// slices are shared with the previous snapshot, not copied: snapshots
	// are immutable, so sharing is safe and keeps reuse byte-identical.
	if prev != nil {
		unchanged := make(map[string]struct{}, len(changes.Unchanged))
		for _, path := range changes.Unchanged {
			unchanged[path] = struct{}{}
			next.Files[path] = changes.Records[path]
		}
		for _, c := range prev.Chunks {
			if _, keep := unchanged[c.SourceFile]; !keep {
				continue
			}
			next.Chunks = append(next.Chunks, c)
			next.Embeddings[c.ID] = prev.Embeddings[c.ID]
			report.ChunksReused++
		}
	}

	// Extract added and modified files in parallel.
	toExtract := append(append([]string{}, changes.Added...), changes.Modified...)
	sort.Strings(toExtract)

	infoByPath := make(map[string]*scanner.FileInfo, len(files))
	for _, f := range files {
		infoByPath[f.Path] = f
	}

	// Each goroutine writes its own slot, so no lock is needed.
	extractions := make([]extraction, len(toExtract))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, path := range toExtract {
		i, path := i, path
		g.Go(func() error {
			extractions[i] = b.extractFile(gctx, infoByPath[path], changes.Records[path])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("extraction failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Collect new chunks, skipping failed files.
	var newChunks []*snapshot.Chunk
	for _, ext := range extractions {
		if ext.err != nil {
			slog.Warn("skipping file after extraction failure",
				slog.String("path", ext.path),
				slog.String("error", ext.err.Error()))
			report.Skipped = append(report.Skipped, FileError{Path: ext.path, Err: ext.err.Error()})
			continue
		}
		next.Files[ext.path] = changes.Records[ext.path]
		newChunks = append(newChunks, ext.chunks...)
	}

	// Embed the new chunks in batches. A failure here aborts the build:
	// partial embedding coverage would violate the snapshot invariant.
	if len(newChunks) > 0 {
		texts := make([]string, len(newChunks))
		for i, c := range newChunks {
			texts[i] = c.Text
		}

		vectors, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, nil, fmt.Errorf("embedding failed, keeping previous snapshot: %w", err)
		}
		if len(vectors) != len(newChunks) {
			return nil, nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(newChunks))
		}
		for i, vec := range vectors {
			if len(vec) != dims {
				return nil, nil, &ErrDimensionChanged{Snapshot: dims, Embedder: len(vec)}
			}
			next.Chunks = append(next.Chunks, newChunks[i])
			next.Embeddings[newChunks[i].ID] = vec
		}
		report.ChunksEmbedded = len(newChunks)
	}

	if err := next.Validate(); err != nil {
		return nil, nil, fmt.Errorf("built snapshot failed validation: %w", err)
	}

	report.Duration = time.Since(start)
	slog.Info("snapshot built",
		slog.Int("files", len(next.Files)),
		slog.Int("chunks", len(next.Chunks)),
		slog.Int("reused", report.ChunksReused),
		slog.Int("embedded", report.ChunksEmbedded),
		slog.Int("skipped", len(report.Skipped)),
		slog.Duration("duration", report.Duration))

	return next, report, nil
}

// extractFile reads, segments, and chunks one file.
func (b *Builder) extractFile(ctx context.Context, info *scanner.FileInfo, record *snapshot.FileRecord) extraction {
	if info == nil || record == nil {
		return extraction{path: recordPath(info, record), err: fmt.Errorf("file disappeared during build")}
	}

	content, err := os.ReadFile(info.AbsPath)
	if err != nil {
		return extraction{path: info.Path, err: fmt.Errorf("read: %w", err)}
	}

	segmenter := chunk.SegmenterFor(filepath.Ext(info.Path))
	if segmenter == nil {
		return extraction{path: info.Path, err: fmt.Errorf("unsupported document type")}
	}

	segments, err := segmenter.Segment(ctx, &chunk.FileInput{Path: info.Path, Content: content})
	if err != nil {
		return extraction{path: info.Path, err: ragerrors.Wrap(ragerrors.ErrCodeExtractFailed, fmt.Errorf("segment: %w", err))}
	}

	pieces := b.chunker.Chunk(segments)
	chunks := make([]*snapshot.Chunk, 0, len(pieces))
	for _, p := range pieces {
		chunks = append(chunks, &snapshot.Chunk{
			ID:         snapshot.ChunkID(info.Path, p.Index, record.ContentHash),
			Text:       p.Text,
			SourceFile: info.Path,
			Page:       p.Page,
			Category:   info.Category,
			FileHash:   record.ContentHash,
		})
	}

	return extraction{path: info.Path, chunks: chunks}
}

func recordPath(info *scanner.FileInfo, record *snapshot.FileRecord) string {
	if info != nil {
		return info.Path
	}
	if record != nil {
		return record.Path
	}
	return "unknown"
}
