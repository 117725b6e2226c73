package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docrag/docrag/internal/chunk"
	"github.com/docrag/docrag/internal/embed"
	"github.com/docrag/docrag/internal/snapshot"
)

const docAlpha = "The migration guide covers schema versions. Each version bump requires " +
	"a fresh export. Operators should read the release notes first. Rollbacks " +
	"restore the previous export from backup. Validation runs before any swap."

const docBeta = "Billing invoices are generated monthly. Each invoice lists usage per " +
	"project. Disputes must be filed within thirty days. Refunds are issued to " +
	"the original payment method. Contact support for anything unusual."

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(chunk.NewSentenceChunker(3, 1, 10), embed.NewStaticEmbedder(), 4)
}

// dimEmbedder reports a different dimension than the vectors it produces
// came from, standing in for an embedding model swap between runs.
type dimEmbedder struct {
	embed.Embedder
	dims int
}

func (d *dimEmbedder) Dimensions() int { return d.dims }

func buildOnce(t *testing.T, b *Builder, dir string) *snapshot.Snapshot {
	t.Helper()
	files := scanDir(t, dir)
	changes := DetectChanges(files, nil)
	snap, _, err := b.Rebuild(context.Background(), changes, files, nil)
	require.NoError(t, err)
	return snap
}

func TestRebuild_FreshBuild(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "guides/alpha.txt", docAlpha)
	writeDoc(t, dir, "billing/beta.txt", docBeta)

	b := newTestBuilder(t)
	files := scanDir(t, dir)
	changes := DetectChanges(files, nil)

	snap, report, err := b.Rebuild(context.Background(), changes, files, nil)
	require.NoError(t, err)

	assert.Len(t, snap.Files, 2)
	assert.NotEmpty(t, snap.Chunks)
	assert.Len(t, snap.Embeddings, len(snap.Chunks))
	assert.Equal(t, embed.StaticDimensions, snap.Dimensions)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, len(snap.Chunks), report.ChunksEmbedded)
	assert.Zero(t, report.ChunksReused)
	require.NoError(t, snap.Validate())

	// Category comes from the top-level directory.
	for _, c := range snap.Chunks {
		if c.SourceFile == "guides/alpha.txt" {
			assert.Equal(t, "guides", c.Category)
		}
	}
}

func TestRebuild_UppercaseExtensionIndexed(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "NOTES.TXT", docAlpha)

	b := newTestBuilder(t)
	files := scanDir(t, dir)
	changes := DetectChanges(files, nil)
	require.Equal(t, []string{"NOTES.TXT"}, changes.Added)

	snap, report, err := b.Rebuild(context.Background(), changes, files, nil)
	require.NoError(t, err)

	assert.Empty(t, report.Skipped)
	assert.Contains(t, snap.Files, "NOTES.TXT")
	assert.NotEmpty(t, snap.Chunks)
}

func TestRebuild_UnchangedChunksSharedByteIdentical(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "alpha.txt", docAlpha)
	writeDoc(t, dir, "beta.txt", docBeta)

	b := newTestBuilder(t)
	prev := buildOnce(t, b, dir)

	writeDoc(t, dir, "beta.txt", docBeta+" A new closing sentence was appended here.")

	files := scanDir(t, dir)
	changes := DetectChanges(files, prev.Files)
	require.Equal(t, []string{"beta.txt"}, changes.Modified)
	require.Equal(t, []string{"alpha.txt"}, changes.Unchanged)

	next, report, err := b.Rebuild(context.Background(), changes, files, prev)
	require.NoError(t, err)
	require.NoError(t, next.Validate())

	prevByID := make(map[string]*snapshot.Chunk)
	for _, c := range prev.Chunks {
		prevByID[c.ID] = c
	}

	reused := 0
	for _, c := range next.Chunks {
		if c.SourceFile != "alpha.txt" {
			continue
		}
		reused++
		// Carried-over chunks and embeddings are the previous snapshot's
		// own structs and slices, not re-derived copies.
		require.Contains(t, prevByID, c.ID)
		assert.Same(t, prevByID[c.ID], c)
		prevVec := prev.Embeddings[c.ID]
		nextVec := next.Embeddings[c.ID]
		require.NotEmpty(t, nextVec)
		assert.True(t, &prevVec[0] == &nextVec[0], "embedding should share backing storage")
	}
	assert.Positive(t, reused)
	assert.Equal(t, reused, report.ChunksReused)
	assert.Positive(t, report.ChunksEmbedded)
}

func TestRebuild_RemovalDropsOwnedChunks(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "alpha.txt", docAlpha)
	writeDoc(t, dir, "beta.txt", docBeta)

	b := newTestBuilder(t)
	prev := buildOnce(t, b, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, "beta.txt")))

	files := scanDir(t, dir)
	changes := DetectChanges(files, prev.Files)
	require.Equal(t, []string{"beta.txt"}, changes.Removed)

	next, report, err := b.Rebuild(context.Background(), changes, files, prev)
	require.NoError(t, err)

	assert.NotContains(t, next.Files, "beta.txt")
	for _, c := range next.Chunks {
		assert.NotEqual(t, "beta.txt", c.SourceFile)
	}
	assert.Equal(t, 1, report.Removed)
	assert.Zero(t, report.ChunksEmbedded)
	require.NoError(t, next.Validate())
}

func TestRebuild_DimensionChangeAborts(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "alpha.txt", docAlpha)

	b := newTestBuilder(t)
	prev := buildOnce(t, b, dir)

	swapped := NewBuilder(chunk.NewSentenceChunker(3, 1, 10),
		&dimEmbedder{Embedder: embed.NewStaticEmbedder(), dims: 768}, 4)

	files := scanDir(t, dir)
	changes := DetectChanges(files, prev.Files)
	require.Equal(t, []string{"alpha.txt"}, changes.Unchanged)

	_, _, err := swapped.Rebuild(context.Background(), changes, files, prev)

	var dimErr *ErrDimensionChanged
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, embed.StaticDimensions, dimErr.Snapshot)
	assert.Equal(t, 768, dimErr.Embedder)
}

type failingEmbedder struct {
	embed.Embedder
}

func (f *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("provider unavailable")
}

func TestRebuild_EmbeddingFailureAbortsWholeBuild(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "alpha.txt", docAlpha)

	b := NewBuilder(chunk.NewSentenceChunker(3, 1, 10),
		&failingEmbedder{Embedder: embed.NewStaticEmbedder()}, 4)

	files := scanDir(t, dir)
	_, _, err := b.Rebuild(context.Background(), DetectChanges(files, nil), files, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "keeping previous snapshot")
}

func TestRebuild_CorruptFileSkippedOthersSucceed(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "alpha.txt", docAlpha)
	writeDoc(t, dir, "broken.pdf", "this is not a real pdf payload")

	b := newTestBuilder(t)
	files := scanDir(t, dir)
	changes := DetectChanges(files, nil)
	require.Len(t, changes.Added, 2)

	snap, report, err := b.Rebuild(context.Background(), changes, files, nil)
	require.NoError(t, err)

	// The corrupt file is excluded entirely so no orphaned record survives.
	assert.NotContains(t, snap.Files, "broken.pdf")
	assert.Contains(t, snap.Files, "alpha.txt")
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "broken.pdf", report.Skipped[0].Path)
	require.NoError(t, snap.Validate())
}
