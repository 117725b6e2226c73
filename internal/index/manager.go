package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	ragerrors "github.com/docrag/docrag/internal/errors"
	"github.com/docrag/docrag/internal/scanner"
	"github.com/docrag/docrag/internal/snapshot"
	"github.com/docrag/docrag/internal/store"
)

// ErrRebuildInProgress is returned when a rebuild is requested while another
// one is running.
var ErrRebuildInProgress = errors.New("a rebuild is already in progress")

// ErrNotInitialized is returned by Current before any snapshot has been
// loaded or built.
var ErrNotInitialized = errors.New("index not initialized: run an index build first")

// ErrLocked is returned when another process holds the snapshot lock.
var ErrLocked = errors.New("snapshot is locked by another process")

// Live is a published index state: an immutable snapshot plus the in-memory
// indexes built from it. Readers share a Live freely; rebuilds never mutate
// one, they publish a replacement.
type Live struct {
	Snapshot *snapshot.Snapshot

	bm25    store.BM25Index
	vectors store.VectorIndex
	chunks  map[string]*snapshot.Chunk
}

// SearchLexical runs a BM25 query against this state.
func (l *Live) SearchLexical(ctx context.Context, query string, k int) ([]*store.BM25Result, error) {
	return l.bm25.Search(ctx, query, k)
}

// SearchVector runs a nearest-neighbor query against this state.
func (l *Live) SearchVector(ctx context.Context, vector []float32, k int) ([]*store.VectorResult, error) {
	return l.vectors.Search(ctx, vector, k)
}

// Chunk returns the chunk with the given ID, or nil.
func (l *Live) Chunk(id string) *snapshot.Chunk {
	return l.chunks[id]
}

// Dimensions returns the embedding width of this state.
func (l *Live) Dimensions() int {
	return l.Snapshot.Dimensions
}


// Manager owns the snapshot lifecycle: loading at startup, rebuilding on
// demand, persisting, and publishing. There is exactly one writer at a time,
// enforced in-process by a mutex and across processes by a file lock;
// readers are never blocked.
type Manager struct {
	store    *snapshot.Store
	lockPath string
	builder  *Builder
	sc       *scanner.Scanner
	scanOpts *scanner.ScanOptions

	buildMu sync.Mutex
	current atomic.Pointer[Live]
}

// NewManager creates a manager. The builder defines how snapshots are
// produced; scanOpts defines the corpus.
func NewManager(snapStore *snapshot.Store, lockPath string, builder *Builder, sc *scanner.Scanner, scanOpts *scanner.ScanOptions) *Manager {
	return &Manager{
		store:    snapStore,
		lockPath: lockPath,
		builder:  builder,
		sc:       sc,
		scanOpts: scanOpts,
	}
}

// Load restores the persisted snapshot, if any, and publishes it. A schema
// mismatch or corruption is reported to the caller with the file left on
// disk; the manager simply stays uninitialized.
func (m *Manager) Load(ctx context.Context) error {
	snap, err := m.store.Load()
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			slog.Info("no snapshot on disk, index starts empty")
			return nil
		}
		code := ragerrors.ErrCodeSnapshotCorrupt
		var schemaErr *snapshot.ErrSchemaVersion
		if errors.As(err, &schemaErr) {
			code = ragerrors.ErrCodeSnapshotSchema
		}
		return ragerrors.Wrap(code, fmt.Errorf("failed to load snapshot: %w", err)).
			WithSuggestion("run 'docrag index --force' to rebuild the index from scratch")
	}

	live, err := buildLive(ctx, snap)
	if err != nil {
		return fmt.Errorf("failed to rebuild indexes from snapshot: %w", err)
	}

	m.publish(live)
	slog.Info("snapshot loaded",
		slog.Int("files", len(snap.Files)),
		slog.Int("chunks", len(snap.Chunks)))
	return nil
}

// Current returns the published state, or ErrNotInitialized.
func (m *Manager) Current() (*Live, error) {
	live := m.current.Load()
	if live == nil {
		return nil, ErrNotInitialized
	}
	return live, nil
}

// Stats returns the published snapshot's stats, or ErrNotInitialized.
func (m *Manager) Stats() (snapshot.Stats, error) {
	live, err := m.Current()
	if err != nil {
		return snapshot.Stats{}, err
	}
	return live.Snapshot.Stats(), nil
}

// Refresh scans the corpus, rebuilds incrementally against the current
// snapshot, persists the result, and publishes it. force discards the
// previous snapshot and rebuilds everything. Readers keep the old state
// until the new one is fully built and persisted; a failure at any point
// leaves both the published state and the file on disk untouched.
func (m *Manager) Refresh(ctx context.Context, force bool) (*BuildReport, error) {
	if !m.buildMu.TryLock() {
		return nil, ErrRebuildInProgress
	}
	defer m.buildMu.Unlock()

	// Cross-process writer exclusion around persist.
	if err := os.MkdirAll(filepath.Dir(m.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	fileLock := flock.New(m.lockPath)
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire snapshot lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	defer func() { _ = fileLock.Unlock() }()

	files, err := m.sc.ScanAll(ctx, m.scanOpts)
	if err != nil {
		return nil, fmt.Errorf("corpus scan failed: %w", err)
	}

	var prev *snapshot.Snapshot
	if live := m.current.Load(); live != nil && !force {
		prev = live.Snapshot
	}

	var previous map[string]*snapshot.FileRecord
	if prev != nil {
		previous = prev.Files
	}

	changes := DetectChanges(files, previous)
	slog.Info("change detection complete", slog.String("changes", changes.Summary()))

	if prev != nil && !changes.HasWork() && len(changes.Failed) == 0 {
		slog.Info("corpus unchanged, keeping current snapshot")
		return &BuildReport{Unchanged: len(changes.Unchanged)}, nil
	}

	next, report, err := m.builder.Rebuild(ctx, changes, files, prev)
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(next); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	live, err := buildLive(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("failed to build in-memory indexes: %w", err)
	}

	m.publish(live)
	return report, nil
}

// publish swaps in the new state. The superseded state is not closed:
// readers that grabbed it before the swap may still be querying it, and the
// in-memory indexes are plain Go structures the collector reclaims once the
// last reader lets go.
func (m *Manager) publish(live *Live) {
	m.current.Store(live)
}

// buildLive constructs the in-memory indexes for a snapshot.
func buildLive(ctx context.Context, snap *snapshot.Snapshot) (*Live, error) {
	bm25, err := store.NewBleveBM25Index()
	if err != nil {
		return nil, err
	}

	dims := snap.Dimensions
	if dims <= 0 {
		// Empty first build with no chunks: use a placeholder width so the
		// vector index can exist. Nothing will be added to it.
		dims = 1
	}
	vectors, err := store.NewHNSWIndex(store.DefaultVectorIndexConfig(dims))
	if err != nil {
		_ = bm25.Close()
		return nil, err
	}

	docs := make([]*store.Document, 0, len(snap.Chunks))
	ids := make([]string, 0, len(snap.Chunks))
	vecs := make([][]float32, 0, len(snap.Chunks))
	chunks := make(map[string]*snapshot.Chunk, len(snap.Chunks))

	for _, c := range snap.Chunks {
		docs = append(docs, &store.Document{ID: c.ID, Content: c.Text})
		ids = append(ids, c.ID)
		vecs = append(vecs, snap.Embeddings[c.ID])
		chunks[c.ID] = c
	}

	if err := bm25.Index(ctx, docs); err != nil {
		_ = bm25.Close()
		_ = vectors.Close()
		return nil, fmt.Errorf("lexical indexing failed: %w", err)
	}
	if err := vectors.Add(ctx, ids, vecs); err != nil {
		_ = bm25.Close()
		_ = vectors.Close()
		return nil, fmt.Errorf("vector indexing failed: %w", err)
	}

	return &Live{
		Snapshot: snap,
		bm25:     bm25,
		vectors:  vectors,
		chunks:   chunks,
	}, nil
}
