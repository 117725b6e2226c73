// Package snapshot defines the persisted index snapshot: every chunk, its
// embedding, and the file fingerprints they were derived from. A snapshot is
// the single source of truth for incremental rebuilds; the in-memory lexical
// and vector indexes are always reconstructed from one.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// SchemaVersion is the current snapshot schema. Snapshots written with a
// different version are rejected on load and a full rebuild is required.
const SchemaVersion = 1

// FileRecord captures the identity of an indexed file at build time.
type FileRecord struct {
	// Path is the file's path relative to the corpus root.
	Path string `json:"path"`

	// ContentHash is the hex sha256 fingerprint of the file's bytes.
	ContentHash string `json:"contentHash"`

	// Size and ModTime are kept as a cheap prefilter: when both are
	// unchanged the content is assumed unchanged without rehashing.
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Chunk is one retrievable unit of text.
type Chunk struct {
	// ID is deterministic: identical source file, position, and content
	// always produce the same ID. See ChunkID.
	ID string `json:"id"`

	// Text is the chunk content handed to the lexical index, the embedder,
	// and the reranker.
	Text string `json:"text"`

	// SourceFile is the relative path of the owning file.
	SourceFile string `json:"sourceFile"`

	// Page is the 1-based page number within the source document. Plain
	// text documents are a single page.
	Page int `json:"page"`

	// Category is the corpus subdirectory the source file lives under.
	Category string `json:"category,omitempty"`

	// FileHash is the ContentHash of the owning file at build time.
	FileHash string `json:"fileHash"`
}

// Snapshot is a complete, self-consistent index state. Snapshots are
// immutable once built: readers share them freely and rebuilds produce a new
// one.
type Snapshot struct {
	SchemaVersion int       `json:"schemaVersion"`
	CreatedAt     time.Time `json:"createdAt"`

	// Dimensions is the embedding width every vector in this snapshot has.
	Dimensions int `json:"dimensions"`

	// Chunks holds every chunk, keyed position implied by order.
	Chunks []*Chunk `json:"chunks"`

	// Embeddings maps chunk ID to its embedding vector. Keys match Chunks
	// exactly in both directions.
	Embeddings map[string][]float32 `json:"embeddings"`

	// Files maps relative path to the record of the indexed version.
	Files map[string]*FileRecord `json:"files"`
}

// New returns an empty snapshot at the current schema version.
func New(dimensions int) *Snapshot {
	return &Snapshot{
		SchemaVersion: SchemaVersion,
		CreatedAt:     time.Now().UTC(),
		Dimensions:    dimensions,
		Chunks:        []*Chunk{},
		Embeddings:    make(map[string][]float32),
		Files:         make(map[string]*FileRecord),
	}
}

// ChunkID derives the deterministic chunk identifier from the owning file's
// path, the chunk's position within it, and the file's content hash.
func ChunkID(path string, index int, contentHash string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", path, index, contentHash)))
	return hex.EncodeToString(h[:])[:16]
}

// Validate checks internal consistency: schema version, the no-orphan
// invariant between chunks and embeddings (both directions), and per-vector
// dimensions. A snapshot that fails validation must never be served or
// persisted.
func (s *Snapshot) Validate() error {
	if s.SchemaVersion != SchemaVersion {
		return &ErrSchemaVersion{Expected: SchemaVersion, Got: s.SchemaVersion}
	}

	seen := make(map[string]struct{}, len(s.Chunks))
	for _, c := range s.Chunks {
		if c.ID == "" {
			return fmt.Errorf("chunk with empty ID (source %s)", c.SourceFile)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("duplicate chunk ID %s", c.ID)
		}
		seen[c.ID] = struct{}{}

		vec, ok := s.Embeddings[c.ID]
		if !ok {
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		if s.Dimensions > 0 && len(vec) != s.Dimensions {
			return fmt.Errorf("chunk %s embedding has %d dimensions, snapshot has %d",
				c.ID, len(vec), s.Dimensions)
		}
		if _, ok := s.Files[c.SourceFile]; !ok {
			return fmt.Errorf("chunk %s references untracked file %s", c.ID, c.SourceFile)
		}
	}

	for id := range s.Embeddings {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("embedding %s has no chunk", id)
		}
	}

	return nil
}

// ChunkByID returns the chunk with the given ID, or nil.
func (s *Snapshot) ChunkByID(id string) *Chunk {
	for _, c := range s.Chunks {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Stats summarizes a snapshot for status reporting.
type Stats struct {
	Files      int       `json:"files"`
	Chunks     int       `json:"chunks"`
	Dimensions int       `json:"dimensions"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Stats returns summary counts.
func (s *Snapshot) Stats() Stats {
	return Stats{
		Files:      len(s.Files),
		Chunks:     len(s.Chunks),
		Dimensions: s.Dimensions,
		CreatedAt:  s.CreatedAt,
	}
}
