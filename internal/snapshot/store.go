package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrSchemaVersion is returned when a persisted snapshot was written with a
// different schema version. The caller must discard the snapshot and run a
// full rebuild; the file on disk is left untouched.
type ErrSchemaVersion struct {
	Expected int
	Got      int
}

func (e *ErrSchemaVersion) Error() string {
	return fmt.Sprintf("snapshot schema version mismatch: expected %d, got %d", e.Expected, e.Got)
}

// ErrNotFound is returned by Load when no snapshot exists yet.
var ErrNotFound = errors.New("no snapshot found")

// Store persists snapshots to a single JSON file. Writes are atomic: the
// snapshot is serialized to a temp file in the same directory and renamed
// over the target, so a crash mid-write leaves the previous snapshot intact.
type Store struct {
	path string
}

// NewStore creates a store writing to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a snapshot file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and validates the persisted snapshot. It returns ErrNotFound
// when no file exists, *ErrSchemaVersion on a schema mismatch, and a wrapped
// parse error on corruption. In every failure case the file on disk is left
// untouched.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", s.path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", s.path, err)
	}

	if snap.SchemaVersion != SchemaVersion {
		return nil, &ErrSchemaVersion{Expected: SchemaVersion, Got: snap.SchemaVersion}
	}
	if snap.Embeddings == nil {
		snap.Embeddings = make(map[string][]float32)
	}
	if snap.Files == nil {
		snap.Files = make(map[string]*FileRecord)
	}

	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot %s is inconsistent: %w", s.path, err)
	}

	return &snap, nil
}

// Save validates and atomically persists the snapshot. An invalid snapshot
// is never written.
func (s *Store) Save(snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	// Write to a temp file in the same directory, then rename. Rename is
	// atomic on POSIX filesystems.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	return nil
}
