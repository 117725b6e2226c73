// Package index builds and serves the document index. Change detection
// classifies the corpus against the previous snapshot, the builder reuses
// everything that did not change, and the manager publishes complete
// snapshots to readers behind an atomic pointer.
package index

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/docrag/docrag/internal/scanner"
	"github.com/docrag/docrag/internal/snapshot"
)

// FileError records a per-file failure that degraded but did not abort a
// build.
type FileError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// ChangeSet classifies the current corpus against a previous snapshot. All
// slices are sorted by path so processing order is deterministic.
type ChangeSet struct {
	Added     []string
	Modified  []string
	Removed   []string
	Unchanged []string

	// Failed lists files that could not be fingerprinted. A failed file
	// with no prior record is excluded from the new snapshot; one that was
	// already indexed keeps its previous state and is also listed in
	// Unchanged.
	Failed []FileError

	// Records holds a fresh FileRecord for every current, readable file.
	Records map[string]*snapshot.FileRecord
}

// Total returns the number of classified files, excluding failures.
func (c *ChangeSet) Total() int {
	return len(c.Added) + len(c.Modified) + len(c.Removed) + len(c.Unchanged)
}

// HasWork reports whether a rebuild would change anything.
func (c *ChangeSet) HasWork() bool {
	return len(c.Added) > 0 || len(c.Modified) > 0 || len(c.Removed) > 0
}

// DetectChanges classifies current files against the previously indexed
// records. A file whose size and mtime both match its record is assumed
// unchanged without rehashing; otherwise the content hash decides, so a
// touched-but-identical file still counts as unchanged. previous may be nil
// for a first build.
func DetectChanges(current []*scanner.FileInfo, previous map[string]*snapshot.FileRecord) *ChangeSet {
	changes := &ChangeSet{
		Records: make(map[string]*snapshot.FileRecord, len(current)),
	}

	seen := make(map[string]struct{}, len(current))
	for _, file := range current {
		seen[file.Path] = struct{}{}

		prev, existed := previous[file.Path]
		if existed && prev.Size == file.Size && sameMTime(prev.ModTime, file.ModTime) {
			// Cheap prefilter hit: identical size and mtime.
			changes.Unchanged = append(changes.Unchanged, file.Path)
			changes.Records[file.Path] = prev
			continue
		}

		hash, err := scanner.HashFile(file.AbsPath)
		if err != nil {
			changes.Failed = append(changes.Failed, FileError{Path: file.Path, Err: err.Error()})
			if existed {
				// A transient read error must not evict data that is already
				// indexed: keep the prior record and chunks until the file
				// can be fingerprinted again.
				slog.Warn("failed to fingerprint indexed file, keeping previous state",
					slog.String("path", file.Path),
					slog.String("error", err.Error()))
				changes.Unchanged = append(changes.Unchanged, file.Path)
				changes.Records[file.Path] = prev
				continue
			}
			slog.Warn("failed to fingerprint file, skipping",
				slog.String("path", file.Path),
				slog.String("error", err.Error()))
			continue
		}

		record := &snapshot.FileRecord{
			Path:        file.Path,
			ContentHash: hash,
			Size:        file.Size,
			ModTime:     file.ModTime,
		}
		changes.Records[file.Path] = record

		switch {
		case !existed:
			changes.Added = append(changes.Added, file.Path)
		case prev.ContentHash == hash:
			// Touched but not modified: metadata changed, bytes did not.
			changes.Unchanged = append(changes.Unchanged, file.Path)
		default:
			changes.Modified = append(changes.Modified, file.Path)
		}
	}

	for path := range previous {
		if _, ok := seen[path]; !ok {
			changes.Removed = append(changes.Removed, path)
		}
	}

	sort.Strings(changes.Added)
	sort.Strings(changes.Modified)
	sort.Strings(changes.Removed)
	sort.Strings(changes.Unchanged)
	sort.Slice(changes.Failed, func(i, j int) bool { return changes.Failed[i].Path < changes.Failed[j].Path })

	return changes
}

// sameMTime compares modification times at second granularity. Snapshot
// serialization and some filesystems drop sub-second precision, and a
// spurious mismatch only costs a rehash.
func sameMTime(a, b time.Time) bool {
	return a.Truncate(time.Second).Equal(b.Truncate(time.Second))
}

// Summary renders the change counts for logging.
func (c *ChangeSet) Summary() string {
	return fmt.Sprintf("%d added, %d modified, %d removed, %d unchanged, %d failed",
		len(c.Added), len(c.Modified), len(c.Removed), len(c.Unchanged), len(c.Failed))
}
