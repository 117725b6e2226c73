package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Scanner discovers indexable documents in a corpus directory.
type Scanner struct{}

// New creates a new Scanner instance.
func New() *Scanner {
	return &Scanner{}
}

// Scan discovers all indexable documents under the corpus root. It returns a
// channel of ScanResult that streams files as they are discovered; the
// channel is closed when scanning is complete. Unreadable entries are
// reported as ScanResult errors without stopping the walk.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}

	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path is not a directory: %s", absRoot)
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	results := make(chan ScanResult, 64)

	go func() {
		defer close(results)
		s.walk(ctx, absRoot, opts, maxFileSize, results)
	}()

	return results, nil
}

// ScanAll collects every successfully scanned file, sorted behavior left to
// callers. Per-file errors are logged and skipped.
func (s *Scanner) ScanAll(ctx context.Context, opts *ScanOptions) ([]*FileInfo, error) {
	results, err := s.Scan(ctx, opts)
	if err != nil {
		return nil, err
	}

	var files []*FileInfo
	for res := range results {
		if res.Error != nil {
			slog.Warn("skipping unreadable entry", slog.String("error", res.Error.Error()))
			continue
		}
		files = append(files, res.File)
	}
	return files, nil
}

func (s *Scanner) walk(ctx context.Context, absRoot string, opts *ScanOptions, maxFileSize int64, results chan<- ScanResult) {
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			results <- ScanResult{Error: fmt.Errorf("walk %s: %w", path, err)}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if path != absRoot && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if s.excluded(relPath, d.Name(), opts.ExcludePatterns) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		docType := DetectType(path)
		if docType == "" {
			return nil
		}
		if s.excluded(relPath, d.Name(), opts.ExcludePatterns) {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			results <- ScanResult{Error: fmt.Errorf("stat %s: %w", path, statErr)}
			return nil
		}
		if info.Size() > maxFileSize {
			slog.Debug("skipping oversized document",
				slog.String("path", relPath),
				slog.Int64("size", info.Size()))
			return nil
		}

		results <- ScanResult{File: &FileInfo{
			Path:     filepath.ToSlash(relPath),
			AbsPath:  path,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Type:     docType,
			Category: CategoryFromPath(relPath),
		}}
		return nil
	})

	if walkErr != nil && walkErr != context.Canceled {
		results <- ScanResult{Error: walkErr}
	}
}

// excluded reports whether relPath matches any exclusion pattern. Patterns
// are matched against both the full relative path and the base name.
func (s *Scanner) excluded(relPath, base string, patterns []string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, relPath); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
