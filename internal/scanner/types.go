// Package scanner discovers documents in a corpus directory and computes
// content fingerprints for change detection.
package scanner

import (
	"path/filepath"
	"strings"
	"time"
)

// DocumentType represents the kind of document discovered.
type DocumentType string

const (
	// DocumentTypePDF represents PDF documents.
	DocumentTypePDF DocumentType = "pdf"
	// DocumentTypeText represents plain text documents.
	DocumentTypeText DocumentType = "text"
	// DocumentTypeMarkdown represents markdown documents.
	DocumentTypeMarkdown DocumentType = "markdown"
)

// FileInfo contains metadata about a discovered document.
type FileInfo struct {
	Path     string       // Relative path to the corpus root
	AbsPath  string       // Absolute path
	Size     int64        // File size in bytes
	ModTime  time.Time    // Last modification time
	Type     DocumentType // pdf, text, markdown
	Category string       // First path element under the corpus root, "" at top level
}

// ScanOptions configures the scanner behavior.
type ScanOptions struct {
	// RootDir is the corpus root directory to scan.
	RootDir string

	// ExcludePatterns specifies glob patterns (matched against the relative
	// path and the base name) to exclude.
	ExcludePatterns []string

	// MaxFileSize is the maximum file size to include in bytes (0 = 50MB default).
	MaxFileSize int64
}

// ScanResult is returned from the scanner channel. Either File or Error is
// set, never both.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize is the default maximum document size (50MB).
const DefaultMaxFileSize = 50 * 1024 * 1024

// typeByExtension maps file extensions to document types.
var typeByExtension = map[string]DocumentType{
	".pdf":      DocumentTypePDF,
	".txt":      DocumentTypeText,
	".text":     DocumentTypeText,
	".md":       DocumentTypeMarkdown,
	".markdown": DocumentTypeMarkdown,
}

// DetectType returns the document type for path, or "" when the extension is
// not indexable.
func DetectType(path string) DocumentType {
	return typeByExtension[strings.ToLower(filepath.Ext(path))]
}

// CategoryFromPath derives the category label from a relative path: the first
// directory element, or "" for files at the corpus root.
func CategoryFromPath(relPath string) string {
	relPath = filepath.ToSlash(relPath)
	if idx := strings.IndexByte(relPath, '/'); idx > 0 {
		return relPath[:idx]
	}
	return ""
}
