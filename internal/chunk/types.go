// Package chunk turns documents into retrievable text chunks. Segmenters
// extract per-page text from document formats; the sentence chunker windows
// that text into overlapping sentence groups.
package chunk

import (
	"context"
)

// Segment is a contiguous run of extracted text with its page of origin.
type Segment struct {
	// Text is the raw extracted text, before cleaning.
	Text string

	// Page is the 1-based page number. Formats without pages use 1.
	Page int
}

// FileInput is a document handed to a Segmenter.
type FileInput struct {
	Path    string // Relative path, for error reporting
	Content []byte // Raw file bytes
}

// Segmenter extracts text segments from one document format.
type Segmenter interface {
	// Segment extracts per-page text from the document. Formats without a
	// page structure return a single segment.
	Segment(ctx context.Context, file *FileInput) ([]Segment, error)

	// SupportedExtensions returns the file extensions this segmenter
	// handles, with leading dots.
	SupportedExtensions() []string
}

// Piece is one chunk of cleaned text produced by the sentence chunker,
// before it is assigned an ID and embedded.
type Piece struct {
	// Text is the cleaned chunk content.
	Text string

	// Index is the chunk's position within its source file, counted across
	// all pages.
	Index int

	// Page is the page the chunk starts on.
	Page int
}
