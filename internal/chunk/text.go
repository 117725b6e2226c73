package chunk

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// TextSegmenter handles plain text and markdown documents as single-page
// files.
type TextSegmenter struct{}

// NewTextSegmenter creates a text segmenter.
func NewTextSegmenter() *TextSegmenter {
	return &TextSegmenter{}
}

// Segment returns the whole document as one page-1 segment.
func (s *TextSegmenter) Segment(_ context.Context, file *FileInput) ([]Segment, error) {
	if !utf8.Valid(file.Content) {
		return nil, fmt.Errorf("%s is not valid UTF-8 text", file.Path)
	}
	text := string(file.Content)
	if text == "" {
		return nil, nil
	}
	return []Segment{{Text: text, Page: 1}}, nil
}

// SupportedExtensions implements Segmenter.
func (s *TextSegmenter) SupportedExtensions() []string {
	return []string{".txt", ".text", ".md", ".markdown"}
}

var _ Segmenter = (*TextSegmenter)(nil)

// SegmenterFor returns the segmenter responsible for the given extension,
// or nil when the format is unsupported. Extensions match case-insensitively,
// mirroring scanner.DetectType.
func SegmenterFor(ext string) Segmenter {
	switch strings.ToLower(ext) {
	case ".pdf":
		return NewPDFSegmenter()
	case ".txt", ".text", ".md", ".markdown":
		return NewTextSegmenter()
	default:
		return nil
	}
}
