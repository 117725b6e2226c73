package chunk

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFSegmenter extracts per-page text from PDF documents.
type PDFSegmenter struct{}

// NewPDFSegmenter creates a PDF segmenter.
func NewPDFSegmenter() *PDFSegmenter {
	return &PDFSegmenter{}
}

// Segment extracts one segment per page. Pages that fail to parse are
// skipped; the error surfaces only when no page yields text.
func (s *PDFSegmenter) Segment(ctx context.Context, file *FileInput) ([]Segment, error) {
	reader, err := pdf.NewReader(bytes.NewReader(file.Content), int64(len(file.Content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF %s: %w", file.Path, err)
	}

	numPages := reader.NumPage()
	segments := make([]Segment, 0, numPages)
	var lastErr error

	for i := 1; i <= numPages; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			lastErr = fmt.Errorf("extract page %d of %s: %w", i, file.Path, err)
			continue
		}
		if text == "" {
			continue
		}

		segments = append(segments, Segment{Text: text, Page: i})
	}

	if len(segments) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return segments, nil
}

// SupportedExtensions implements Segmenter.
func (s *PDFSegmenter) SupportedExtensions() []string {
	return []string{".pdf"}
}

var _ Segmenter = (*PDFSegmenter)(nil)
