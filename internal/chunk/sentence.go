package chunk

import (
	"regexp"
	"strings"
)

var (
	hyphenBreakRe = regexp.MustCompile(`-\s+`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	sentenceEndRe = regexp.MustCompile(`[.!?]`)
)

// SentenceChunker windows cleaned text into overlapping groups of sentences.
type SentenceChunker struct {
	// ChunkSize is the number of sentences per chunk.
	ChunkSize int

	// Overlap is the number of trailing sentences repeated at the start of
	// the next chunk. Must be smaller than ChunkSize.
	Overlap int

	// MinChars drops chunks shorter than this after trimming.
	MinChars int
}

// NewSentenceChunker creates a chunker with the given window parameters.
// Invalid parameters are clamped to safe values.
func NewSentenceChunker(chunkSize, overlap, minChars int) *SentenceChunker {
	if chunkSize <= 0 {
		chunkSize = 5
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	if minChars < 0 {
		minChars = 0
	}
	return &SentenceChunker{ChunkSize: chunkSize, Overlap: overlap, MinChars: minChars}
}

// Chunk splits the segments into overlapping sentence windows. Each segment
// is chunked independently so chunks never span pages; the piece index runs
// across the whole document. Chunking is deterministic: the same segments
// always produce the same pieces in the same order.
func (c *SentenceChunker) Chunk(segments []Segment) []Piece {
	var pieces []Piece
	index := 0

	step := c.ChunkSize - c.Overlap
	for _, seg := range segments {
		sentences := SplitSentences(seg.Text)
		for start := 0; start < len(sentences); start += step {
			end := start + c.ChunkSize
			if end > len(sentences) {
				end = len(sentences)
			}

			text := strings.TrimSpace(strings.Join(sentences[start:end], " "))
			if len(text) >= c.MinChars && text != "" {
				pieces = append(pieces, Piece{Text: text, Index: index, Page: seg.Page})
				index++
			}

			if end == len(sentences) {
				break
			}
		}
	}

	return pieces
}

// CleanText normalizes extracted text: hyphenated line breaks are joined
// and all whitespace runs collapse to single spaces.
func CleanText(text string) string {
	text = hyphenBreakRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// SplitSentences cleans text and splits it on terminal punctuation. The
// punctuation stays attached to its sentence. Empty fragments are dropped.
func SplitSentences(text string) []string {
	text = CleanText(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[start:loc[1]])
		if s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}
