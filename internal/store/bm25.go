package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	// ProseStopFilterName is the name of our registered stop word filter.
	ProseStopFilterName = "prose_stop"

	// ProseAnalyzerName is the name of our registered prose analyzer.
	ProseAnalyzerName = "prose_analyzer"

	// minTokenLength drops very short tokens that carry little signal in
	// prose.
	minTokenLength = 3
)

func init() {
	registry.RegisterTokenFilter(ProseStopFilterName, proseStopFilterConstructor)
}

// proseStopWords are dropped during analysis, both at index and query time.
var proseStopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "her": {}, "was": {}, "one": {},
	"our": {}, "out": {}, "his": {}, "has": {}, "had": {}, "how": {},
	"than": {}, "that": {}, "this": {}, "these": {}, "those": {},
	"with": {}, "from": {}, "they": {}, "will": {}, "would": {},
	"there": {}, "their": {}, "what": {}, "which": {}, "when": {},
	"where": {}, "who": {}, "were": {}, "been": {}, "have": {},
	"into": {}, "more": {}, "some": {}, "such": {}, "only": {},
	"other": {}, "about": {}, "should": {}, "could": {}, "also": {},
}

// BleveBM25Index wraps Bleve v2 for in-memory BM25 keyword search over
// chunk text.
type BleveBM25Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// bleveDocument is the document structure handed to Bleve.
type bleveDocument struct {
	Content string `json:"content"`
}

// NewBleveBM25Index creates an in-memory BM25 index.
func NewBleveBM25Index() (*BleveBM25Index, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &BleveBM25Index{index: idx}, nil
}

// createIndexMapping builds the Bleve mapping with the prose analyzer.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(ProseAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
			ProseStopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add prose analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = ProseAnalyzerName
	return indexMapping, nil
}

// Index adds documents to the index. Existing IDs are replaced.
func (b *BleveBM25Index) Index(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, bleveDocument{Content: doc.Content}); err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Search returns documents matching the query, scored by BM25.
func (b *BleveBM25Index) Search(ctx context.Context, queryStr string, limit int) ([]*BM25Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	if strings.TrimSpace(queryStr) == "" || limit <= 0 {
		return []*BM25Result{}, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = limit

	result, err := b.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]*BM25Result, 0, len(result.Hits))
	for _, hit := range result.Hits {
		results = append(results, &BM25Result{
			DocID: hit.ID,
			Score: hit.Score,
		})
	}
	return results, nil
}

// Count returns the number of indexed documents.
func (b *BleveBM25Index) Count() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, fmt.Errorf("index is closed")
	}

	count, err := b.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(count), nil
}

// Close releases the underlying Bleve index.
func (b *BleveBM25Index) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

var _ BM25Index = (*BleveBM25Index)(nil)

// proseStopFilter drops stop words and very short tokens.
type proseStopFilter struct{}

func proseStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &proseStopFilter{}, nil
}

func (f *proseStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	output := input[:0]
	for _, token := range input {
		if len(token.Term) < minTokenLength {
			continue
		}
		if _, stop := proseStopWords[string(token.Term)]; stop {
			continue
		}
		output = append(output, token)
	}
	return output
}
