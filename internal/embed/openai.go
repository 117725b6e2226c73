package embed

import (
	"context"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/docrag/docrag/internal/errors"
)

// DefaultOpenAIModel is the default embedding model.
const DefaultOpenAIModel = "text-embedding-3-small"

// requestTimeout bounds a single embeddings API call.
const requestTimeout = 60 * time.Second

// openAIDimensions maps known embedding models to their vector width.
var openAIDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
// Transient API failures are retried with exponential backoff.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int

	// requestDims is sent as the API's dimensions parameter when the
	// configured width differs from the model's native one; 0 omits it.
	requestDims int

	batchSize int
	retryCfg  errors.RetryConfig
}

// NewOpenAIEmbedder creates an embedder for the given model. The API key is
// read from OPENAI_API_KEY when apiKey is empty. When dimensions is 0 the
// model's native width is used.
func NewOpenAIEmbedder(apiKey, model string, dimensions, batchSize int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY)")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	requestDims := 0
	if dimensions <= 0 {
		dimensions = openAIDimensions[model]
		if dimensions == 0 {
			return nil, fmt.Errorf("unknown embedding model %q: dimensions must be configured", model)
		}
	} else if dimensions != openAIDimensions[model] {
		// A non-native width must be requested explicitly or the API
		// returns native-width vectors and every build fails the width
		// check.
		requestDims = dimensions
	}
	if batchSize < MinBatchSize || batchSize > MaxBatchSize {
		batchSize = DefaultBatchSize
	}

	return &OpenAIEmbedder{
		client:      openai.NewClient(apiKey),
		model:       model,
		dimensions:  dimensions,
		requestDims: requestDims,
		batchSize:   batchSize,
		retryCfg:    errors.DefaultRetryConfig(),
	}, nil
}

// Embed generates the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for texts, splitting into API batches of
// at most batchSize. Vectors come back in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.embedBatchOnce(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)
	}
	return results, nil
}

func (e *OpenAIEmbedder) embedBatchOnce(ctx context.Context, texts []string) ([][]float32, error) {
	return errors.RetryWithResult(ctx, e.retryCfg, func() ([][]float32, error) {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		resp, err := e.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequestStrings{
			Input:      texts,
			Model:      openai.EmbeddingModel(e.model),
			Dimensions: e.requestDims,
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeEmbeddingAPI, fmt.Errorf("embeddings API call failed: %w", err))
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("embeddings API returned %d vectors for %d inputs",
				len(resp.Data), len(texts))
		}

		vectors := make([][]float32, len(texts))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(texts) {
				return nil, fmt.Errorf("embeddings API returned out-of-range index %d", d.Index)
			}
			if len(d.Embedding) != e.dimensions {
				return nil, fmt.Errorf("embeddings API returned %d dimensions, expected %d",
					len(d.Embedding), e.dimensions)
			}
			vectors[d.Index] = d.Embedding
		}
		return vectors, nil
	})
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Available probes the API with a minimal request.
func (e *OpenAIEmbedder) Available(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := e.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequestStrings{
		Input:      []string{"ping"},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.requestDims,
	})
	return err == nil
}

// Close releases resources.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)
