package embed

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = string(openai.SmallEmbedding3)

// modelSizes maps known OpenAI embedding models to their vector dimension.
var modelSizes = map[openai.EmbeddingModel]int{
	openai.SmallEmbedding3: 1536,
	openai.LargeEmbedding3: 3072,
	openai.AdaEmbeddingV2:  1536,
}

// OpenAI is a Provider backed by the OpenAI embeddings API.
type OpenAI struct {
	client *openai.Client
	model  openai.EmbeddingModel
	name   string
	size   int
}

// NewOpenAI creates an OpenAI embedding provider.
func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("embed: OpenAI API key is empty")
	}
	if model == "" {
		model = DefaultModel
	}
	m := openai.EmbeddingModel(model)
	size, ok := modelSizes[m]
	if !ok {
		return nil, fmt.Errorf("embed: unknown embedding model %q", model)
	}
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  m,
		name:   SanitizeVectorName(model),
		size:   size,
	}, nil
}

// Embed returns the embedding vector for one text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: o.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embed: empty response")
	}
	return resp.Data[0].Embedding, nil
}

func (o *OpenAI) VectorName() string { return o.name }
func (o *OpenAI) VectorSize() int    { return o.size }
