package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/semweave/semweave/internal/types"
)

// OpenAIEmbedder embeds through any OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client     *openai.Client
	modelName  string
	modelID    string
	dimensions int
}

// NewOpenAIEmbedder creates a remote embedder.
func NewOpenAIEmbedder(config *types.ModelConfig) (*OpenAIEmbedder, error) {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientConfig),
		modelName:  config.ModelName,
		modelID:    config.ID,
		dimensions: config.Dimensions,
	}, nil
}

// Embed converts one text to a vector.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// BatchEmbed converts multiple texts in one request.
func (e *OpenAIEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.modelName),
		Input: texts,
	})
	if err != nil {
		var apiErr *openai.APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429:
			return nil, &types.LLMRateLimitError{Model: e.modelName, Cause: err}
		case errors.Is(err, context.DeadlineExceeded):
			return nil, &types.LLMTimeoutError{Model: e.modelName, Cause: err}
		default:
			return nil, fmt.Errorf("create embeddings: %w", err)
		}
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: asked %d, got %d", len(texts), len(resp.Data))
	}
	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// GetModelName returns the model name.
func (e *OpenAIEmbedder) GetModelName() string { return e.modelName }

// GetDimensions returns the vector dimensions.
func (e *OpenAIEmbedder) GetDimensions() int { return e.dimensions }

// GetModelID returns the model ID.
func (e *OpenAIEmbedder) GetModelID() string { return e.modelID }
