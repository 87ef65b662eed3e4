package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	ollamaapi "github.com/ollama/ollama/api"

	"github.com/semweave/semweave/internal/types"
)

// OllamaEmbedder embeds through a local Ollama server.
type OllamaEmbedder struct {
	client     *ollamaapi.Client
	modelName  string
	modelID    string
	dimensions int
}

// NewOllamaEmbedder creates a local embedder.
func NewOllamaEmbedder(config *types.ModelConfig) (*OllamaEmbedder, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url: %w", err)
	}
	return &OllamaEmbedder{
		client:     ollamaapi.NewClient(u, http.DefaultClient),
		modelName:  config.ModelName,
		modelID:    config.ID,
		dimensions: config.Dimensions,
	}, nil
}

// Embed converts one text to a vector.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// BatchEmbed converts multiple texts in one request.
func (e *OllamaEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embed(ctx, &ollamaapi.EmbedRequest{
		Model: e.modelName,
		Input: texts,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &types.LLMTimeoutError{Model: e.modelName, Cause: err}
		}
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: asked %d, got %d", len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

// GetModelName returns the model name.
func (e *OllamaEmbedder) GetModelName() string { return e.modelName }

// GetDimensions returns the vector dimensions.
func (e *OllamaEmbedder) GetDimensions() int { return e.dimensions }

// GetModelID returns the model ID.
func (e *OllamaEmbedder) GetModelID() string { return e.modelID }
