// Package embedding abstracts text vectorization with local and remote
// backends, a pooled batch path and a Redis-backed cache.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/semweave/semweave/internal/types"
)

// Embedder converts text to vectors.
type Embedder interface {
	// Embed converts one text to a vector
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed converts multiple texts to vectors in one call
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// GetModelName returns the model name
	GetModelName() string

	// GetDimensions returns the vector dimensions
	GetDimensions() int

	// GetModelID returns the model ID
	GetModelID() string
}

// Pooler fans a large batch out over a goroutine pool.
type Pooler interface {
	BatchEmbedWithPool(ctx context.Context, model Embedder, texts []string) ([][]float32, error)
}

// NewEmbedder creates an embedder for the configured source.
func NewEmbedder(config *types.ModelConfig) (Embedder, error) {
	switch strings.ToLower(string(config.Source)) {
	case string(types.ModelSourceLocal):
		return NewOllamaEmbedder(config)
	case string(types.ModelSourceRemote):
		return NewOpenAIEmbedder(config)
	default:
		return nil, fmt.Errorf("unsupported embedder source: %s", config.Source)
	}
}
