// Package chat abstracts the conversational models behind one interface
// with local (Ollama) and remote (OpenAI-compatible) implementations.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/semweave/semweave/internal/types"
)

// ChatOptions are per-call generation options.
type ChatOptions struct {
	// Sampling temperature
	Temperature float64 `json:"temperature"`
	// Nucleus sampling parameter
	TopP float64 `json:"top_p"`
	// Random seed for reproducible sampling
	Seed int `json:"seed"`
	// Maximum number of generated tokens
	MaxTokens int `json:"max_tokens"`
	// Frequency penalty
	FrequencyPenalty float64 `json:"frequency_penalty"`
	// Presence penalty
	PresencePenalty float64 `json:"presence_penalty"`
	// Ask the provider for a JSON-only response when supported
	JSONMode bool `json:"json_mode"`
}

// Message is one chat turn.
type Message struct {
	// system, user or assistant
	Role string `json:"role"`
	// Message content
	Content string `json:"content"`
}

// Chat is the conversational model interface.
type Chat interface {
	// Chat performs a non-streaming completion
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*types.ChatResponse, error)

	// GetModelName returns the provider-facing model name
	GetModelName() string

	// GetModelID returns the configured model ID
	GetModelID() string
}

// NewChat creates a chat instance for the configured source.
func NewChat(config *types.ModelConfig) (Chat, error) {
	switch strings.ToLower(string(config.Source)) {
	case string(types.ModelSourceLocal):
		return NewOllamaChat(config)
	case string(types.ModelSourceRemote):
		return NewRemoteAPIChat(config)
	default:
		return nil, fmt.Errorf("unsupported chat model source: %s", config.Source)
	}
}
