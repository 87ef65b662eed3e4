package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	ollamaapi "github.com/ollama/ollama/api"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/types"
)

// OllamaChat runs completions against a local Ollama server.
type OllamaChat struct {
	modelName string
	modelID   string
	client    *ollamaapi.Client
}

// NewOllamaChat creates an Ollama chat instance.
func NewOllamaChat(config *types.ModelConfig) (*OllamaChat, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url: %w", err)
	}
	return &OllamaChat{
		modelName: config.ModelName,
		modelID:   config.ID,
		client:    ollamaapi.NewClient(u, http.DefaultClient),
	}, nil
}

func (c *OllamaChat) convertMessages(messages []Message) []ollamaapi.Message {
	ollamaMessages := make([]ollamaapi.Message, len(messages))
	for i, msg := range messages {
		ollamaMessages[i] = ollamaapi.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return ollamaMessages
}

func (c *OllamaChat) buildChatRequest(messages []Message, opts *ChatOptions) *ollamaapi.ChatRequest {
	stream := false
	chatReq := &ollamaapi.ChatRequest{
		Model:    c.modelName,
		Messages: c.convertMessages(messages),
		Stream:   &stream,
		Options:  make(map[string]interface{}),
	}

	if opts != nil {
		if opts.Temperature > 0 {
			chatReq.Options["temperature"] = opts.Temperature
		}
		if opts.TopP > 0 {
			chatReq.Options["top_p"] = opts.TopP
		}
		if opts.Seed != 0 {
			chatReq.Options["seed"] = opts.Seed
		}
		if opts.MaxTokens > 0 {
			chatReq.Options["num_predict"] = opts.MaxTokens
		}
		if opts.JSONMode {
			chatReq.Format = []byte(`"json"`)
		}
	}

	return chatReq
}

// Chat performs a non-streaming completion.
func (c *OllamaChat) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*types.ChatResponse, error) {
	chatReq := c.buildChatRequest(messages, opts)

	logger.GetLogger(ctx).Debugf("sending chat request to local model %s", c.modelName)

	var responseContent string
	var promptTokens, completionTokens int
	err := c.client.Chat(ctx, chatReq, func(resp ollamaapi.ChatResponse) error {
		responseContent += resp.Message.Content
		if resp.Done {
			promptTokens = resp.PromptEvalCount
			completionTokens = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &types.LLMTimeoutError{Model: c.modelName, Cause: err}
		}
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	return &types.ChatResponse{
		Content: responseContent,
		Usage: types.ChatUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}, nil
}

// GetModelName returns the provider-facing model name.
func (c *OllamaChat) GetModelName() string { return c.modelName }

// GetModelID returns the configured model ID.
func (c *OllamaChat) GetModelID() string { return c.modelID }
