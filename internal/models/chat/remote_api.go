package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/semweave/semweave/internal/types"
)

// RemoteAPIChat talks to any OpenAI-compatible completion endpoint.
type RemoteAPIChat struct {
	modelName string
	client    *openai.Client
	modelID   string
}

// NewRemoteAPIChat creates a remote chat instance.
func NewRemoteAPIChat(modelConfig *types.ModelConfig) (*RemoteAPIChat, error) {
	config := openai.DefaultConfig(modelConfig.APIKey)
	if baseURL := modelConfig.BaseURL; baseURL != "" {
		config.BaseURL = baseURL
	}
	return &RemoteAPIChat{
		modelName: modelConfig.ModelName,
		client:    openai.NewClientWithConfig(config),
		modelID:   modelConfig.ID,
	}, nil
}

func (c *RemoteAPIChat) convertMessages(messages []Message) []openai.ChatCompletionMessage {
	openaiMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		openaiMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return openaiMessages
}

func (c *RemoteAPIChat) buildChatCompletionRequest(messages []Message, opts *ChatOptions) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    c.modelName,
		Messages: c.convertMessages(messages),
	}

	if opts != nil {
		if opts.Temperature > 0 {
			req.Temperature = float32(opts.Temperature)
		}
		if opts.TopP > 0 {
			req.TopP = float32(opts.TopP)
		}
		if opts.Seed != 0 {
			seed := opts.Seed
			req.Seed = &seed
		}
		if opts.MaxTokens > 0 {
			req.MaxTokens = opts.MaxTokens
		}
		if opts.FrequencyPenalty > 0 {
			req.FrequencyPenalty = float32(opts.FrequencyPenalty)
		}
		if opts.PresencePenalty > 0 {
			req.PresencePenalty = float32(opts.PresencePenalty)
		}
		if opts.JSONMode {
			req.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			}
		}
	}

	return req
}

// Chat performs a non-streaming completion. Rate limit and timeout
// responses are mapped onto the typed errors the pipeline treats as
// systemic.
func (c *RemoteAPIChat) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*types.ChatResponse, error) {
	req := c.buildChatCompletionRequest(messages, opts)

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429:
			return nil, &types.LLMRateLimitError{Model: c.modelName, Cause: err}
		case errors.Is(err, context.DeadlineExceeded):
			return nil, &types.LLMTimeoutError{Model: c.modelName, Cause: err}
		default:
			return nil, fmt.Errorf("create chat completion: %w", err)
		}
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from model %s", c.modelName)
	}

	return &types.ChatResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: types.ChatUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// GetModelName returns the provider-facing model name.
func (c *RemoteAPIChat) GetModelName() string { return c.modelName }

// GetModelID returns the configured model ID.
func (c *RemoteAPIChat) GetModelID() string { return c.modelID }
