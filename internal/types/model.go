package types

// ModelSource distinguishes locally hosted models from remote APIs.
type ModelSource string

const (
	// ModelSourceLocal is a model served by a local Ollama instance
	ModelSourceLocal ModelSource = "local"
	// ModelSourceRemote is an OpenAI-compatible remote API
	ModelSourceRemote ModelSource = "remote"
)

// ModelConfig describes one chat or embedding model endpoint.
type ModelConfig struct {
	// Model identifier used in logs and metrics
	ID string `mapstructure:"id" yaml:"id" json:"id"`
	// local or remote
	Source ModelSource `mapstructure:"source" yaml:"source" json:"source"`
	// Model name as known by the provider
	ModelName string `mapstructure:"model_name" yaml:"model_name" json:"model_name"`
	// Base URL of the provider endpoint
	BaseURL string `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	// API key for remote providers
	APIKey string `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	// Embedding vector dimensions, embedding models only
	Dimensions int `mapstructure:"dimensions" yaml:"dimensions" json:"dimensions"`
}

// ChatUsage reports token accounting for one model call.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is a non-streaming model reply.
type ChatResponse struct {
	Content string    `json:"content"`
	Usage   ChatUsage `json:"usage"`
}
