package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semweave/semweave/internal/models/chat"
	"github.com/semweave/semweave/internal/types"
)

// scriptedChat returns its responses in order, then repeats the last one.
type scriptedChat struct {
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedChat) GetModelName() string { return "scripted" }
func (s *scriptedChat) GetModelID() string   { return "scripted" }

func (s *scriptedChat) Chat(ctx context.Context, messages []chat.Message, opts *chat.ChatOptions) (*types.ChatResponse, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return &types.ChatResponse{Content: s.responses[idx]}, nil
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGenerateObjectDecodesDirectJSON(t *testing.T) {
	model := &scriptedChat{responses: []string{`{"name": "x", "count": 3}`}}
	generator := NewGenerator(model, RetrySchedule{MaxAttempts: 1})

	var out payload
	err := generator.GenerateObject(context.Background(), GenerateRequest{
		Prompt: "p", ObjectName: "payload",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "x", out.Name)
	assert.Equal(t, 3, out.Count)
}

func TestGenerateObjectDecodesFencedJSON(t *testing.T) {
	model := &scriptedChat{responses: []string{"Here you go:\n```json\n{\"name\": \"y\", \"count\": 1}\n```"}}
	generator := NewGenerator(model, RetrySchedule{MaxAttempts: 1})

	var out payload
	err := generator.GenerateObject(context.Background(), GenerateRequest{Prompt: "p", ObjectName: "payload"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "y", out.Name)
}

func TestGenerateObjectRetriesOnSchemaFailure(t *testing.T) {
	model := &scriptedChat{responses: []string{
		`not json at all, sorry`,
		`{"name": "recovered", "count": 2}`,
	}}
	generator := NewGenerator(model, RetrySchedule{InitialDelay: 1, MaxDelay: 1, MaxAttempts: 3})

	var out payload
	err := generator.GenerateObject(context.Background(), GenerateRequest{Prompt: "p", ObjectName: "payload"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "recovered", out.Name)
	assert.Equal(t, 2, model.calls)
}

func TestGenerateObjectSchemaErrorAfterRetries(t *testing.T) {
	model := &scriptedChat{responses: []string{`still not json`}}
	generator := NewGenerator(model, RetrySchedule{InitialDelay: 1, MaxDelay: 1, MaxAttempts: 2})

	var out payload
	err := generator.GenerateObject(context.Background(), GenerateRequest{Prompt: "p", ObjectName: "payload"}, &out)
	require.Error(t, err)
	var schemaErr *types.LLMSchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "payload", schemaErr.ObjectName)
	assert.Equal(t, 2, model.calls)
	// Schema failures are content errors, never systemic
	assert.False(t, types.IsSystemicError(err))
}

func TestGenerateObjectSurfacesRateLimit(t *testing.T) {
	rateLimit := &types.LLMRateLimitError{Model: "scripted"}
	model := &scriptedChat{
		responses: []string{`{}`},
		errs:      []error{rateLimit, rateLimit},
	}
	generator := NewGenerator(model, RetrySchedule{InitialDelay: 1, MaxDelay: 1, MaxAttempts: 2})

	var out payload
	err := generator.GenerateObject(context.Background(), GenerateRequest{Prompt: "p", ObjectName: "payload"}, &out)
	require.Error(t, err)
	assert.True(t, types.IsSystemicError(err))
}
