// Package llm wraps the chat models with schema-constrained object
// generation: prompt in, decoded struct out, with bounded retries and the
// error taxonomy the streaming driver relies on.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/semweave/semweave/internal/common"
	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/models/chat"
	"github.com/semweave/semweave/internal/types"
)

// RetrySchedule bounds the exponential backoff applied between attempts.
type RetrySchedule struct {
	// Delay before the first retry
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay" json:"initial_delay"`
	// Upper bound on the backoff delay
	MaxDelay time.Duration `mapstructure:"max_delay" yaml:"max_delay" json:"max_delay"`
	// Total attempts including the first
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts" json:"max_attempts"`
}

// DefaultRetrySchedule is used when configuration leaves the schedule empty.
func DefaultRetrySchedule() RetrySchedule {
	return RetrySchedule{InitialDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second, MaxAttempts: 3}
}

// GenerateRequest describes one structured model call.
type GenerateRequest struct {
	// Instruction part of the prompt
	Prompt string
	// System prompt; optional
	System string
	// Name of the object being produced, used in error reports
	ObjectName string
	// Per-call timeout; zero means the context's deadline applies
	Timeout time.Duration
	// Retry schedule override; zero value uses the generator default
	Retry *RetrySchedule
}

// Generator produces schema-conforming objects from a chat model.
type Generator struct {
	model chat.Chat
	retry RetrySchedule
}

// NewGenerator creates a Generator over the given model.
func NewGenerator(model chat.Chat, retry RetrySchedule) *Generator {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetrySchedule()
	}
	return &Generator{model: model, retry: retry}
}

// GenerateObject calls the model and decodes its reply into target, which
// must be a pointer. Decode failures are retried with backoff; when the
// attempts are exhausted the last failure is returned as an LLMSchemaError
// (a content error). Rate limits and timeouts are retried the same way but
// surface as themselves, which the caller treats as systemic.
func (g *Generator) GenerateObject(ctx context.Context, req GenerateRequest, target interface{}) error {
	schedule := g.retry
	if req.Retry != nil {
		schedule = *req.Retry
	}

	messages := []chat.Message{}
	if req.System != "" {
		messages = append(messages, chat.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, chat.Message{Role: "user", Content: req.Prompt})

	var lastErr error
	for attempt := 0; attempt < schedule.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, schedule, attempt); err != nil {
				return err
			}
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if req.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		}
		resp, err := g.model.Chat(callCtx, messages, &chat.ChatOptions{
			Temperature: 0.1,
			JSONMode:    true,
		})
		if cancel != nil {
			cancel()
		}
		if err != nil {
			// Map a per-call deadline onto the typed timeout error so the
			// caller's classification does not depend on the provider.
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				err = &types.LLMTimeoutError{Model: g.model.GetModelName(), Cause: err}
			}
			lastErr = err
			if ctx.Err() != nil {
				return err
			}
			logger.Warnf(ctx, "model call for %s failed (attempt %d/%d): %v",
				req.ObjectName, attempt+1, schedule.MaxAttempts, err)
			continue
		}

		if err := common.ParseLLMJsonResponse(resp.Content, target); err != nil {
			lastErr = &types.LLMSchemaError{ObjectName: req.ObjectName, Cause: err, Response: resp.Content}
			logger.Warnf(ctx, "decoding %s failed (attempt %d/%d): %v",
				req.ObjectName, attempt+1, schedule.MaxAttempts, err)
			continue
		}
		return nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("generate %s: no attempts executed", req.ObjectName)
	}
	return lastErr
}

// sleepBackoff waits for the attempt's backoff delay with jitter, aborting
// early on context cancellation.
func sleepBackoff(ctx context.Context, schedule RetrySchedule, attempt int) error {
	delay := schedule.InitialDelay << (attempt - 1)
	if delay > schedule.MaxDelay || delay <= 0 {
		delay = schedule.MaxDelay
	}
	// Full jitter keeps concurrent chunk workers from synchronizing their
	// retries against a rate-limited provider.
	jittered := time.Duration(rand.Int63n(int64(delay) + 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jittered):
		return nil
	}
}
