package extraction

import (
	"context"
	"fmt"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/models/llm"
	"github.com/semweave/semweave/internal/types"
)

// MentionExtractor finds untyped entity mentions in a chunk.
type MentionExtractor struct {
	generator *llm.Generator
}

// NewMentionExtractor creates a MentionExtractor.
func NewMentionExtractor(generator *llm.Generator) *MentionExtractor {
	return &MentionExtractor{generator: generator}
}

type mentionResponse struct {
	Mentions []types.Mention `json:"mentions"`
}

// Extract returns the mentions found in the chunk text. Surface forms are
// not verified here; the grounder scores them later.
func (m *MentionExtractor) Extract(ctx context.Context, chunkText string) ([]types.Mention, error) {
	var resp mentionResponse
	err := m.generator.GenerateObject(ctx, llm.GenerateRequest{
		System:     mentionSystemPrompt,
		Prompt:     fmt.Sprintf(mentionUserPrompt, chunkText),
		ObjectName: "mentions",
	}, &resp)
	if err != nil {
		return nil, err
	}

	mentions := make([]types.Mention, 0, len(resp.Mentions))
	for _, mention := range resp.Mentions {
		if mention.Mention == "" {
			continue
		}
		mentions = append(mentions, mention)
	}
	logger.Debugf(ctx, "extracted %d mentions", len(mentions))
	return mentions, nil
}
