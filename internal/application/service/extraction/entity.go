package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/models/llm"
	"github.com/semweave/semweave/internal/types"
)

// EntityExtractor produces typed entities constrained to a chunk's
// candidate class set and that set's datatype properties.
type EntityExtractor struct {
	generator *llm.Generator
}

// NewEntityExtractor creates an EntityExtractor.
func NewEntityExtractor(generator *llm.Generator) *EntityExtractor {
	return &EntityExtractor{generator: generator}
}

type entityResponse struct {
	Entities []extractedEntity `json:"entities"`
}

type extractedEntity struct {
	ID         string            `json:"id"`
	Mention    string            `json:"mention"`
	Types      []types.IRI       `json:"types"`
	Attributes map[types.IRI]any `json:"attributes"`
	Spans      []types.TextSpan  `json:"spans"`
}

// Extract returns the typed entities of a chunk. Types outside the
// candidate set and attributes outside the candidate datatype properties are
// dropped at acceptance time rather than trusted to the prompt; entities
// left without a type are discarded.
func (e *EntityExtractor) Extract(
	ctx context.Context,
	chunk types.TextChunk,
	candidateClasses []types.ClassDefinition,
	candidateProperties []types.PropertyDefinition,
) ([]*types.Entity, error) {
	if len(candidateClasses) == 0 {
		return []*types.Entity{}, nil
	}

	var resp entityResponse
	err := e.generator.GenerateObject(ctx, llm.GenerateRequest{
		System: entitySystemPrompt,
		Prompt: fmt.Sprintf(entityUserPrompt,
			describeClasses(candidateClasses),
			describeProperties(candidateProperties),
			chunk.Text),
		ObjectName: "entities",
	}, &resp)
	if err != nil {
		return nil, err
	}

	allowedTypes := make(map[types.IRI]struct{}, len(candidateClasses))
	for _, c := range candidateClasses {
		allowedTypes[c.ID] = struct{}{}
	}
	allowedAttrs := make(map[types.IRI]struct{}, len(candidateProperties))
	for _, p := range candidateProperties {
		allowedAttrs[p.ID] = struct{}{}
	}

	entities := make([]*types.Entity, 0, len(resp.Entities))
	for _, raw := range resp.Entities {
		if raw.ID == "" || raw.Mention == "" {
			continue
		}
		var acceptedTypes []types.IRI
		for _, t := range raw.Types {
			if _, ok := allowedTypes[t]; ok {
				acceptedTypes = append(acceptedTypes, t)
			} else {
				logger.Debugf(ctx, "dropping entity type outside candidate set: %s", t)
			}
		}
		if len(acceptedTypes) == 0 {
			logger.Debugf(ctx, "dropping entity %q: no accepted types", raw.Mention)
			continue
		}
		attributes := map[types.IRI]any{}
		for key, value := range raw.Attributes {
			if _, ok := allowedAttrs[key]; ok {
				attributes[key] = value
			} else {
				logger.Debugf(ctx, "dropping attribute outside candidate set: %s", key)
			}
		}
		// Span offsets arrive chunk-local; shift them into document
		// coordinates.
		spans := make([]types.TextSpan, 0, len(raw.Spans))
		for _, span := range raw.Spans {
			if span.EndChar <= span.StartChar {
				continue
			}
			spans = append(spans, types.TextSpan{
				Text:       span.Text,
				StartChar:  span.StartChar + chunk.StartOffset,
				EndChar:    span.EndChar + chunk.StartOffset,
				Confidence: span.Confidence,
			})
		}

		entities = append(entities, &types.Entity{
			ID:           raw.ID,
			Mention:      raw.Mention,
			Types:        acceptedTypes,
			Attributes:   attributes,
			ChunkIndex:   chunk.Index,
			ChunkID:      fmt.Sprintf("chunk-%d", chunk.Index),
			MentionSpans: spans,
		})
	}

	logger.Debugf(ctx, "extracted %d entities from chunk %d", len(entities), chunk.Index)
	return entities, nil
}

// describeClasses renders the candidate classes for the prompt, one line
// per class.
func describeClasses(classes []types.ClassDefinition) string {
	lines := make([]string, 0, len(classes))
	for i := range classes {
		c := &classes[i]
		label := c.Label
		if len(c.PrefLabels) > 0 {
			label = c.PrefLabels[0]
		}
		desc := c.Definition
		if desc == "" {
			desc = c.Comment
		}
		line := fmt.Sprintf("- %s (%s)", c.ID, label)
		if desc != "" {
			line += ": " + truncate(desc, 160)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// describeProperties renders candidate properties for the prompt.
func describeProperties(properties []types.PropertyDefinition) string {
	if len(properties) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(properties))
	for i := range properties {
		p := &properties[i]
		line := fmt.Sprintf("- %s (%s)", p.ID, p.Label)
		if len(p.Range) > 0 {
			line += " range: " + strings.Join(p.Range, ", ")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// describeEntitiesJSON renders entities compactly for grounding and
// relation prompts.
func describeEntitiesJSON(entities []*types.Entity) string {
	type compactEntity struct {
		ID      string      `json:"id"`
		Mention string      `json:"mention"`
		Types   []types.IRI `json:"types"`
	}
	compact := make([]compactEntity, len(entities))
	for i, e := range entities {
		compact[i] = compactEntity{ID: e.ID, Mention: e.Mention, Types: e.Types}
	}
	data, _ := json.Marshal(compact)
	return string(data)
}
