package extraction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/models/llm"
	"github.com/semweave/semweave/internal/types"
)

// DefaultGroundingThreshold is the minimum relation grounding confidence
// when the run config leaves it unset.
const DefaultGroundingThreshold = 0.8

// Grounder verifies that entities and relations are supported by the chunk
// text, yielding a grounded flag and a confidence per item.
type Grounder struct {
	generator *llm.Generator
}

// NewGrounder creates a Grounder.
func NewGrounder(generator *llm.Generator) *Grounder {
	return &Grounder{generator: generator}
}

// EntityGrounding is the grounder's verdict on one entity.
type EntityGrounding struct {
	Entity     *types.Entity
	Grounded   bool
	Confidence float64
}

// RelationGrounding is the grounder's verdict on one relation.
type RelationGrounding struct {
	Relation   *types.Relation
	Grounded   bool
	Confidence float64
}

type entityGroundingResponse struct {
	Results []struct {
		ID         string  `json:"id"`
		Grounded   bool    `json:"grounded"`
		Confidence float64 `json:"confidence"`
	} `json:"results"`
}

// VerifyEntityBatch scores all entities of a chunk in one model call.
// Entities the model does not mention come back ungrounded with zero
// confidence; they are kept anyway, the score is informational.
func (g *Grounder) VerifyEntityBatch(
	ctx context.Context, chunkText string, entities []*types.Entity,
) ([]EntityGrounding, error) {
	if len(entities) == 0 {
		return []EntityGrounding{}, nil
	}

	var resp entityGroundingResponse
	err := g.generator.GenerateObject(ctx, llm.GenerateRequest{
		System:     entityGroundingSystemPrompt,
		Prompt:     fmt.Sprintf(entityGroundingUserPrompt, chunkText, describeEntitiesJSON(entities)),
		ObjectName: "entity-grounding",
	}, &resp)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]struct {
		grounded   bool
		confidence float64
	}, len(resp.Results))
	for _, r := range resp.Results {
		byID[r.ID] = struct {
			grounded   bool
			confidence float64
		}{r.Grounded, clamp01(r.Confidence)}
	}

	results := make([]EntityGrounding, len(entities))
	for i, entity := range entities {
		verdict := byID[entity.ID]
		results[i] = EntityGrounding{Entity: entity, Grounded: verdict.grounded, Confidence: verdict.confidence}
	}
	return results, nil
}

type relationGroundingResponse struct {
	Results []struct {
		Index      int     `json:"index"`
		Grounded   bool    `json:"grounded"`
		Confidence float64 `json:"confidence"`
	} `json:"results"`
}

// VerifyRelationBatch scores all relations of a chunk in one model call.
func (g *Grounder) VerifyRelationBatch(
	ctx context.Context, chunkText string, relations []*types.Relation,
) ([]RelationGrounding, error) {
	if len(relations) == 0 {
		return []RelationGrounding{}, nil
	}

	type promptRelation struct {
		Index         int            `json:"index"`
		SubjectID     string         `json:"subject_id"`
		Predicate     types.IRI      `json:"predicate"`
		ObjectID      string         `json:"object_id,omitempty"`
		ObjectLiteral *types.Literal `json:"object_literal,omitempty"`
	}
	prompts := make([]promptRelation, len(relations))
	for i, r := range relations {
		prompts[i] = promptRelation{
			Index:         i,
			SubjectID:     r.SubjectID,
			Predicate:     r.Predicate,
			ObjectID:      r.ObjectID,
			ObjectLiteral: r.ObjectLiteral,
		}
	}
	promptJSON, _ := json.Marshal(prompts)

	var resp relationGroundingResponse
	err := g.generator.GenerateObject(ctx, llm.GenerateRequest{
		System:     relationGroundingSystemPrompt,
		Prompt:     fmt.Sprintf(relationGroundingUserPrompt, chunkText, string(promptJSON)),
		ObjectName: "relation-grounding",
	}, &resp)
	if err != nil {
		return nil, err
	}

	results := make([]RelationGrounding, len(relations))
	for i, relation := range relations {
		results[i] = RelationGrounding{Relation: relation}
	}
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(relations) {
			logger.Debugf(ctx, "relation grounding verdict for unknown index %d", r.Index)
			continue
		}
		results[r.Index].Grounded = r.Grounded
		results[r.Index].Confidence = clamp01(r.Confidence)
	}
	return results, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
