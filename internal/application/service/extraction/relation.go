package extraction

import (
	"context"
	"fmt"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/models/llm"
	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
)

// SubClassPredicate answers subclass-or-equal questions during domain and
// range checking. The ontology Context satisfies it.
type SubClassPredicate interface {
	IsSubClassOf(child, parent types.IRI) bool
}

// RelationExtractor produces typed relations between a chunk's entities,
// constrained to the properties scoped to those entities' types.
type RelationExtractor struct {
	generator *llm.Generator
}

// NewRelationExtractor creates a RelationExtractor.
func NewRelationExtractor(generator *llm.Generator) *RelationExtractor {
	return &RelationExtractor{generator: generator}
}

type relationResponse struct {
	Relations []extractedRelation `json:"relations"`
}

type extractedRelation struct {
	SubjectID     string         `json:"subject_id"`
	Predicate     types.IRI      `json:"predicate"`
	ObjectID      string         `json:"object_id"`
	ObjectLiteral *types.Literal `json:"object_literal"`
	Evidence      *types.TextSpan `json:"evidence"`
}

// Extract returns the relations the model finds between the entities.
// Constraints are enforced at acceptance time, not prompt time: unknown
// subjects or objects, unscoped predicates and domain/range mismatches drop
// the relation with a debug log instead of failing the chunk.
func (r *RelationExtractor) Extract(
	ctx context.Context,
	chunk types.TextChunk,
	entities []*types.Entity,
	scopedProperties []types.PropertyDefinition,
	isSubClassOf SubClassPredicate,
) ([]*types.Relation, error) {
	if len(entities) < 2 || len(scopedProperties) == 0 {
		return []*types.Relation{}, nil
	}

	var resp relationResponse
	err := r.generator.GenerateObject(ctx, llm.GenerateRequest{
		System: relationSystemPrompt,
		Prompt: fmt.Sprintf(relationUserPrompt,
			chunk.Text,
			describeEntitiesJSON(entities),
			describeProperties(scopedProperties)),
		ObjectName: "relations",
	}, &resp)
	if err != nil {
		return nil, err
	}

	entitiesByID := make(map[string]*types.Entity, len(entities))
	for _, e := range entities {
		entitiesByID[e.ID] = e
	}
	propsByIRI := make(map[types.IRI]*types.PropertyDefinition, len(scopedProperties))
	for i := range scopedProperties {
		propsByIRI[scopedProperties[i].ID] = &scopedProperties[i]
	}

	relations := make([]*types.Relation, 0, len(resp.Relations))
	for _, raw := range resp.Relations {
		subject, ok := entitiesByID[raw.SubjectID]
		if !ok {
			logger.Debugf(ctx, "dropping relation: unknown subject %q", raw.SubjectID)
			continue
		}
		property, ok := propsByIRI[raw.Predicate]
		if !ok {
			logger.Debugf(ctx, "dropping relation: predicate %s not in scope", raw.Predicate)
			continue
		}
		if !domainAccepts(property, subject, isSubClassOf) {
			logger.Debugf(ctx, "dropping relation: subject %q fails domain of %s", subject.Mention, property.ID)
			continue
		}

		relation := &types.Relation{
			SubjectID: raw.SubjectID,
			Predicate: raw.Predicate,
			Evidence:  shiftEvidence(raw.Evidence, chunk.StartOffset),
		}

		if property.IsObjectProperty() {
			object, ok := entitiesByID[raw.ObjectID]
			if !ok {
				logger.Debugf(ctx, "dropping relation: unknown object %q for %s", raw.ObjectID, property.ID)
				continue
			}
			if !rangeAcceptsEntity(property, object, isSubClassOf) {
				logger.Debugf(ctx, "dropping relation: object %q fails range of %s", object.Mention, property.ID)
				continue
			}
			relation.ObjectID = raw.ObjectID
		} else {
			if raw.ObjectLiteral == nil {
				logger.Debugf(ctx, "dropping relation: datatype predicate %s without literal object", property.ID)
				continue
			}
			literal := *raw.ObjectLiteral
			if literal.Datatype == "" {
				literal.Datatype = rdf.XSDString
			}
			if !rangeAcceptsLiteral(property, &literal) {
				logger.Debugf(ctx, "dropping relation: literal datatype %s fails range of %s",
					literal.Datatype, property.ID)
				continue
			}
			relation.ObjectLiteral = &literal
		}

		relations = append(relations, relation)
	}

	logger.Debugf(ctx, "accepted %d of %d relations in chunk %d", len(relations), len(resp.Relations), chunk.Index)
	return relations, nil
}

// domainAccepts checks that some type of the subject is a subclass of some
// domain class of the property. An empty domain accepts everything.
func domainAccepts(property *types.PropertyDefinition, subject *types.Entity, isSubClassOf SubClassPredicate) bool {
	if len(property.Domain) == 0 {
		return true
	}
	for _, domain := range property.Domain {
		for _, t := range subject.Types {
			if isSubClassOf.IsSubClassOf(t, domain) {
				return true
			}
		}
	}
	return false
}

// rangeAcceptsEntity is the object-property analogue of domainAccepts.
func rangeAcceptsEntity(property *types.PropertyDefinition, object *types.Entity, isSubClassOf SubClassPredicate) bool {
	if len(property.Range) == 0 {
		return true
	}
	for _, rng := range property.Range {
		for _, t := range object.Types {
			if isSubClassOf.IsSubClassOf(t, rng) {
				return true
			}
		}
	}
	return false
}

// rangeAcceptsLiteral checks the literal's datatype against the property
// range. An empty range accepts any literal.
func rangeAcceptsLiteral(property *types.PropertyDefinition, literal *types.Literal) bool {
	if len(property.Range) == 0 {
		return true
	}
	for _, rng := range property.Range {
		if rng == literal.Datatype {
			return true
		}
	}
	return false
}

// shiftEvidence moves a chunk-local span into document coordinates.
func shiftEvidence(span *types.TextSpan, offset int) *types.TextSpan {
	if span == nil {
		return nil
	}
	return &types.TextSpan{
		Text:       span.Text,
		StartChar:  span.StartChar + offset,
		EndChar:    span.EndChar + offset,
		Confidence: span.Confidence,
	}
}
