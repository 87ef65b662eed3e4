package extraction

import (
	"context"
	"fmt"
	"sort"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
)

// Merger folds per-chunk graph fragments into one document graph. Merge is
// associative and commutative with the empty graph as identity, which lets
// the streaming driver fold fragments in completion order.
type Merger struct{}

// NewMerger creates a Merger.
func NewMerger() *Merger {
	return &Merger{}
}

// Merge combines two graphs. Entities are unioned by ID: types keep
// first-appearance order, attributes union with the later write winning on
// conflict (logged), mention spans union, the chunk index is the minimum and
// the grounding confidence the maximum over the group. Relations dedupe on
// (subject, predicate, object), keeping the highest-confidence evidence.
func (m *Merger) Merge(ctx context.Context, g1, g2 *types.KnowledgeGraph) *types.KnowledgeGraph {
	if g1 == nil {
		g1 = types.EmptyGraph()
	}
	if g2 == nil {
		g2 = types.EmptyGraph()
	}

	merged := types.EmptyGraph()

	entityByID := map[string]*types.Entity{}
	for _, e := range append(append([]*types.Entity{}, g1.Entities...), g2.Entities...) {
		existing, ok := entityByID[e.ID]
		if !ok {
			clone := cloneEntity(e)
			entityByID[e.ID] = clone
			merged.Entities = append(merged.Entities, clone)
			continue
		}
		mergeEntityInto(ctx, existing, e)
	}

	// Entities sort by their earliest chunk, then ID, so the merged order
	// does not depend on fragment arrival order.
	sort.SliceStable(merged.Entities, func(a, b int) bool {
		ea, eb := merged.Entities[a], merged.Entities[b]
		if ea.ChunkIndex != eb.ChunkIndex {
			return ea.ChunkIndex < eb.ChunkIndex
		}
		return ea.ID < eb.ID
	})

	relationByKey := map[string]*types.Relation{}
	for _, r := range append(append([]*types.Relation{}, g1.Relations...), g2.Relations...) {
		key := relationKey(r)
		existing, ok := relationByKey[key]
		if !ok {
			clone := cloneRelation(r)
			relationByKey[key] = clone
			merged.Relations = append(merged.Relations, clone)
			continue
		}
		// Duplicate relation: keep the better-evidenced copy.
		if betterEvidence(r.Evidence, existing.Evidence) {
			existing.Evidence = cloneSpan(r.Evidence)
		}
	}

	sort.SliceStable(merged.Relations, func(a, b int) bool {
		return relationKey(merged.Relations[a]) < relationKey(merged.Relations[b])
	})

	return merged
}

// MergeAll folds fragments left to right from the identity.
func (m *Merger) MergeAll(ctx context.Context, fragments []*types.KnowledgeGraph) *types.KnowledgeGraph {
	result := types.EmptyGraph()
	for _, fragment := range fragments {
		result = m.Merge(ctx, result, fragment)
	}
	return result
}

func mergeEntityInto(ctx context.Context, dst *types.Entity, src *types.Entity) {
	// Types union preserving first appearance
	seen := make(map[types.IRI]struct{}, len(dst.Types))
	for _, t := range dst.Types {
		seen[t] = struct{}{}
	}
	for _, t := range src.Types {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			dst.Types = append(dst.Types, t)
		}
	}

	for key, value := range src.Attributes {
		if prev, ok := dst.Attributes[key]; ok && fmt.Sprint(prev) != fmt.Sprint(value) {
			logger.Warnf(ctx, "attribute conflict on entity %s %s: %v replaced by %v", dst.ID, key, prev, value)
		}
		if dst.Attributes == nil {
			dst.Attributes = map[types.IRI]any{}
		}
		dst.Attributes[key] = value
	}

	dst.MentionSpans = append(dst.MentionSpans, src.MentionSpans...)

	if src.ChunkIndex < dst.ChunkIndex {
		dst.ChunkIndex = src.ChunkIndex
		dst.ChunkID = src.ChunkID
		dst.Mention = src.Mention
	}
	if src.GroundingConfidence > dst.GroundingConfidence {
		dst.GroundingConfidence = src.GroundingConfidence
	}
}

// relationKey is the identity tuple of a relation; literal objects include
// value, datatype and language.
func relationKey(r *types.Relation) string {
	if r.ObjectLiteral != nil {
		datatype := r.ObjectLiteral.Datatype
		if datatype == "" {
			datatype = rdf.XSDString
		}
		return fmt.Sprintf("%s\x00%s\x00lit\x00%s\x00%s\x00%s",
			r.SubjectID, r.Predicate, r.ObjectLiteral.Value, datatype, r.ObjectLiteral.Language)
	}
	return fmt.Sprintf("%s\x00%s\x00ent\x00%s", r.SubjectID, r.Predicate, r.ObjectID)
}

func betterEvidence(candidate, current *types.TextSpan) bool {
	if candidate == nil {
		return false
	}
	if current == nil {
		return true
	}
	return candidate.Confidence > current.Confidence
}

func cloneEntity(e *types.Entity) *types.Entity {
	clone := *e
	clone.Types = append([]types.IRI{}, e.Types...)
	clone.MentionSpans = append([]types.TextSpan{}, e.MentionSpans...)
	if e.Attributes != nil {
		clone.Attributes = make(map[types.IRI]any, len(e.Attributes))
		for k, v := range e.Attributes {
			clone.Attributes[k] = v
		}
	}
	return &clone
}

func cloneRelation(r *types.Relation) *types.Relation {
	clone := *r
	if r.ObjectLiteral != nil {
		literal := *r.ObjectLiteral
		clone.ObjectLiteral = &literal
	}
	clone.Evidence = cloneSpan(r.Evidence)
	return &clone
}

func cloneSpan(s *types.TextSpan) *types.TextSpan {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}
