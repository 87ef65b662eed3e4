package extraction

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semweave/semweave/internal/types"
)

func entity(id string, chunkIndex int, confidence float64, typeIRIs ...string) *types.Entity {
	return &types.Entity{
		ID:                  id,
		Mention:             id,
		Types:               typeIRIs,
		ChunkIndex:          chunkIndex,
		GroundingConfidence: confidence,
	}
}

func relation(subject, predicate, object string) *types.Relation {
	return &types.Relation{SubjectID: subject, Predicate: predicate, ObjectID: object}
}

func TestMergeIdentity(t *testing.T) {
	merger := NewMerger()
	ctx := context.Background()

	g := &types.KnowledgeGraph{
		Entities:  []*types.Entity{entity("e1", 0, 0.9, "http://x/T")},
		Relations: []*types.Relation{relation("e1", "http://x/p", "e1")},
	}

	left := merger.Merge(ctx, types.EmptyGraph(), g)
	right := merger.Merge(ctx, g, types.EmptyGraph())

	assert.Len(t, left.Entities, 1)
	assert.Len(t, right.Entities, 1)
	assert.Len(t, left.Relations, 1)
	assert.Len(t, right.Relations, 1)
}

func TestMergeEntityUnion(t *testing.T) {
	merger := NewMerger()
	ctx := context.Background()

	g1 := &types.KnowledgeGraph{Entities: []*types.Entity{
		func() *types.Entity {
			e := entity("e1", 2, 0.7, "http://x/A")
			e.Attributes = map[types.IRI]any{"http://x/name": "Alice"}
			e.MentionSpans = []types.TextSpan{{Text: "Alice", StartChar: 10, EndChar: 15}}
			return e
		}(),
	}}
	g2 := &types.KnowledgeGraph{Entities: []*types.Entity{
		func() *types.Entity {
			e := entity("e1", 0, 0.9, "http://x/A", "http://x/B")
			e.Attributes = map[types.IRI]any{"http://x/age": "30"}
			e.MentionSpans = []types.TextSpan{{Text: "Alice", StartChar: 200, EndChar: 205}}
			return e
		}(),
	}}

	merged := merger.Merge(ctx, g1, g2)
	require.Len(t, merged.Entities, 1)
	e := merged.Entities[0]

	// Types union, first appearance order
	assert.Equal(t, []types.IRI{"http://x/A", "http://x/B"}, e.Types)
	// Attributes union
	assert.Equal(t, "Alice", e.Attributes["http://x/name"])
	assert.Equal(t, "30", e.Attributes["http://x/age"])
	// Spans union
	assert.Len(t, e.MentionSpans, 2)
	// Minimum chunk index, maximum confidence
	assert.Equal(t, 0, e.ChunkIndex)
	assert.InDelta(t, 0.9, e.GroundingConfidence, 1e-9)
}

func TestMergeRelationDeduplication(t *testing.T) {
	merger := NewMerger()
	ctx := context.Background()

	r1 := relation("e1", "http://x/p", "e2")
	r1.Evidence = &types.TextSpan{Text: "weak", Confidence: 0.5}
	r2 := relation("e1", "http://x/p", "e2")
	r2.Evidence = &types.TextSpan{Text: "strong", Confidence: 0.95}

	g1 := &types.KnowledgeGraph{Entities: []*types.Entity{entity("e1", 0, 1, "http://x/T"), entity("e2", 0, 1, "http://x/T")}, Relations: []*types.Relation{r1}}
	g2 := &types.KnowledgeGraph{Entities: []*types.Entity{entity("e1", 1, 1, "http://x/T"), entity("e2", 1, 1, "http://x/T")}, Relations: []*types.Relation{r2}}

	merged := merger.Merge(ctx, g1, g2)
	require.Len(t, merged.Relations, 1)
	assert.Equal(t, "strong", merged.Relations[0].Evidence.Text)
}

func TestMergeLiteralRelationIdentity(t *testing.T) {
	merger := NewMerger()
	ctx := context.Background()

	lit1 := &types.Relation{SubjectID: "e1", Predicate: "http://x/name",
		ObjectLiteral: &types.Literal{Value: "Alice"}}
	lit2 := &types.Relation{SubjectID: "e1", Predicate: "http://x/name",
		ObjectLiteral: &types.Literal{Value: "Alice", Datatype: "http://www.w3.org/2001/XMLSchema#string"}}
	lit3 := &types.Relation{SubjectID: "e1", Predicate: "http://x/name",
		ObjectLiteral: &types.Literal{Value: "Alice", Language: "en"}}

	g1 := &types.KnowledgeGraph{Entities: []*types.Entity{entity("e1", 0, 1, "http://x/T")}, Relations: []*types.Relation{lit1}}
	g2 := &types.KnowledgeGraph{Entities: []*types.Entity{entity("e1", 0, 1, "http://x/T")}, Relations: []*types.Relation{lit2, lit3}}

	merged := merger.Merge(ctx, g1, g2)
	// Default datatype equals explicit xsd:string; the language-tagged one
	// is distinct
	assert.Len(t, merged.Relations, 2)
}

func TestMergeFoldIsPermutationInvariant(t *testing.T) {
	merger := NewMerger()
	ctx := context.Background()

	fragments := []*types.KnowledgeGraph{
		{Entities: []*types.Entity{entity("e1", 0, 0.6, "http://x/A")},
			Relations: []*types.Relation{relation("e1", "http://x/p", "e2")}},
		{Entities: []*types.Entity{entity("e2", 1, 0.8, "http://x/B")},
			Relations: []*types.Relation{relation("e1", "http://x/p", "e2")}},
		{Entities: []*types.Entity{entity("e1", 2, 0.9, "http://x/A", "http://x/C"), entity("e3", 2, 0.5, "http://x/B")}},
		types.EmptyGraph(),
	}

	reference := merger.MergeAll(ctx, fragments)

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 10; trial++ {
		shuffled := append([]*types.KnowledgeGraph{}, fragments...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		result := merger.MergeAll(ctx, shuffled)

		require.Len(t, result.Entities, len(reference.Entities))
		for i := range reference.Entities {
			assert.Equal(t, reference.Entities[i].ID, result.Entities[i].ID)
			assert.Equal(t, reference.Entities[i].ChunkIndex, result.Entities[i].ChunkIndex)
			assert.InDelta(t, reference.Entities[i].GroundingConfidence, result.Entities[i].GroundingConfidence, 1e-9)
			assert.ElementsMatch(t, reference.Entities[i].Types, result.Entities[i].Types)
		}
		require.Len(t, result.Relations, len(reference.Relations))
		for i := range reference.Relations {
			assert.Equal(t, reference.Relations[i].SubjectID, result.Relations[i].SubjectID)
			assert.Equal(t, reference.Relations[i].Predicate, result.Relations[i].Predicate)
		}
	}
}
