package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
)

func TestPopulateDataStore(t *testing.T) {
	ctx := context.Background()
	store := rdf.NewMemoryStore()

	graph := &types.KnowledgeGraph{
		Entities: []*types.Entity{{
			ID:    "e1",
			Types: []types.IRI{"http://x/Person"},
			Attributes: map[types.IRI]any{
				"http://x/age":  float64(30),
				"http://x/name": "Alice",
			},
		}, {
			ID:    "e2",
			Types: []types.IRI{"http://x/Company"},
		}},
		Relations: []*types.Relation{
			{SubjectID: "e1", Predicate: "http://x/worksFor", ObjectID: "e2"},
			{SubjectID: "e1", Predicate: "http://x/nickname",
				ObjectLiteral: &types.Literal{Value: "Al", Language: "en"}},
		},
	}

	require.NoError(t, PopulateDataStore(ctx, store, graph, "http://kg.example/"))

	subject := rdf.IRIPattern("http://kg.example/entity/e1")

	typeQuads, err := store.GetQuads(ctx, subject, rdf.IRIPattern(rdf.RDFType), nil, "")
	require.NoError(t, err)
	require.Len(t, typeQuads, 1)
	assert.Equal(t, "http://x/Person", typeQuads[0].Object.Value)

	ageQuads, err := store.GetQuads(ctx, subject, rdf.IRIPattern("http://x/age"), nil, "")
	require.NoError(t, err)
	require.Len(t, ageQuads, 1)
	assert.Equal(t, "30", ageQuads[0].Object.Value)
	assert.Equal(t, rdf.XSDInteger, ageQuads[0].Object.Datatype)

	workQuads, err := store.GetQuads(ctx, subject, rdf.IRIPattern("http://x/worksFor"), nil, "")
	require.NoError(t, err)
	require.Len(t, workQuads, 1)
	assert.Equal(t, "http://kg.example/entity/e2", workQuads[0].Object.Value)

	nickQuads, err := store.GetQuads(ctx, subject, rdf.IRIPattern("http://x/nickname"), nil, "")
	require.NoError(t, err)
	require.Len(t, nickQuads, 1)
	assert.Equal(t, "en", nickQuads[0].Object.Language)
}
