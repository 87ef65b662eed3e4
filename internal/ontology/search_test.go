package ontology

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semweave/semweave/internal/types"
	"github.com/semweave/semweave/internal/types/interfaces"
)

func TestSearchClassesHybridLexical(t *testing.T) {
	ont := loadTestOntology(t)
	ctx := context.Background()

	hits, err := ont.SearchClassesHybrid(ctx, "a dog barking", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, types.IRI(dogIRI), hits[0].ID)
}

func TestSearchClassesHybridDeterministic(t *testing.T) {
	ont := loadTestOntology(t)
	ctx := context.Background()

	first, err := ont.SearchClassesHybrid(ctx, "living creature with legs", 4)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := ont.SearchClassesHybrid(ctx, "living creature with legs", 4)
		require.NoError(t, err)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].ID, again[j].ID)
		}
	}
}

func TestSearchClassesHybridEmptyOntology(t *testing.T) {
	ont := New(&types.OntologySnapshot{
		Hierarchy:         map[types.IRI][]types.IRI{},
		PropertyHierarchy: map[types.IRI][]types.IRI{},
	})
	hits, err := ont.SearchClassesHybrid(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

// failingVector always errors, hybrid search must fall back to lexical.
type failingVector struct{}

func (failingVector) SearchByText(ctx context.Context, query string, k int) ([]interfaces.ScoredID, error) {
	return nil, errors.New("vector index down")
}

func TestSearchClassesHybridVectorFailureFallsBack(t *testing.T) {
	ont := loadTestOntology(t)
	ont.SetVectorIndex(failingVector{})

	hits, err := ont.SearchClassesHybrid(context.Background(), "a dog barking", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, types.IRI(dogIRI), hits[0].ID)
}

// fixedVector returns a canned ranking.
type fixedVector struct {
	hits []interfaces.ScoredID
}

func (v fixedVector) SearchByText(ctx context.Context, query string, k int) ([]interfaces.ScoredID, error) {
	return v.hits, nil
}

func TestSearchClassesHybridCombinesScores(t *testing.T) {
	ont := loadTestOntology(t)
	// Vector index insists Person is relevant even without lexical overlap
	ont.SetVectorIndex(fixedVector{hits: []interfaces.ScoredID{{ID: personIRI, Score: 1.0}}})

	hits, err := ont.SearchClassesHybrid(context.Background(), "a dog barking", 10)
	require.NoError(t, err)

	ids := make([]types.IRI, len(hits))
	for i := range hits {
		ids[i] = hits[i].ID
	}
	assert.Contains(t, ids, types.IRI(dogIRI))
	assert.Contains(t, ids, types.IRI(personIRI))
	// Lexical weight dominates: the dog stays on top
	assert.Equal(t, types.IRI(dogIRI), hits[0].ID)
}

func TestFirstClasses(t *testing.T) {
	ont := loadTestOntology(t)
	first := ont.FirstClasses(2)
	require.Len(t, first, 2)
	assert.Equal(t, types.IRI(animalIRI), first[0].ID)

	all := ont.FirstClasses(100)
	assert.Len(t, all, 4)
}
