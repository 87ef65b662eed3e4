package rdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreAddGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	q1 := NewQuad(NewIRI("http://x/a"), NewIRI("http://x/p"), NewLiteral("1"))
	q2 := NewQuad(NewIRI("http://x/a"), NewIRI("http://x/q"), NewLiteral("2"))
	q3 := NewQuad(NewIRI("http://x/b"), NewIRI("http://x/p"), NewLiteral("3"))

	require.NoError(t, store.AddQuads(ctx, []Quad{q1, q2, q3}))
	// Duplicate insert is a no-op
	require.NoError(t, store.AddQuad(ctx, q1))

	size, err := store.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	bySubject, err := store.GetQuads(ctx, IRIPattern("http://x/a"), nil, nil, "")
	require.NoError(t, err)
	assert.Len(t, bySubject, 2)

	byPredicate, err := store.GetQuads(ctx, nil, IRIPattern("http://x/p"), nil, "")
	require.NoError(t, err)
	assert.Len(t, byPredicate, 2)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Insertion order is preserved
	assert.Equal(t, "1", all[0].Object.Value)
	assert.Equal(t, "2", all[1].Object.Value)
	assert.Equal(t, "3", all[2].Object.Value)
}

func TestMemoryStoreRemove(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	q := NewQuad(NewIRI("http://x/a"), NewIRI("http://x/p"), NewLiteral("1"))
	require.NoError(t, store.AddQuad(ctx, q))
	require.NoError(t, store.RemoveQuad(ctx, q))
	// Removing a missing quad is a no-op
	require.NoError(t, store.RemoveQuad(ctx, q))

	size, err := store.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// Re-adding after removal works
	require.NoError(t, store.AddQuad(ctx, q))
	size, _ = store.Size(ctx)
	assert.Equal(t, 1, size)
	found, err := store.GetQuads(ctx, IRIPattern("http://x/a"), nil, nil, "")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestMemoryStoreObjectPattern(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	lit := NewTypedLiteral("5", XSDInteger)
	require.NoError(t, store.AddQuad(ctx, NewQuad(NewIRI("http://x/a"), NewIRI("http://x/p"), lit)))
	require.NoError(t, store.AddQuad(ctx, NewQuad(NewIRI("http://x/a"), NewIRI("http://x/p"), NewLiteral("5"))))

	// Typed and plain literals are distinct objects
	typed, err := store.GetQuads(ctx, nil, nil, TermPattern(lit), "")
	require.NoError(t, err)
	assert.Len(t, typed, 1)
}
