package classindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semweave/semweave/internal/types"
)

func TestMemoryIndexLexicalSearch(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex(nil)

	require.NoError(t, index.IndexClasses(ctx, map[types.IRI]string{
		"http://x/Person":  "Person\nA human being mentioned in text.",
		"http://x/Company": "Company\nA commercial organization.",
		"http://x/Event":   "Event\nSomething that happens at a time and place.",
	}))

	hits, err := index.SearchLexical(ctx, "a commercial company", 2)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, types.IRI("http://x/Company"), hits[0].ID)
}

func TestMemoryIndexLexicalDeterministicTieBreak(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex(nil)

	require.NoError(t, index.IndexClasses(ctx, map[types.IRI]string{
		"http://x/B": "widget thing",
		"http://x/A": "widget thing",
	}))

	for i := 0; i < 5; i++ {
		hits, err := index.SearchLexical(ctx, "widget", 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		// Equal scores fall back to IRI order
		assert.Equal(t, types.IRI("http://x/A"), hits[0].ID)
	}
}

func TestMemoryIndexWithoutEmbedder(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex(nil)
	require.NoError(t, index.IndexClasses(ctx, map[types.IRI]string{"http://x/A": "alpha"}))

	hits, err := index.SearchByText(ctx, "alpha", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
