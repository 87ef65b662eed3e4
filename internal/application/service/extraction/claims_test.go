package extraction

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semweave/semweave/internal/common"
	"github.com/semweave/semweave/internal/types"
)

var claimIDRegex = regexp.MustCompile(`^claim-[0-9a-f]{12}$`)

func TestClaimIDShape(t *testing.T) {
	id := NewClaimID("http://x/s", "http://x/p", "http://x/o", "doc-1")
	assert.Regexp(t, claimIDRegex, id)
	assert.Regexp(t, `^assertion-[0-9a-f]{12}$`, NewAssertionID("s", "p", "o", "d"))
	assert.Regexp(t, `^derived-[0-9a-f]{12}$`, NewDerivedAssertionID("s", "p", "o", "d"))
}

func TestClaimIDDeterminism(t *testing.T) {
	a := NewClaimID("s", "p", "o", "d")
	b := NewClaimID("s", "p", "o", "d")
	assert.Equal(t, a, b)

	// Any single field change flips the ID
	assert.NotEqual(t, a, NewClaimID("S", "p", "o", "d"))
	assert.NotEqual(t, a, NewClaimID("s", "P", "o", "d"))
	assert.NotEqual(t, a, NewClaimID("s", "p", "O", "d"))
	assert.NotEqual(t, a, NewClaimID("s", "p", "o", "D"))

	// Boundary shifts do not collide
	assert.NotEqual(t, NewClaimID("ab", "cd", "e", "f"), NewClaimID("a", "bcd", "e", "f"))

	// Same triple, different ID family
	assert.NotEqual(t, NewClaimID("s", "p", "o", "d"), NewAssertionID("s", "p", "o", "d"))
}

func TestEntityToClaims(t *testing.T) {
	clock := common.FixedClock{Instant: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	factory := NewClaimFactory(clock)

	e := &types.Entity{
		ID:                  "e1",
		Mention:             "Acme Corp",
		Types:               []types.IRI{"http://x/Company"},
		Attributes:          map[types.IRI]any{"http://x/name": "Acme Corp"},
		GroundingConfidence: 0.92,
		MentionSpans:        []types.TextSpan{{Text: "Acme Corp", StartChar: 5, EndChar: 14}},
	}

	options := ClaimOptions{
		BaseNamespace:     "http://kg.example/",
		DocumentID:        "doc-1",
		DocumentURI:       "http://docs.example/1",
		DefaultConfidence: 0.5,
	}

	claims := factory.EntityToClaims(e, options)
	require.Len(t, claims, 2)

	typeClaim := claims[0]
	assert.Regexp(t, claimIDRegex, typeClaim.ID)
	assert.Equal(t, "http://kg.example/entity/e1", string(typeClaim.Subject))
	assert.Equal(t, "http://x/Company", string(typeClaim.ObjectIRI))
	assert.InDelta(t, 0.92, typeClaim.Confidence, 1e-9)
	assert.Equal(t, types.ClaimRankNormal, typeClaim.Rank)
	assert.Equal(t, clock.Instant, typeClaim.ExtractedAt)
	assert.Equal(t, "http://docs.example/1", typeClaim.Evidence.DocumentURI)
	require.Len(t, typeClaim.Evidence.Spans, 1)

	attrClaim := claims[1]
	require.NotNil(t, attrClaim.ObjectLiteral)
	assert.Equal(t, "Acme Corp", attrClaim.ObjectLiteral.Value)
}

func TestRelationToClaim(t *testing.T) {
	clock := common.FixedClock{Instant: time.Unix(1700000000, 0)}
	factory := NewClaimFactory(clock)

	r := &types.Relation{
		SubjectID: "e1",
		Predicate: "http://x/worksFor",
		ObjectID:  "e2",
		Evidence:  &types.TextSpan{Text: "works for", StartChar: 20, EndChar: 29, Confidence: 0.88},
	}
	options := ClaimOptions{BaseNamespace: "http://kg.example/", DocumentID: "doc-1", DefaultConfidence: 0.5}

	claim := factory.RelationToClaim(r, options)
	assert.Regexp(t, claimIDRegex, claim.ID)
	assert.Equal(t, "http://kg.example/entity/e1", string(claim.Subject))
	assert.Equal(t, "http://kg.example/entity/e2", string(claim.ObjectIRI))
	assert.InDelta(t, 0.88, claim.Confidence, 1e-9)

	// Same relation extracted from the same document yields the same ID
	again := factory.RelationToClaim(r, options)
	assert.Equal(t, claim.ID, again.ID)

	// A different document yields a different ID
	other := factory.RelationToClaim(r, ClaimOptions{BaseNamespace: "http://kg.example/", DocumentID: "doc-2"})
	assert.NotEqual(t, claim.ID, other.ID)
}

func TestGraphToClaimsDeterministicOrder(t *testing.T) {
	clock := common.FixedClock{Instant: time.Unix(0, 0)}
	factory := NewClaimFactory(clock)

	graph := &types.KnowledgeGraph{
		Entities: []*types.Entity{{
			ID:    "e1",
			Types: []types.IRI{"http://x/T"},
			Attributes: map[types.IRI]any{
				"http://x/b": "2",
				"http://x/a": "1",
			},
		}},
	}
	options := ClaimOptions{BaseNamespace: "http://kg.example/", DocumentID: "d"}

	first := factory.GraphToClaims(graph, options)
	second := factory.GraphToClaims(graph, options)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
	// Attribute claims sort by property IRI
	assert.Equal(t, "http://x/a", string(first[1].Predicate))
	assert.Equal(t, "http://x/b", string(first[2].Predicate))
}
