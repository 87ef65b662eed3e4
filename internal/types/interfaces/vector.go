package interfaces

import (
	"context"

	"github.com/semweave/semweave/internal/types"
)

// ScoredID is a search hit from a class index.
type ScoredID struct {
	// Class IRI
	ID types.IRI `json:"id"`
	// Relevance score, higher is better
	Score float64 `json:"score"`
}

// VectorIndex is an optional remote vector search collaborator. When absent,
// hybrid class search degrades to lexical only.
type VectorIndex interface {
	// SearchByText embeds the query and returns the k nearest indexed documents
	SearchByText(ctx context.Context, query string, k int) ([]ScoredID, error)
}

// ClassIndex indexes ontology class documents for retrieval. Backends exist
// in memory, on Postgres/pgvector and on Elasticsearch.
type ClassIndex interface {
	// IndexClasses (re)builds the index from class documents keyed by IRI
	IndexClasses(ctx context.Context, docs map[types.IRI]string) error

	// SearchLexical scores indexed documents by token overlap with the query
	SearchLexical(ctx context.Context, query string, k int) ([]ScoredID, error)

	VectorIndex
}
