package interfaces

import (
	"context"

	"github.com/semweave/semweave/internal/types"
)

// ClaimRepository persists claims emitted at the end of an extraction run.
// Storage provides at-least-once semantics; writers deduplicate by the
// deterministic claim ID.
type ClaimRepository interface {
	// SaveClaims upserts the claims, ignoring duplicates by ID
	SaveClaims(ctx context.Context, claims []*types.Claim) error

	// ListClaimsByDocument returns all claims for a document URI
	ListClaimsByDocument(ctx context.Context, documentURI string) ([]*types.Claim, error)

	// DeleteClaimsByDocument removes all claims for a document URI
	DeleteClaimsByDocument(ctx context.Context, documentURI string) error
}

// GraphSink receives the merged knowledge graph after a successful run.
// The Neo4j implementation persists entities and relations for downstream
// graph queries; the sink is optional.
type GraphSink interface {
	// WriteGraph persists the graph under the given document URI
	WriteGraph(ctx context.Context, documentURI string, graph *types.KnowledgeGraph) error
}
