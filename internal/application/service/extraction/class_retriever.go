package extraction

import (
	"context"
	"strings"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/ontology"
	"github.com/semweave/semweave/internal/types"
)

// DefaultCandidateClassLimit bounds the candidate class set per chunk.
const DefaultCandidateClassLimit = 100

// ClassRetriever selects the candidate ontology classes for a chunk from
// its mentions via hybrid search.
type ClassRetriever struct {
	ontology *ontology.Context
}

// NewClassRetriever creates a ClassRetriever over the loaded ontology.
func NewClassRetriever(ont *ontology.Context) *ClassRetriever {
	return &ClassRetriever{ontology: ont}
}

// RetrieveCandidates returns up to k candidate classes for the chunk. The
// mentions are aggregated into a single query: one hybrid search per chunk
// is cheaper than one per mention and the combined context scores better.
// On search failure the retriever falls back to the first k classes of the
// ontology in declaration order.
func (r *ClassRetriever) RetrieveCandidates(
	ctx context.Context, chunkText string, mentions []types.Mention, k int,
) []types.ClassDefinition {
	if k <= 0 {
		k = DefaultCandidateClassLimit
	}

	query := aggregateQuery(mentions)
	if query == "" {
		query = chunkText
	}

	candidates, err := r.ontology.SearchClassesHybrid(ctx, query, k)
	if err != nil {
		logger.Warnf(ctx, "hybrid class search failed, falling back to first %d classes: %v", k, err)
		return r.ontology.FirstClasses(k)
	}
	return candidates
}

// aggregateQuery joins the mentions, attaching each mention's context when
// present.
func aggregateQuery(mentions []types.Mention) string {
	parts := make([]string, 0, len(mentions))
	for _, m := range mentions {
		if m.Context != "" {
			parts = append(parts, m.Mention+": "+m.Context)
		} else {
			parts = append(parts, m.Mention)
		}
	}
	return strings.Join(parts, " ")
}
