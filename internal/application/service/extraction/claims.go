package extraction

import (
	"fmt"
	"sort"

	"github.com/semweave/semweave/internal/common"
	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
	"github.com/semweave/semweave/internal/types/interfaces"
)

// ClaimOptions parameterizes claim emission for one document.
type ClaimOptions struct {
	// Namespace entity IRIs are minted under
	BaseNamespace string
	// Identifier of the source document, part of every claim ID
	DocumentID string
	// URI of the source document recorded as provenance
	DocumentURI string
	// Ontology the claims are grounded against
	OntologyID string
	// Confidence assigned when the extraction carries none
	DefaultConfidence float64
}

// ClaimFactory turns graph entities and relations into content-addressable
// claims. IDs are pure functions of (subject, predicate, object, document),
// so re-extracting the same document yields the same IDs and downstream
// stores deduplicate on ID alone.
type ClaimFactory struct {
	clock interfaces.Clock
}

// NewClaimFactory creates a ClaimFactory.
func NewClaimFactory(clock interfaces.Clock) *ClaimFactory {
	return &ClaimFactory{clock: clock}
}

// NewClaimID derives the deterministic claim identifier. The NUL separator
// between components prevents ("abc","xyz") colliding with ("ab","cxyz").
func NewClaimID(subject, predicate, object, documentID string) string {
	return "claim-" + common.ShortHash(subject, predicate, object, documentID)
}

// NewAssertionID derives the identifier for a stored assertion.
func NewAssertionID(subject, predicate, object, documentID string) string {
	return "assertion-" + common.ShortHash(subject, predicate, object, documentID)
}

// NewDerivedAssertionID derives the identifier for an assertion produced by
// inference rather than extraction.
func NewDerivedAssertionID(subject, predicate, object, documentID string) string {
	return "derived-" + common.ShortHash(subject, predicate, object, documentID)
}

// EntityIRI mints the document-scoped IRI of a graph entity.
func EntityIRI(baseNamespace, entityID string) types.IRI {
	return fmt.Sprintf("%sentity/%s", baseNamespace, entityID)
}

// stringifyObject renders a claim object for hashing: IRIs as themselves,
// literals as value with datatype and language markers.
func stringifyObject(objectIRI types.IRI, literal *types.Literal) string {
	if literal == nil {
		return string(objectIRI)
	}
	datatype := literal.Datatype
	if datatype == "" {
		datatype = rdf.XSDString
	}
	return fmt.Sprintf("%s^^%s@%s", literal.Value, datatype, literal.Language)
}

// EntityToClaims emits one claim per type assertion and one per attribute of
// the entity.
func (f *ClaimFactory) EntityToClaims(entity *types.Entity, options ClaimOptions) []*types.Claim {
	subject := EntityIRI(options.BaseNamespace, entity.ID)
	confidence := entity.GroundingConfidence
	if confidence == 0 {
		confidence = options.DefaultConfidence
	}
	evidence := types.ClaimEvidence{
		DocumentURI: options.DocumentURI,
		Spans:       entity.MentionSpans,
		Context:     entity.Mention,
	}

	var claims []*types.Claim
	for _, typeIRI := range entity.Types {
		claims = append(claims, &types.Claim{
			ID:          NewClaimID(subject, rdf.RDFType, stringifyObject(typeIRI, nil), options.DocumentID),
			Subject:     subject,
			Predicate:   rdf.RDFType,
			ObjectIRI:   typeIRI,
			DocumentURI: options.DocumentURI,
			Evidence:    evidence,
			ExtractedAt: f.clock.Now(),
			Confidence:  confidence,
			Rank:        types.ClaimRankNormal,
		})
	}
	for _, key := range sortedAttributeKeys(entity.Attributes) {
		literal := &types.Literal{Value: fmt.Sprint(entity.Attributes[key]), Datatype: rdf.XSDString}
		claims = append(claims, &types.Claim{
			ID:            NewClaimID(subject, key, stringifyObject("", literal), options.DocumentID),
			Subject:       subject,
			Predicate:     key,
			ObjectLiteral: literal,
			DocumentURI:   options.DocumentURI,
			Evidence:      evidence,
			ExtractedAt:   f.clock.Now(),
			Confidence:    confidence,
			Rank:          types.ClaimRankNormal,
		})
	}
	return claims
}

// RelationToClaim emits the claim for one relation.
func (f *ClaimFactory) RelationToClaim(relation *types.Relation, options ClaimOptions) *types.Claim {
	subject := EntityIRI(options.BaseNamespace, relation.SubjectID)

	var objectIRI types.IRI
	if relation.ObjectLiteral == nil {
		objectIRI = EntityIRI(options.BaseNamespace, relation.ObjectID)
	}

	confidence := options.DefaultConfidence
	evidence := types.ClaimEvidence{DocumentURI: options.DocumentURI}
	if relation.Evidence != nil {
		evidence.Spans = []types.TextSpan{*relation.Evidence}
		evidence.Context = relation.Evidence.Text
		if relation.Evidence.Confidence > 0 {
			confidence = relation.Evidence.Confidence
		}
	}

	return &types.Claim{
		ID: NewClaimID(subject, relation.Predicate,
			stringifyObject(objectIRI, relation.ObjectLiteral), options.DocumentID),
		Subject:       subject,
		Predicate:     relation.Predicate,
		ObjectIRI:     objectIRI,
		ObjectLiteral: relation.ObjectLiteral,
		DocumentURI:   options.DocumentURI,
		Evidence:      evidence,
		ExtractedAt:   f.clock.Now(),
		Confidence:    confidence,
		Rank:          types.ClaimRankNormal,
	}
}

// GraphToClaims emits all claims of a merged graph in deterministic order.
func (f *ClaimFactory) GraphToClaims(graph *types.KnowledgeGraph, options ClaimOptions) []*types.Claim {
	var claims []*types.Claim
	for _, entity := range graph.Entities {
		claims = append(claims, f.EntityToClaims(entity, options)...)
	}
	for _, relation := range graph.Relations {
		claims = append(claims, f.RelationToClaim(relation, options))
	}
	return claims
}

func sortedAttributeKeys(attributes map[types.IRI]any) []types.IRI {
	keys := make([]types.IRI, 0, len(attributes))
	for key := range attributes {
		keys = append(keys, key)
	}
	// Deterministic claim order regardless of map iteration
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })
	return keys
}
