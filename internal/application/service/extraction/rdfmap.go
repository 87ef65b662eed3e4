package extraction

import (
	"context"
	"fmt"

	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
)

// PopulateDataStore writes the merged graph into an RDF store so the SHACL
// validator and corrector can work on it. Entity IRIs are minted under the
// base namespace; attribute values become plain string literals unless they
// decode as numbers or booleans.
func PopulateDataStore(ctx context.Context, store *rdf.MemoryStore, graph *types.KnowledgeGraph, baseNamespace string) error {
	for _, entity := range graph.Entities {
		subject := rdf.NewIRI(EntityIRI(baseNamespace, entity.ID))
		for _, typeIRI := range entity.Types {
			if err := store.AddQuad(ctx, rdf.NewQuad(subject, rdf.NewIRI(rdf.RDFType), rdf.NewIRI(typeIRI))); err != nil {
				return err
			}
		}
		for _, key := range sortedAttributeKeys(entity.Attributes) {
			object := literalTermForValue(entity.Attributes[key])
			if err := store.AddQuad(ctx, rdf.NewQuad(subject, rdf.NewIRI(key), object)); err != nil {
				return err
			}
		}
	}

	for _, relation := range graph.Relations {
		subject := rdf.NewIRI(EntityIRI(baseNamespace, relation.SubjectID))
		predicate := rdf.NewIRI(relation.Predicate)
		var object rdf.Term
		if relation.ObjectLiteral != nil {
			literal := relation.ObjectLiteral
			if literal.Language != "" {
				object = rdf.NewLangLiteral(literal.Value, literal.Language)
			} else {
				object = rdf.NewTypedLiteral(literal.Value, literal.Datatype)
			}
		} else {
			object = rdf.NewIRI(EntityIRI(baseNamespace, relation.ObjectID))
		}
		if err := store.AddQuad(ctx, rdf.NewQuad(subject, predicate, object)); err != nil {
			return err
		}
	}

	return nil
}

// literalTermForValue maps a decoded JSON attribute value onto a typed
// literal.
func literalTermForValue(value any) rdf.Term {
	switch v := value.(type) {
	case bool:
		return rdf.NewTypedLiteral(fmt.Sprintf("%t", v), rdf.XSDBoolean)
	case float64:
		if v == float64(int64(v)) {
			return rdf.NewTypedLiteral(fmt.Sprintf("%d", int64(v)), rdf.XSDInteger)
		}
		return rdf.NewTypedLiteral(fmt.Sprintf("%g", v), rdf.XSDDecimal)
	case int:
		return rdf.NewTypedLiteral(fmt.Sprintf("%d", v), rdf.XSDInteger)
	default:
		return rdf.NewLiteral(fmt.Sprint(v))
	}
}
