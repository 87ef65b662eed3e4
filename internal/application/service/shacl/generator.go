// Package shacl derives SHACL shapes from an ontology, validates RDF data
// stores against them and repairs violations through model-generated
// corrections.
package shacl

import (
	"context"
	"strconv"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
)

// Generator derives node and property shapes from an ontology graph, so
// validation is itself a product of the ontology model.
type Generator struct{}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// propertyShapeKey keys property shapes per (node shape, path) so that
// cardinality constraints layer onto one shape instead of duplicating it.
type propertyShapeKey struct {
	nodeShape string
	path      string
}

// GenerateShapes reads an ontology store and produces the shapes store.
// Every owl:Class gets one node shape targeting it; object and datatype
// properties with a domain get property shapes on each domain's node shape;
// functional properties and cardinality restrictions become minCount and
// maxCount constraints.
func (g *Generator) GenerateShapes(ctx context.Context, ontologyStore *rdf.MemoryStore) (*rdf.MemoryStore, error) {
	shapes := rdf.NewMemoryStore()

	classQuads, err := ontologyStore.GetQuads(ctx,
		nil, rdf.IRIPattern(rdf.RDFType), rdf.IRIPattern(rdf.OWLClass), "")
	if err != nil {
		return nil, err
	}

	nodeShapes := map[string]string{} // class IRI -> node shape IRI
	for _, q := range classQuads {
		if !q.Subject.IsIRI() {
			continue
		}
		classIRI := q.Subject.Value
		shapeIRI := classIRI + "Shape"
		nodeShapes[classIRI] = shapeIRI
		addAll(ctx, shapes,
			rdf.NewQuad(rdf.NewIRI(shapeIRI), rdf.NewIRI(rdf.RDFType), rdf.NewIRI(rdf.SHNodeShape)),
			rdf.NewQuad(rdf.NewIRI(shapeIRI), rdf.NewIRI(rdf.SHTargetClass), rdf.NewIRI(classIRI)),
		)
	}

	propertyShapes := map[propertyShapeKey]string{}

	// shapeFor returns (creating on demand) the property shape of a path on
	// a node shape.
	shapeFor := func(nodeShape, path string) string {
		key := propertyShapeKey{nodeShape: nodeShape, path: path}
		if iri, ok := propertyShapes[key]; ok {
			return iri
		}
		iri := nodeShape + "/" + types.LocalName(path)
		propertyShapes[key] = iri
		addAll(ctx, shapes,
			rdf.NewQuad(rdf.NewIRI(nodeShape), rdf.NewIRI(rdf.SHProperty), rdf.NewIRI(iri)),
			rdf.NewQuad(rdf.NewIRI(iri), rdf.NewIRI(rdf.RDFType), rdf.NewIRI(rdf.SHPropertyShape)),
			rdf.NewQuad(rdf.NewIRI(iri), rdf.NewIRI(rdf.SHPath), rdf.NewIRI(path)),
		)
		return iri
	}

	if err := g.generatePropertyShapes(ctx, ontologyStore, nodeShapes, shapeFor, shapes); err != nil {
		return nil, err
	}
	if err := g.generateCardinality(ctx, ontologyStore, nodeShapes, shapeFor, shapes); err != nil {
		return nil, err
	}

	size, _ := shapes.Size(ctx)
	logger.Infof(ctx, "generated shapes for %d classes (%d quads)", len(nodeShapes), size)
	return shapes, nil
}

func (g *Generator) generatePropertyShapes(
	ctx context.Context,
	ontologyStore *rdf.MemoryStore,
	nodeShapes map[string]string,
	shapeFor func(nodeShape, path string) string,
	shapes *rdf.MemoryStore,
) error {
	for _, propertyClass := range []string{rdf.OWLObjectProperty, rdf.OWLDatatypeProperty} {
		isObject := propertyClass == rdf.OWLObjectProperty
		propQuads, err := ontologyStore.GetQuads(ctx,
			nil, rdf.IRIPattern(rdf.RDFType), rdf.IRIPattern(propertyClass), "")
		if err != nil {
			return err
		}
		for _, pq := range propQuads {
			if !pq.Subject.IsIRI() {
				continue
			}
			propIRI := pq.Subject.Value

			domains, err := iriObjects(ctx, ontologyStore, propIRI, rdf.RDFSDomain)
			if err != nil {
				return err
			}
			// Properties without a domain attach to no node shape.
			if len(domains) == 0 {
				continue
			}
			ranges, err := iriObjects(ctx, ontologyStore, propIRI, rdf.RDFSRange)
			if err != nil {
				return err
			}

			functional, err := hasType(ctx, ontologyStore, propIRI, rdf.OWLFunctionalProperty)
			if err != nil {
				return err
			}

			for _, domain := range domains {
				nodeShape, ok := nodeShapes[domain]
				if !ok {
					continue
				}
				shapeIRI := shapeFor(nodeShape, propIRI)
				if isObject {
					for _, r := range ranges {
						addAll(ctx, shapes,
							rdf.NewQuad(rdf.NewIRI(shapeIRI), rdf.NewIRI(rdf.SHClass), rdf.NewIRI(r)))
					}
				} else {
					datatype := rdf.XSDString
					if len(ranges) > 0 {
						datatype = ranges[0]
					}
					addAll(ctx, shapes,
						rdf.NewQuad(rdf.NewIRI(shapeIRI), rdf.NewIRI(rdf.SHDatatype), rdf.NewIRI(datatype)),
						rdf.NewQuad(rdf.NewIRI(shapeIRI), rdf.NewIRI(rdf.SHNodeKind), rdf.NewIRI(rdf.SHLiteral)),
					)
				}
				if functional {
					addAll(ctx, shapes,
						rdf.NewQuad(rdf.NewIRI(shapeIRI), rdf.NewIRI(rdf.SHMaxCount),
							rdf.NewTypedLiteral("1", rdf.XSDInteger)))
				}
			}
		}
	}
	return nil
}

// generateCardinality lifts owl:minCardinality / owl:maxCardinality /
// owl:cardinality restrictions on subclass axioms into min/max counts on
// the restricted class's property shape.
func (g *Generator) generateCardinality(
	ctx context.Context,
	ontologyStore *rdf.MemoryStore,
	nodeShapes map[string]string,
	shapeFor func(nodeShape, path string) string,
	shapes *rdf.MemoryStore,
) error {
	subClassQuads, err := ontologyStore.GetQuads(ctx, nil, rdf.IRIPattern(rdf.RDFSSubClassOf), nil, "")
	if err != nil {
		return err
	}
	for _, q := range subClassQuads {
		if !q.Subject.IsIRI() || !q.Object.IsBlank() {
			continue
		}
		nodeShape, ok := nodeShapes[q.Subject.Value]
		if !ok {
			continue
		}
		restriction := q.Object
		onProperty, err := firstIRIObjectOfTerm(ctx, ontologyStore, restriction, rdf.OWLOnProperty)
		if err != nil {
			return err
		}
		// Blank subclass axioms without owl:onProperty are not restrictions
		// this derivation understands.
		if onProperty == "" {
			continue
		}

		shapeIRI := shapeFor(nodeShape, onProperty)
		for _, mapping := range []struct {
			owlPredicate string
			shPredicates []string
		}{
			{rdf.OWLMinCardinality, []string{rdf.SHMinCount}},
			{rdf.OWLMaxCardinality, []string{rdf.SHMaxCount}},
			{rdf.OWLCardinality, []string{rdf.SHMinCount, rdf.SHMaxCount}},
		} {
			value, err := firstLiteralObjectOfTerm(ctx, ontologyStore, restriction, mapping.owlPredicate)
			if err != nil {
				return err
			}
			if value == "" {
				continue
			}
			if _, err := strconv.Atoi(value); err != nil {
				logger.Warnf(ctx, "ignoring non-integer cardinality %q on %s", value, onProperty)
				continue
			}
			for _, shPredicate := range mapping.shPredicates {
				addAll(ctx, shapes,
					rdf.NewQuad(rdf.NewIRI(shapeIRI), rdf.NewIRI(shPredicate),
						rdf.NewTypedLiteral(value, rdf.XSDInteger)))
			}
		}
	}
	return nil
}

func addAll(ctx context.Context, store *rdf.MemoryStore, quads ...rdf.Quad) {
	for _, q := range quads {
		// MemoryStore.AddQuad cannot fail
		_ = store.AddQuad(ctx, q)
	}
}

func iriObjects(ctx context.Context, store *rdf.MemoryStore, subject, predicate string) ([]string, error) {
	quads, err := store.GetQuads(ctx, rdf.IRIPattern(subject), rdf.IRIPattern(predicate), nil, "")
	if err != nil {
		return nil, err
	}
	var result []string
	for _, q := range quads {
		if q.Object.IsIRI() {
			result = append(result, q.Object.Value)
		}
	}
	return result, nil
}

func hasType(ctx context.Context, store *rdf.MemoryStore, subject, typeIRI string) (bool, error) {
	quads, err := store.GetQuads(ctx,
		rdf.IRIPattern(subject), rdf.IRIPattern(rdf.RDFType), rdf.IRIPattern(typeIRI), "")
	if err != nil {
		return false, err
	}
	return len(quads) > 0, nil
}

func firstIRIObjectOfTerm(ctx context.Context, store *rdf.MemoryStore, subject rdf.Term, predicate string) (string, error) {
	quads, err := store.GetQuads(ctx, rdf.TermPattern(subject), rdf.IRIPattern(predicate), nil, "")
	if err != nil {
		return "", err
	}
	for _, q := range quads {
		if q.Object.IsIRI() {
			return q.Object.Value, nil
		}
	}
	return "", nil
}

func firstLiteralObjectOfTerm(ctx context.Context, store *rdf.MemoryStore, subject rdf.Term, predicate string) (string, error) {
	quads, err := store.GetQuads(ctx, rdf.TermPattern(subject), rdf.IRIPattern(predicate), nil, "")
	if err != nil {
		return "", err
	}
	for _, q := range quads {
		if q.Object.IsLiteral() {
			return q.Object.Value, nil
		}
	}
	return "", nil
}
