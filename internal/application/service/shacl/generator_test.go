package shacl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semweave/semweave/internal/rdf"
)

func storeFromTurtle(t *testing.T, turtle string) *rdf.MemoryStore {
	t.Helper()
	quads, err := rdf.ParseTurtle(turtle)
	require.NoError(t, err)
	store := rdf.NewMemoryStore()
	require.NoError(t, store.AddQuads(context.Background(), quads))
	return store
}

func countMatches(t *testing.T, store *rdf.MemoryStore, predicate string, object *rdf.Term) int {
	t.Helper()
	quads, err := store.GetQuads(context.Background(), nil, rdf.IRIPattern(predicate), object, "")
	require.NoError(t, err)
	return len(quads)
}

func TestGenerateShapesNodeShapePerClass(t *testing.T) {
	ontologyStore := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
ex:Person a owl:Class .
ex:Company a owl:Class .
`)
	shapes, err := NewGenerator().GenerateShapes(context.Background(), ontologyStore)
	require.NoError(t, err)

	ctx := context.Background()
	nodeShapes, err := shapes.GetQuads(ctx, nil, rdf.IRIPattern(rdf.RDFType), rdf.IRIPattern(rdf.SHNodeShape), "")
	require.NoError(t, err)
	assert.Len(t, nodeShapes, 2)

	// Exactly one node shape targets each class
	for _, class := range []string{"http://example.org/onto#Person", "http://example.org/onto#Company"} {
		target := rdf.NewIRI(class)
		assert.Equal(t, 1, countMatches(t, shapes, rdf.SHTargetClass, &target), "class %s", class)
	}
}

func TestGenerateShapesDatatypeProperty(t *testing.T) {
	ontologyStore := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
ex:Person a owl:Class .
ex:name a owl:DatatypeProperty ; rdfs:domain ex:Person ; rdfs:range xsd:string .
`)
	shapes, err := NewGenerator().GenerateShapes(context.Background(), ontologyStore)
	require.NoError(t, err)

	xsdString := rdf.NewIRI(rdf.XSDString)
	literal := rdf.NewIRI(rdf.SHLiteral)
	// Exactly one sh:datatype xsd:string and one sh:nodeKind sh:Literal
	assert.Equal(t, 1, countMatches(t, shapes, rdf.SHDatatype, &xsdString))
	assert.Equal(t, 1, countMatches(t, shapes, rdf.SHNodeKind, &literal))

	// The property shape hangs off the Person node shape
	personShape := rdf.NewIRI("http://example.org/onto#PersonShape")
	propShapes, err := shapes.GetQuads(context.Background(),
		rdf.TermPattern(personShape), rdf.IRIPattern(rdf.SHProperty), nil, "")
	require.NoError(t, err)
	assert.Len(t, propShapes, 1)
}

func TestGenerateShapesFunctionalProperty(t *testing.T) {
	ontologyStore := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
ex:Person a owl:Class .
ex:hasSpouse a owl:ObjectProperty, owl:FunctionalProperty ; rdfs:domain ex:Person ; rdfs:range ex:Person .
`)
	shapes, err := NewGenerator().GenerateShapes(context.Background(), ontologyStore)
	require.NoError(t, err)

	one := rdf.NewTypedLiteral("1", rdf.XSDInteger)
	assert.Equal(t, 1, countMatches(t, shapes, rdf.SHMaxCount, &one))
}

func TestGenerateShapesCardinalityRestriction(t *testing.T) {
	ontologyStore := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
ex:Team a owl:Class ;
    rdfs:subClassOf [ a owl:Restriction ; owl:onProperty ex:hasPlayer ; owl:minCardinality 11 ; owl:maxCardinality 25 ] .
ex:hasPlayer a owl:ObjectProperty ; rdfs:domain ex:Team .
`)
	shapes, err := NewGenerator().GenerateShapes(context.Background(), ontologyStore)
	require.NoError(t, err)

	eleven := rdf.NewTypedLiteral("11", rdf.XSDInteger)
	twentyFive := rdf.NewTypedLiteral("25", rdf.XSDInteger)
	assert.Equal(t, 1, countMatches(t, shapes, rdf.SHMinCount, &eleven))
	assert.Equal(t, 1, countMatches(t, shapes, rdf.SHMaxCount, &twentyFive))

	// Both counts sit on the TeamShape's hasPlayer property shape, not on
	// duplicated shapes
	ctx := context.Background()
	minQuads, err := shapes.GetQuads(ctx, nil, rdf.IRIPattern(rdf.SHMinCount), nil, "")
	require.NoError(t, err)
	maxQuads, err := shapes.GetQuads(ctx, nil, rdf.IRIPattern(rdf.SHMaxCount), nil, "")
	require.NoError(t, err)
	require.Len(t, minQuads, 1)
	require.Len(t, maxQuads, 1)
	assert.True(t, minQuads[0].Subject.Equal(maxQuads[0].Subject))
}

func TestGenerateShapesSkipsDomainlessProperties(t *testing.T) {
	ontologyStore := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
ex:Person a owl:Class .
ex:floating a owl:DatatypeProperty ; rdfs:range xsd:string .
`)
	shapes, err := NewGenerator().GenerateShapes(context.Background(), ontologyStore)
	require.NoError(t, err)

	propShapes, err := shapes.GetQuads(context.Background(), nil, rdf.IRIPattern(rdf.SHProperty), nil, "")
	require.NoError(t, err)
	assert.Empty(t, propShapes)
}

func TestGenerateShapesObjectPropertyDefaults(t *testing.T) {
	// An object property with no range gets a path but no sh:class
	ontologyStore := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
ex:Person a owl:Class .
ex:knows a owl:ObjectProperty ; rdfs:domain ex:Person .
`)
	shapes, err := NewGenerator().GenerateShapes(context.Background(), ontologyStore)
	require.NoError(t, err)

	classQuads, err := shapes.GetQuads(context.Background(), nil, rdf.IRIPattern(rdf.SHClass), nil, "")
	require.NoError(t, err)
	assert.Empty(t, classQuads)

	knows := rdf.NewIRI("http://example.org/onto#knows")
	assert.Equal(t, 1, countMatches(t, shapes, rdf.SHPath, &knows))
}
