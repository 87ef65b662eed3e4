package shacl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
)

const validatorOntology = `
@prefix ex: <http://example.org/onto#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
ex:Person a owl:Class ;
    rdfs:subClassOf [ a owl:Restriction ; owl:onProperty ex:name ; owl:minCardinality 1 ] .
ex:Company a owl:Class .
ex:name a owl:DatatypeProperty ; rdfs:domain ex:Person ; rdfs:range xsd:string .
ex:worksFor a owl:ObjectProperty, owl:FunctionalProperty ; rdfs:domain ex:Person ; rdfs:range ex:Company .
`

func validatorShapes(t *testing.T) *rdf.MemoryStore {
	t.Helper()
	ontologyStore := storeFromTurtle(t, validatorOntology)
	shapes, err := NewGenerator().GenerateShapes(context.Background(), ontologyStore)
	require.NoError(t, err)
	return shapes
}

func TestValidateConformingStore(t *testing.T) {
	shapes := validatorShapes(t)
	data := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix kg: <http://kg.example/entity/> .
kg:e1 a ex:Person ; ex:name "Alice" ; ex:worksFor kg:e2 .
kg:e2 a ex:Company .
`)

	report, err := NewValidator().Validate(context.Background(), data, shapes)
	require.NoError(t, err)
	assert.True(t, report.Conforms)
	assert.Empty(t, report.Violations)
}

func TestValidateMinCountViolation(t *testing.T) {
	shapes := validatorShapes(t)
	data := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix kg: <http://kg.example/entity/> .
kg:e1 a ex:Person .
`)

	report, err := NewValidator().Validate(context.Background(), data, shapes)
	require.NoError(t, err)
	assert.False(t, report.Conforms)
	require.Len(t, report.Violations, 1)
	v := report.Violations[0]
	assert.Equal(t, "http://kg.example/entity/e1", string(v.FocusNode))
	assert.Equal(t, "http://example.org/onto#name", string(v.Path))
	assert.Equal(t, types.SeverityViolation, v.Severity)
	assert.Equal(t, types.StrategyGenerateValue, ClassifyViolation(&v))
}

func TestValidateMaxCountViolation(t *testing.T) {
	shapes := validatorShapes(t)
	data := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix kg: <http://kg.example/entity/> .
kg:e1 a ex:Person ; ex:name "Alice" ; ex:worksFor kg:c1, kg:c2 .
kg:c1 a ex:Company .
kg:c2 a ex:Company .
`)

	report, err := NewValidator().Validate(context.Background(), data, shapes)
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, types.StrategyRemoveExcess, ClassifyViolation(&report.Violations[0]))
}

func TestValidateDatatypeViolation(t *testing.T) {
	shapes := validatorShapes(t)
	data := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
@prefix kg: <http://kg.example/entity/> .
kg:e1 a ex:Person ; ex:name "42"^^xsd:integer .
`)

	report, err := NewValidator().Validate(context.Background(), data, shapes)
	require.NoError(t, err)
	require.NotEmpty(t, report.Violations)

	var datatypeViolation *types.ShaclViolation
	for i := range report.Violations {
		if ClassifyViolation(&report.Violations[i]) == types.StrategyCoerceDatatype {
			datatypeViolation = &report.Violations[i]
		}
	}
	require.NotNil(t, datatypeViolation)
	assert.Equal(t, "42", datatypeViolation.Value)
}

func TestValidateClassViolation(t *testing.T) {
	shapes := validatorShapes(t)
	data := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix kg: <http://kg.example/entity/> .
kg:e1 a ex:Person ; ex:name "Alice" ; ex:worksFor kg:e2 .
kg:e2 a ex:Person ; ex:name "Bob" .
`)

	report, err := NewValidator().Validate(context.Background(), data, shapes)
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	v := report.Violations[0]
	assert.Equal(t, types.StrategyReclassifyEntity, ClassifyViolation(&v))
	assert.Equal(t, "http://kg.example/entity/e2", v.Value)
}

func TestValidateSubclassSatisfiesClassConstraint(t *testing.T) {
	shapes := validatorShapes(t)
	// Startup is a subclass of Company within the data graph
	data := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix kg: <http://kg.example/entity/> .
ex:Startup rdfs:subClassOf ex:Company .
kg:e1 a ex:Person ; ex:name "Alice" ; ex:worksFor kg:e2 .
kg:e2 a ex:Startup .
`)

	report, err := NewValidator().Validate(context.Background(), data, shapes)
	require.NoError(t, err)
	assert.True(t, report.Conforms)
}

func TestValidatorDoesNotMutateStores(t *testing.T) {
	shapes := validatorShapes(t)
	data := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix kg: <http://kg.example/entity/> .
kg:e1 a ex:Person .
`)
	ctx := context.Background()
	dataBefore, _ := data.Size(ctx)
	shapesBefore, _ := shapes.Size(ctx)

	_, err := NewValidator().Validate(ctx, data, shapes)
	require.NoError(t, err)

	dataAfter, _ := data.Size(ctx)
	shapesAfter, _ := shapes.Size(ctx)
	assert.Equal(t, dataBefore, dataAfter)
	assert.Equal(t, shapesBefore, shapesAfter)
}
