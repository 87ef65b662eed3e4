package ontology

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semweave/semweave/internal/types"
)

const testOntologyTurtle = `
@prefix ex: <http://example.org/onto#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

ex:Animal a owl:Class ; rdfs:label "Animal" ; rdfs:comment "A living creature." .
ex:Dog a owl:Class ; rdfs:label "Dog" ; rdfs:subClassOf ex:Animal .
ex:Puppy a owl:Class ; rdfs:label "Puppy" ; rdfs:subClassOf ex:Dog .
ex:Person a owl:Class ; rdfs:label "Person" ; rdfs:comment "A human being." .

ex:hasLegs a owl:DatatypeProperty ; rdfs:label "has legs" ; rdfs:domain ex:Animal ; rdfs:range xsd:integer .
ex:barksAt a owl:ObjectProperty ; rdfs:label "barks at" ; rdfs:domain ex:Dog ; rdfs:range ex:Person .
ex:name a owl:DatatypeProperty ; rdfs:label "name" ; rdfs:domain ex:Person ; rdfs:range xsd:string .
`

func loadTestOntology(t *testing.T) *Context {
	t.Helper()
	ont, err := Load(context.Background(), testOntologyTurtle)
	require.NoError(t, err)
	return ont
}

const (
	animalIRI = "http://example.org/onto#Animal"
	dogIRI    = "http://example.org/onto#Dog"
	puppyIRI  = "http://example.org/onto#Puppy"
	personIRI = "http://example.org/onto#Person"
)

func TestGetClassAndProperty(t *testing.T) {
	ont := loadTestOntology(t)

	dog := ont.GetClass(dogIRI)
	require.NotNil(t, dog)
	assert.Equal(t, "Dog", dog.Label)

	assert.Nil(t, ont.GetClass("http://example.org/onto#Cat"))

	legs := ont.GetProperty("http://example.org/onto#hasLegs")
	require.NotNil(t, legs)
	assert.Equal(t, types.RangeTypeDatatype, legs.RangeType)
	assert.False(t, legs.IsObjectProperty())

	barks := ont.GetProperty("http://example.org/onto#barksAt")
	require.NotNil(t, barks)
	assert.True(t, barks.IsObjectProperty())
}

func TestHierarchyClosure(t *testing.T) {
	ont := loadTestOntology(t)

	// Closure excludes the class itself
	for _, class := range []string{animalIRI, dogIRI, puppyIRI, personIRI} {
		assert.NotContains(t, ont.GetAllSuperClasses(class), class)
	}

	supers := ont.GetAllSuperClasses(puppyIRI)
	assert.ElementsMatch(t, []types.IRI{dogIRI, animalIRI}, supers)

	// Reflexivity
	assert.True(t, ont.IsSubClassOf(dogIRI, dogIRI))
	// Direct and transitive
	assert.True(t, ont.IsSubClassOf(dogIRI, animalIRI))
	assert.True(t, ont.IsSubClassOf(puppyIRI, animalIRI))
	// Not the other way
	assert.False(t, ont.IsSubClassOf(animalIRI, dogIRI))
	assert.False(t, ont.IsSubClassOf(personIRI, animalIRI))
}

func TestIsSubClassOfTransitivity(t *testing.T) {
	ont := loadTestOntology(t)
	classes := []string{animalIRI, dogIRI, puppyIRI, personIRI}
	for _, a := range classes {
		for _, b := range classes {
			for _, c := range classes {
				if ont.IsSubClassOf(a, b) && ont.IsSubClassOf(b, c) {
					assert.True(t, ont.IsSubClassOf(a, c), "%s <= %s <= %s", a, b, c)
				}
			}
		}
	}
}

func TestPropertyInheritance(t *testing.T) {
	ont := loadTestOntology(t)
	ctx := context.Background()

	dogProps := ont.GetPropertiesForClass(ctx, dogIRI)
	ids := propertyIDs(dogProps)
	// Inherited from Animal plus declared on Dog
	assert.Contains(t, ids, "http://example.org/onto#hasLegs")
	assert.Contains(t, ids, "http://example.org/onto#barksAt")
	assert.NotContains(t, ids, "http://example.org/onto#name")

	// A subclass sees at least its superclass's properties
	animalProps := propertyIDs(ont.GetPropertiesForClass(ctx, animalIRI))
	for _, id := range animalProps {
		assert.Contains(t, ids, id)
	}
}

func TestPropertiesForClassesDeduplicates(t *testing.T) {
	ont := loadTestOntology(t)
	ctx := context.Background()

	props := ont.PropertiesForClasses(ctx, []types.IRI{dogIRI, puppyIRI})
	ids := propertyIDs(props)
	seen := map[string]int{}
	for _, id := range ids {
		seen[id]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "property %s duplicated", id)
	}

	assert.Empty(t, ont.PropertiesForClasses(ctx, nil))
}

func TestLocalNameFallback(t *testing.T) {
	// Domain written under a different namespace but with the same local
	// name still matches, case-insensitively.
	snapshot := &types.OntologySnapshot{
		Classes: []types.ClassDefinition{
			{ID: "http://a.example/ns#Widget", Label: "Widget"},
		},
		Properties: []types.PropertyDefinition{
			{ID: "http://a.example/ns#weight", Domain: []types.IRI{"http://other.example/widget"}, RangeType: types.RangeTypeDatatype},
		},
		Hierarchy:         map[types.IRI][]types.IRI{},
		PropertyHierarchy: map[types.IRI][]types.IRI{},
	}
	ont := New(snapshot)
	props := ont.GetPropertiesForClass(context.Background(), "http://a.example/ns#Widget")
	require.Len(t, props, 1)
	assert.Equal(t, "http://a.example/ns#weight", string(props[0].ID))
}

func TestCycleIsFatal(t *testing.T) {
	cyclic := `
@prefix ex: <http://example.org/onto#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .

ex:A a owl:Class ; rdfs:subClassOf ex:B .
ex:B a owl:Class ; rdfs:subClassOf ex:C .
ex:C a owl:Class ; rdfs:subClassOf ex:A .
`
	_, err := Load(context.Background(), cyclic)
	require.Error(t, err)
	var cycleErr *types.OntologyCycleError
	assert.ErrorAs(t, err, &cycleErr)
}

func propertyIDs(props []types.PropertyDefinition) []string {
	ids := make([]string, len(props))
	for i := range props {
		ids[i] = props[i].ID
	}
	return ids
}
