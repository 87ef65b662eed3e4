// Package ontology holds the immutable in-memory ontology snapshot and the
// lookups the extraction pipeline depends on: class/property resolution,
// hierarchy closure, inherited property scoping and hybrid class search.
package ontology

import (
	"context"
	"strings"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
	"github.com/semweave/semweave/internal/types/interfaces"
)

// Context is a loaded ontology. It is built once per extraction run and is
// read-only afterwards, so it is shared across chunk workers without
// synchronization.
type Context struct {
	snapshot *types.OntologySnapshot

	classByIRI    map[types.IRI]*types.ClassDefinition
	propertyByIRI map[types.IRI]*types.PropertyDefinition

	lexical *lexicalIndex
	vector  interfaces.VectorIndex

	// Raw quads the snapshot was loaded from, kept for shape derivation.
	quads []rdf.Quad
}

// QuadStore materializes the ontology's source quads into a fresh store,
// which the SHACL shape generator consumes. Returns an empty store when the
// Context was built from a snapshot instead of RDF.
func (c *Context) QuadStore(ctx context.Context) *rdf.MemoryStore {
	store := rdf.NewMemoryStore()
	for _, q := range c.quads {
		_ = store.AddQuad(ctx, q)
	}
	return store
}

// New builds a Context from a snapshot. The snapshot's hierarchies must be
// acyclic; use loader.Load which enforces that.
func New(snapshot *types.OntologySnapshot) *Context {
	c := &Context{
		snapshot:      snapshot,
		classByIRI:    make(map[types.IRI]*types.ClassDefinition, len(snapshot.Classes)),
		propertyByIRI: make(map[types.IRI]*types.PropertyDefinition, len(snapshot.Properties)),
	}
	for i := range snapshot.Classes {
		cls := &snapshot.Classes[i]
		c.classByIRI[cls.ID] = cls
	}
	for i := range snapshot.Properties {
		prop := &snapshot.Properties[i]
		c.propertyByIRI[prop.ID] = prop
	}
	c.lexical = newLexicalIndex(c)
	return c
}

// Snapshot returns the underlying immutable snapshot.
func (c *Context) Snapshot() *types.OntologySnapshot { return c.snapshot }

// Classes returns all class definitions in declaration order.
func (c *Context) Classes() []types.ClassDefinition { return c.snapshot.Classes }

// Properties returns all property definitions in declaration order.
func (c *Context) Properties() []types.PropertyDefinition { return c.snapshot.Properties }

// GetClass returns the class with the given IRI, or nil on miss.
func (c *Context) GetClass(iri types.IRI) *types.ClassDefinition {
	return c.classByIRI[iri]
}

// GetProperty returns the property with the given IRI, or nil on miss.
func (c *Context) GetProperty(iri types.IRI) *types.PropertyDefinition {
	return c.propertyByIRI[iri]
}

// GetSuperClasses returns the direct superclasses of a class.
func (c *Context) GetSuperClasses(iri types.IRI) []types.IRI {
	return c.snapshot.Hierarchy[iri]
}

// GetSubClasses returns the direct subclasses of a class. The hierarchy map
// is keyed by child, so this is a linear scan.
func (c *Context) GetSubClasses(iri types.IRI) []types.IRI {
	var subs []types.IRI
	for child, parents := range c.snapshot.Hierarchy {
		for _, parent := range parents {
			if parent == iri {
				subs = append(subs, child)
				break
			}
		}
	}
	return subs
}

// GetAllSuperClasses returns the transitive superclass closure of a class,
// deduplicated, excluding the class itself. Cycles are broken defensively
// even though the loader rejects cyclic hierarchies.
func (c *Context) GetAllSuperClasses(iri types.IRI) []types.IRI {
	return transitiveClosure(c.snapshot.Hierarchy, iri)
}

// GetAllSuperProperties returns the transitive superproperty closure.
func (c *Context) GetAllSuperProperties(iri types.IRI) []types.IRI {
	return transitiveClosure(c.snapshot.PropertyHierarchy, iri)
}

func transitiveClosure(hierarchy map[types.IRI][]types.IRI, start types.IRI) []types.IRI {
	var result []types.IRI
	visited := map[types.IRI]struct{}{start: {}}
	queue := append([]types.IRI{}, hierarchy[start]...)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if _, seen := visited[node]; seen {
			continue
		}
		visited[node] = struct{}{}
		result = append(result, node)
		queue = append(queue, hierarchy[node]...)
	}
	return result
}

// IsSubClassOf reports whether child is parent or a transitive subclass of
// parent.
func (c *Context) IsSubClassOf(child, parent types.IRI) bool {
	if child == parent {
		return true
	}
	for _, ancestor := range c.GetAllSuperClasses(child) {
		if ancestor == parent {
			return true
		}
	}
	return false
}

// IsSubPropertyOf reports whether child is parent or a transitive
// subproperty of parent.
func (c *Context) IsSubPropertyOf(child, parent types.IRI) bool {
	if child == parent {
		return true
	}
	for _, ancestor := range c.GetAllSuperProperties(child) {
		if ancestor == parent {
			return true
		}
	}
	return false
}

// GetPropertiesForClass returns every property whose domain contains the
// class or any transitive ancestor. Matching prefers strict IRI equality and
// falls back to case-insensitive local-name comparison, which hand-authored
// ontologies need because domains are often written as full IRIs while the
// caller holds the class IRI. The fallback is logged when it fires alone.
func (c *Context) GetPropertiesForClass(ctx context.Context, iri types.IRI) []types.PropertyDefinition {
	lineage := append([]types.IRI{iri}, c.GetAllSuperClasses(iri)...)
	lineageLocal := make(map[string]struct{}, len(lineage))
	lineageExact := make(map[types.IRI]struct{}, len(lineage))
	for _, a := range lineage {
		lineageExact[a] = struct{}{}
		lineageLocal[strings.ToLower(types.LocalName(a))] = struct{}{}
	}

	var result []types.PropertyDefinition
	for _, prop := range c.snapshot.Properties {
		matched := false
		fallbackOnly := false
		for _, domain := range prop.Domain {
			if _, ok := lineageExact[domain]; ok {
				matched = true
				fallbackOnly = false
				break
			}
			if _, ok := lineageLocal[strings.ToLower(types.LocalName(domain))]; ok {
				matched = true
				fallbackOnly = true
			}
		}
		if !matched {
			continue
		}
		if fallbackOnly {
			logger.Warnf(ctx, "property %s matched domain of %s by local name only", prop.ID, iri)
		}
		result = append(result, prop)
	}
	return result
}

// DatatypePropertiesForClasses returns the datatype properties applicable to
// any of the classes, deduplicated by IRI in first-appearance order.
func (c *Context) DatatypePropertiesForClasses(ctx context.Context, classIRIs []types.IRI) []types.PropertyDefinition {
	var props []types.PropertyDefinition
	for _, iri := range classIRIs {
		for _, p := range c.GetPropertiesForClass(ctx, iri) {
			if p.RangeType == types.RangeTypeDatatype {
				props = append(props, p)
			}
		}
	}
	return dedupeProperties(props)
}

// PropertiesForClasses returns all properties applicable to any of the
// classes, direct or inherited, deduplicated by IRI. Empty input yields an
// empty result.
func (c *Context) PropertiesForClasses(ctx context.Context, classIRIs []types.IRI) []types.PropertyDefinition {
	var props []types.PropertyDefinition
	for _, iri := range classIRIs {
		props = append(props, c.GetPropertiesForClass(ctx, iri)...)
	}
	return dedupeProperties(props)
}

func dedupeProperties(props []types.PropertyDefinition) []types.PropertyDefinition {
	seen := make(map[types.IRI]struct{}, len(props))
	result := make([]types.PropertyDefinition, 0, len(props))
	for _, p := range props {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		result = append(result, p)
	}
	return result
}
