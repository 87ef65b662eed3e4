package ontology

import (
	"context"
	"strings"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
)

// Load parses a Turtle ontology document and builds the immutable Context.
// A cycle in the subclass or subproperty hierarchy is a fatal load error.
func Load(ctx context.Context, turtle string) (*Context, error) {
	quads, err := rdf.ParseTurtle(turtle)
	if err != nil {
		return nil, err
	}
	return LoadFromQuads(ctx, quads)
}

// LoadFromQuads builds the Context from already-parsed quads.
func LoadFromQuads(ctx context.Context, quads []rdf.Quad) (*Context, error) {
	l := newLoaderState(quads)

	snapshot := &types.OntologySnapshot{
		Metadata:          l.metadata(),
		Hierarchy:         map[types.IRI][]types.IRI{},
		PropertyHierarchy: map[types.IRI][]types.IRI{},
	}

	for _, iri := range l.classIRIs() {
		snapshot.Classes = append(snapshot.Classes, l.buildClass(iri))
		if parents := l.namedObjects(iri, rdf.RDFSSubClassOf); len(parents) > 0 {
			snapshot.Hierarchy[iri] = parents
		}
	}
	for _, iri := range l.propertyIRIs() {
		snapshot.Properties = append(snapshot.Properties, l.buildProperty(iri))
		if parents := l.namedObjects(iri, rdf.RDFSSubPropertyOf); len(parents) > 0 {
			snapshot.PropertyHierarchy[iri] = parents
		}
	}

	// Attach direct properties to their domain classes
	propsByClass := map[types.IRI][]types.IRI{}
	for _, p := range snapshot.Properties {
		for _, d := range p.Domain {
			propsByClass[d] = append(propsByClass[d], p.ID)
		}
	}
	for i := range snapshot.Classes {
		snapshot.Classes[i].Properties = propsByClass[snapshot.Classes[i].ID]
	}

	if node, ok := findCycle(snapshot.Hierarchy); ok {
		return nil, &types.OntologyCycleError{Hierarchy: "class", Node: node}
	}
	if node, ok := findCycle(snapshot.PropertyHierarchy); ok {
		return nil, &types.OntologyCycleError{Hierarchy: "property", Node: node}
	}

	logger.Infof(ctx, "loaded ontology: %d classes, %d properties", len(snapshot.Classes), len(snapshot.Properties))
	loaded := New(snapshot)
	loaded.quads = quads
	return loaded, nil
}

// loaderState indexes the parsed quads for subject-oriented lookups.
type loaderState struct {
	quads     []rdf.Quad
	bySubject map[string][]rdf.Quad
}

func newLoaderState(quads []rdf.Quad) *loaderState {
	l := &loaderState{quads: quads, bySubject: map[string][]rdf.Quad{}}
	for _, q := range quads {
		key := q.Subject.Key()
		l.bySubject[key] = append(l.bySubject[key], q)
	}
	return l
}

// typedSubjects returns IRIs typed with any of the given classes, in
// first-appearance order.
func (l *loaderState) typedSubjects(classIRIs ...string) []types.IRI {
	wanted := map[string]struct{}{}
	for _, c := range classIRIs {
		wanted[c] = struct{}{}
	}
	var result []types.IRI
	seen := map[types.IRI]struct{}{}
	for _, q := range l.quads {
		if q.Predicate.Value != rdf.RDFType || !q.Subject.IsIRI() || !q.Object.IsIRI() {
			continue
		}
		if _, ok := wanted[q.Object.Value]; !ok {
			continue
		}
		if _, dup := seen[q.Subject.Value]; dup {
			continue
		}
		seen[q.Subject.Value] = struct{}{}
		result = append(result, q.Subject.Value)
	}
	return result
}

func (l *loaderState) classIRIs() []types.IRI {
	return l.typedSubjects(rdf.OWLClass, rdf.RDFSClass)
}

func (l *loaderState) propertyIRIs() []types.IRI {
	return l.typedSubjects(rdf.OWLObjectProperty, rdf.OWLDatatypeProperty)
}

// literalValue returns the first literal object for (subject, predicate).
func (l *loaderState) literalValue(subject types.IRI, predicate string) string {
	for _, q := range l.bySubject[rdf.NewIRI(subject).Key()] {
		if q.Predicate.Value == predicate && q.Object.IsLiteral() {
			return q.Object.Value
		}
	}
	return ""
}

// literalValues returns all literal objects for (subject, predicate).
func (l *loaderState) literalValues(subject types.IRI, predicate string) []string {
	var result []string
	for _, q := range l.bySubject[rdf.NewIRI(subject).Key()] {
		if q.Predicate.Value == predicate && q.Object.IsLiteral() {
			result = append(result, q.Object.Value)
		}
	}
	return result
}

// namedObjects returns the IRI objects for (subject, predicate), expanding
// owl:unionOf collections behind blank nodes.
func (l *loaderState) namedObjects(subject types.IRI, predicate string) []types.IRI {
	var result []types.IRI
	for _, q := range l.bySubject[rdf.NewIRI(subject).Key()] {
		if q.Predicate.Value != predicate {
			continue
		}
		switch {
		case q.Object.IsIRI():
			result = append(result, q.Object.Value)
		case q.Object.IsBlank():
			result = append(result, l.expandBlank(q.Object)...)
		}
	}
	return result
}

// expandBlank resolves a blank node used as a class expression. Union
// expressions contribute their members; restrictions contribute nothing
// here (the shape generator reads them from the raw quads).
func (l *loaderState) expandBlank(node rdf.Term) []types.IRI {
	for _, q := range l.bySubject[node.Key()] {
		if q.Predicate.Value == rdf.OWLNS+"unionOf" {
			return l.collectList(q.Object)
		}
	}
	return nil
}

// collectList walks an rdf:first/rdf:rest chain.
func (l *loaderState) collectList(head rdf.Term) []types.IRI {
	var result []types.IRI
	for {
		if head.IsIRI() && head.Value == rdf.RDFNil {
			return result
		}
		var first *rdf.Term
		var rest *rdf.Term
		for _, q := range l.bySubject[head.Key()] {
			switch q.Predicate.Value {
			case rdf.RDFFirst:
				obj := q.Object
				first = &obj
			case rdf.RDFRest:
				obj := q.Object
				rest = &obj
			}
		}
		if first == nil || rest == nil {
			return result
		}
		if first.IsIRI() {
			result = append(result, first.Value)
		}
		head = *rest
	}
}

func (l *loaderState) buildClass(iri types.IRI) types.ClassDefinition {
	return types.ClassDefinition{
		ID:              iri,
		Label:           l.literalValue(iri, rdf.RDFSLabel),
		Comment:         l.literalValue(iri, rdf.RDFSComment),
		PrefLabels:      l.literalValues(iri, rdf.SKOSPrefLabel),
		AltLabels:       l.literalValues(iri, rdf.SKOSAltLabel),
		HiddenLabels:    l.literalValues(iri, rdf.SKOSHiddenLabel),
		Definition:      l.literalValue(iri, rdf.SKOSDefinition),
		ScopeNote:       l.literalValue(iri, rdf.SKOSScopeNote),
		Example:         l.literalValue(iri, rdf.SKOSExample),
		Broader:         l.namedObjects(iri, rdf.SKOSBroader),
		Narrower:        l.namedObjects(iri, rdf.SKOSNarrower),
		Related:         l.namedObjects(iri, rdf.SKOSRelated),
		ExactMatch:      l.namedObjects(iri, rdf.SKOSExactMatch),
		CloseMatch:      l.namedObjects(iri, rdf.SKOSCloseMatch),
		EquivalentClass: l.namedObjects(iri, rdf.OWLEquivalentClass),
	}
}

func (l *loaderState) buildProperty(iri types.IRI) types.PropertyDefinition {
	rangeType := types.RangeTypeObject
	isFunctional := false
	isDatatypeProperty := false
	for _, q := range l.bySubject[rdf.NewIRI(iri).Key()] {
		if q.Predicate.Value != rdf.RDFType || !q.Object.IsIRI() {
			continue
		}
		switch q.Object.Value {
		case rdf.OWLDatatypeProperty:
			isDatatypeProperty = true
		case rdf.OWLFunctionalProperty:
			isFunctional = true
		}
	}
	rng := l.namedObjects(iri, rdf.RDFSRange)
	if isDatatypeProperty || allInNamespace(rng, rdf.XSDNS) && len(rng) > 0 {
		rangeType = types.RangeTypeDatatype
	}

	return types.PropertyDefinition{
		ID:           iri,
		Label:        l.literalValue(iri, rdf.RDFSLabel),
		Comment:      l.literalValue(iri, rdf.RDFSComment),
		Domain:       l.namedObjects(iri, rdf.RDFSDomain),
		Range:        rng,
		RangeType:    rangeType,
		InverseOf:    l.namedObjects(iri, rdf.OWLInverseOf),
		IsFunctional: isFunctional,
		PrefLabels:   l.literalValues(iri, rdf.SKOSPrefLabel),
		AltLabels:    l.literalValues(iri, rdf.SKOSAltLabel),
		HiddenLabels: l.literalValues(iri, rdf.SKOSHiddenLabel),
		Definition:   l.literalValue(iri, rdf.SKOSDefinition),
		ScopeNote:    l.literalValue(iri, rdf.SKOSScopeNote),
		Example:      l.literalValue(iri, rdf.SKOSExample),
	}
}

func allInNamespace(iris []types.IRI, ns string) bool {
	for _, iri := range iris {
		if !strings.HasPrefix(iri, ns) {
			return false
		}
	}
	return len(iris) > 0
}

// metadata collects ontology-level annotations.
func (l *loaderState) metadata() map[string]string {
	meta := map[string]string{}
	for _, iri := range l.typedSubjects(rdf.OWLOntology) {
		if v := l.literalValue(iri, rdf.RDFSLabel); v != "" {
			meta["label"] = v
		}
		if v := l.literalValue(iri, rdf.RDFSComment); v != "" {
			meta["comment"] = v
		}
		if v := l.literalValue(iri, rdf.OWLNS+"versionInfo"); v != "" {
			meta["version"] = v
		}
		meta["iri"] = iri
	}
	return meta
}

// findCycle detects a cycle in a child -> parents hierarchy via iterative
// DFS with three-color marking.
func findCycle(hierarchy map[types.IRI][]types.IRI) (types.IRI, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[types.IRI]int{}

	var visit func(node types.IRI) (types.IRI, bool)
	visit = func(node types.IRI) (types.IRI, bool) {
		color[node] = gray
		for _, parent := range hierarchy[node] {
			switch color[parent] {
			case gray:
				return parent, true
			case white:
				if n, found := visit(parent); found {
					return n, true
				}
			}
		}
		color[node] = black
		return "", false
	}

	for node := range hierarchy {
		if color[node] == white {
			if n, found := visit(node); found {
				return n, true
			}
		}
	}
	return "", false
}
