// Package rdf implements the quad model the extraction core works on: terms,
// an in-memory indexed quad store, well-known vocabularies and a Turtle
// subset codec used for ontology and shape exchange.
package rdf

import (
	"fmt"
	"strings"
)

// TermKind discriminates the three kinds of RDF terms.
type TermKind int

const (
	// TermIRI is a named resource
	TermIRI TermKind = iota
	// TermLiteral is a literal value
	TermLiteral
	// TermBlank is a blank node
	TermBlank
)

// Term is an RDF term. Literals carry an optional datatype IRI and language
// tag; IRIs and blank nodes carry only a value.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
	Language string
}

// NewIRI returns an IRI term.
func NewIRI(iri string) Term {
	return Term{Kind: TermIRI, Value: iri}
}

// NewLiteral returns a plain string literal.
func NewLiteral(value string) Term {
	return Term{Kind: TermLiteral, Value: value, Datatype: XSDString}
}

// NewTypedLiteral returns a literal with an explicit datatype.
func NewTypedLiteral(value, datatype string) Term {
	if datatype == "" {
		datatype = XSDString
	}
	return Term{Kind: TermLiteral, Value: value, Datatype: datatype}
}

// NewLangLiteral returns a language-tagged string literal.
func NewLangLiteral(value, language string) Term {
	return Term{Kind: TermLiteral, Value: value, Datatype: RDFLangString, Language: language}
}

// NewBlank returns a blank node with the given label.
func NewBlank(label string) Term {
	return Term{Kind: TermBlank, Value: label}
}

// IsIRI reports whether the term is an IRI.
func (t Term) IsIRI() bool { return t.Kind == TermIRI }

// IsLiteral reports whether the term is a literal.
func (t Term) IsLiteral() bool { return t.Kind == TermLiteral }

// IsBlank reports whether the term is a blank node.
func (t Term) IsBlank() bool { return t.Kind == TermBlank }

// Equal reports deep equality of two terms.
func (t Term) Equal(o Term) bool {
	return t.Kind == o.Kind && t.Value == o.Value && t.Datatype == o.Datatype && t.Language == o.Language
}

// Key returns a canonical string form usable as a map key.
func (t Term) Key() string {
	switch t.Kind {
	case TermIRI:
		return "<" + t.Value + ">"
	case TermBlank:
		return "_:" + t.Value
	default:
		var b strings.Builder
		b.WriteString(`"`)
		b.WriteString(t.Value)
		b.WriteString(`"`)
		if t.Language != "" {
			b.WriteString("@")
			b.WriteString(t.Language)
		} else if t.Datatype != "" && t.Datatype != XSDString {
			b.WriteString("^^<")
			b.WriteString(t.Datatype)
			b.WriteString(">")
		}
		return b.String()
	}
}

// String renders the term for logs and error messages.
func (t Term) String() string { return t.Key() }

// Quad is a subject-predicate-object statement in an optional named graph.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     string
}

// NewQuad builds a quad in the default graph.
func NewQuad(subject, predicate, object Term) Quad {
	return Quad{Subject: subject, Predicate: predicate, Object: object}
}

// Key returns a canonical string form of the quad.
func (q Quad) Key() string {
	return fmt.Sprintf("%s %s %s %s", q.Subject.Key(), q.Predicate.Key(), q.Object.Key(), q.Graph)
}
