package shacl

import (
	"context"
	"fmt"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
)

// Validator evaluates a data store against a shapes store produced by the
// Generator. Neither store is mutated. Only the constraint components the
// Generator emits are evaluated: sh:class, sh:datatype, sh:nodeKind
// sh:Literal, sh:minCount and sh:maxCount.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// propertyConstraints is one property shape, decoded.
type propertyConstraints struct {
	path     string
	classes  []string
	datatype string
	literal  bool
	minCount int
	maxCount int
	hasMin   bool
	hasMax   bool
}

// Validate checks every focus node targeted by a node shape and returns the
// report. Violations appear in deterministic store order.
func (v *Validator) Validate(ctx context.Context, dataStore, shapesStore *rdf.MemoryStore) (*types.ShaclValidationReport, error) {
	report := &types.ShaclValidationReport{Conforms: true, Violations: []types.ShaclViolation{}}

	nodeShapeQuads, err := shapesStore.GetQuads(ctx,
		nil, rdf.IRIPattern(rdf.RDFType), rdf.IRIPattern(rdf.SHNodeShape), "")
	if err != nil {
		return nil, err
	}

	for _, nodeShapeQuad := range nodeShapeQuads {
		nodeShape := nodeShapeQuad.Subject
		targetClasses, err := iriObjects(ctx, shapesStore, nodeShape.Value, rdf.SHTargetClass)
		if err != nil {
			return nil, err
		}
		constraints, err := v.decodePropertyShapes(ctx, shapesStore, nodeShape.Value)
		if err != nil {
			return nil, err
		}

		for _, targetClass := range targetClasses {
			focusQuads, err := dataStore.GetQuads(ctx,
				nil, rdf.IRIPattern(rdf.RDFType), rdf.IRIPattern(targetClass), "")
			if err != nil {
				return nil, err
			}
			for _, focusQuad := range focusQuads {
				focus := focusQuad.Subject
				for i := range constraints {
					violations, err := v.checkFocus(ctx, dataStore, focus, &constraints[i])
					if err != nil {
						return nil, err
					}
					report.Violations = append(report.Violations, violations...)
				}
			}
		}
	}

	report.Conforms = len(report.Violations) == 0
	logger.Debugf(ctx, "validation finished: conforms=%t violations=%d", report.Conforms, len(report.Violations))
	return report, nil
}

// decodePropertyShapes reads the property shapes attached to a node shape.
func (v *Validator) decodePropertyShapes(ctx context.Context, shapesStore *rdf.MemoryStore, nodeShape string) ([]propertyConstraints, error) {
	shapeIRIs, err := iriObjects(ctx, shapesStore, nodeShape, rdf.SHProperty)
	if err != nil {
		return nil, err
	}

	var result []propertyConstraints
	for _, shapeIRI := range shapeIRIs {
		c := propertyConstraints{}
		paths, err := iriObjects(ctx, shapesStore, shapeIRI, rdf.SHPath)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			continue
		}
		c.path = paths[0]

		if c.classes, err = iriObjects(ctx, shapesStore, shapeIRI, rdf.SHClass); err != nil {
			return nil, err
		}
		datatypes, err := iriObjects(ctx, shapesStore, shapeIRI, rdf.SHDatatype)
		if err != nil {
			return nil, err
		}
		if len(datatypes) > 0 {
			c.datatype = datatypes[0]
		}
		nodeKinds, err := iriObjects(ctx, shapesStore, shapeIRI, rdf.SHNodeKind)
		if err != nil {
			return nil, err
		}
		for _, kind := range nodeKinds {
			if kind == rdf.SHLiteral {
				c.literal = true
			}
		}
		if value, err := firstLiteralObjectOfTerm(ctx, shapesStore, rdf.NewIRI(shapeIRI), rdf.SHMinCount); err != nil {
			return nil, err
		} else if value != "" {
			fmt.Sscanf(value, "%d", &c.minCount)
			c.hasMin = true
		}
		if value, err := firstLiteralObjectOfTerm(ctx, shapesStore, rdf.NewIRI(shapeIRI), rdf.SHMaxCount); err != nil {
			return nil, err
		} else if value != "" {
			fmt.Sscanf(value, "%d", &c.maxCount)
			c.hasMax = true
		}

		result = append(result, c)
	}
	return result, nil
}

// checkFocus evaluates one property shape against one focus node.
func (v *Validator) checkFocus(ctx context.Context, dataStore *rdf.MemoryStore, focus rdf.Term, c *propertyConstraints) ([]types.ShaclViolation, error) {
	valueQuads, err := dataStore.GetQuads(ctx, rdf.TermPattern(focus), rdf.IRIPattern(c.path), nil, "")
	if err != nil {
		return nil, err
	}

	var violations []types.ShaclViolation

	if c.hasMin && len(valueQuads) < c.minCount {
		violations = append(violations, types.ShaclViolation{
			FocusNode: focus.Value,
			Path:      c.path,
			Severity:  types.SeverityViolation,
			Message: fmt.Sprintf("missing required property: found %d values for %s, minCount is %d",
				len(valueQuads), c.path, c.minCount),
		})
	}
	if c.hasMax && len(valueQuads) > c.maxCount {
		violations = append(violations, types.ShaclViolation{
			FocusNode: focus.Value,
			Path:      c.path,
			Severity:  types.SeverityViolation,
			Message: fmt.Sprintf("too many values: found %d values for %s, maxCount is %d",
				len(valueQuads), c.path, c.maxCount),
		})
	}

	for _, valueQuad := range valueQuads {
		value := valueQuad.Object

		if c.literal && !value.IsLiteral() {
			violations = append(violations, types.ShaclViolation{
				FocusNode: focus.Value,
				Path:      c.path,
				Value:     value.Value,
				Severity:  types.SeverityViolation,
				Message:   fmt.Sprintf("wrong node kind: value of %s must be a literal", c.path),
			})
			continue
		}

		if c.datatype != "" && value.IsLiteral() {
			datatype := value.Datatype
			if datatype == "" {
				datatype = rdf.XSDString
			}
			if datatype != c.datatype {
				violations = append(violations, types.ShaclViolation{
					FocusNode: focus.Value,
					Path:      c.path,
					Value:     value.Value,
					Severity:  types.SeverityViolation,
					Message: fmt.Sprintf("wrong datatype: value %q of %s has datatype %s, expected %s",
						value.Value, c.path, datatype, c.datatype),
				})
			}
		}

		if len(c.classes) > 0 {
			if value.IsLiteral() {
				violations = append(violations, types.ShaclViolation{
					FocusNode: focus.Value,
					Path:      c.path,
					Value:     value.Value,
					Severity:  types.SeverityViolation,
					Message:   fmt.Sprintf("class mismatch: literal value for object property %s", c.path),
				})
				continue
			}
			for _, class := range c.classes {
				ok, err := v.instanceOf(ctx, dataStore, value, class)
				if err != nil {
					return nil, err
				}
				if !ok {
					violations = append(violations, types.ShaclViolation{
						FocusNode: focus.Value,
						Path:      c.path,
						Value:     value.Value,
						Severity:  types.SeverityViolation,
						Message: fmt.Sprintf("class mismatch: value %s of %s is not an instance of %s",
							value.Value, c.path, class),
					})
				}
			}
		}
	}

	return violations, nil
}

// instanceOf checks rdf:type membership, following rdfs:subClassOf edges
// present in the data store.
func (v *Validator) instanceOf(ctx context.Context, dataStore *rdf.MemoryStore, value rdf.Term, class string) (bool, error) {
	typeQuads, err := dataStore.GetQuads(ctx, rdf.TermPattern(value), rdf.IRIPattern(rdf.RDFType), nil, "")
	if err != nil {
		return false, err
	}
	for _, tq := range typeQuads {
		if !tq.Object.IsIRI() {
			continue
		}
		if tq.Object.Value == class {
			return true, nil
		}
		ok, err := v.subClassOf(ctx, dataStore, tq.Object.Value, class, map[string]struct{}{})
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (v *Validator) subClassOf(ctx context.Context, store *rdf.MemoryStore, child, parent string, seen map[string]struct{}) (bool, error) {
	if child == parent {
		return true, nil
	}
	if _, dup := seen[child]; dup {
		return false, nil
	}
	seen[child] = struct{}{}
	superQuads, err := store.GetQuads(ctx,
		rdf.IRIPattern(child), rdf.IRIPattern(rdf.RDFSSubClassOf), nil, "")
	if err != nil {
		return false, err
	}
	for _, q := range superQuads {
		if !q.Object.IsIRI() {
			continue
		}
		ok, err := v.subClassOf(ctx, store, q.Object.Value, parent, seen)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
