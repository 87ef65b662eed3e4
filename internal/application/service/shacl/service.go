package shacl

import (
	"context"

	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
)

// Service bundles shape generation and validation behind one facade for
// callers that do not need the loop.
type Service struct {
	generator *Generator
	validator *Validator
}

// NewService creates the facade.
func NewService(generator *Generator, validator *Validator) *Service {
	return &Service{generator: generator, validator: validator}
}

// GenerateShapesFromOntology derives the shapes store from an ontology
// store.
func (s *Service) GenerateShapesFromOntology(ctx context.Context, ontologyStore *rdf.MemoryStore) (*rdf.MemoryStore, error) {
	return s.generator.GenerateShapes(ctx, ontologyStore)
}

// Validate evaluates the data store against the shapes store.
func (s *Service) Validate(ctx context.Context, dataStore, shapesStore *rdf.MemoryStore) (*types.ShaclValidationReport, error) {
	return s.validator.Validate(ctx, dataStore, shapesStore)
}
