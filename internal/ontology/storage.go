package ontology

import (
	"context"
	"fmt"

	"github.com/semweave/semweave/internal/common"
	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/types"
	"github.com/semweave/semweave/internal/types/interfaces"
)

// StoragePath is the content-addressed blob location of an ontology
// snapshot. The layout is a contract consumed by the storage collaborator.
func StoragePath(ref types.OntologyRef) string {
	return fmt.Sprintf("ontologies/%s/%s/%s/ontology.ttl", ref.Namespace, ref.Name, ref.ContentHash)
}

// Storage persists and retrieves ontology documents through the blob
// storage collaborator.
type Storage struct {
	blobs interfaces.ObjectStorage
}

// NewStorage creates an ontology storage over the given blob store.
func NewStorage(blobs interfaces.ObjectStorage) *Storage {
	return &Storage{blobs: blobs}
}

// Save stores a Turtle document under its content hash and returns the
// resulting reference.
func (s *Storage) Save(ctx context.Context, namespace, name string, turtle []byte) (types.OntologyRef, error) {
	ref := types.OntologyRef{
		Namespace:   namespace,
		Name:        name,
		ContentHash: common.HashKey(string(turtle)),
	}
	path := StoragePath(ref)
	if err := s.blobs.Put(ctx, path, turtle); err != nil {
		return types.OntologyRef{}, err
	}
	logger.Infof(ctx, "stored ontology %s/%s at %s", namespace, name, path)
	return ref, nil
}

// Load fetches the Turtle document for a reference and builds the Context.
func (s *Storage) Load(ctx context.Context, ref types.OntologyRef) (*Context, error) {
	data, err := s.blobs.Get(ctx, StoragePath(ref))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("ontology %s/%s@%s not found", ref.Namespace, ref.Name, ref.ContentHash)
	}
	return Load(ctx, string(data))
}
