package interfaces

import (
	"context"
	"time"
)

// ObjectStorage is the blob storage collaborator used for source documents
// and ontology snapshots. Implementations exist for MinIO, Tencent COS and
// the local filesystem.
type ObjectStorage interface {
	// Get returns the object at path, or nil when it does not exist
	Get(ctx context.Context, path string) ([]byte, error)

	// Put stores the object at path, overwriting any existing content
	Put(ctx context.Context, path string, data []byte) error

	// Remove deletes the object at path; removing a missing object is not an error
	Remove(ctx context.Context, path string) error
}

// Clock provides the current time. Extraction code never reads the wall
// clock directly so tests can run against a fixed clock.
type Clock interface {
	Now() time.Time
}
