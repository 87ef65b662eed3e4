package interfaces

import (
	"context"

	"github.com/semweave/semweave/internal/types"
)

// ExtractionWorkflow runs the full streaming extraction over one document.
type ExtractionWorkflow interface {
	// Extract chunks the text, runs the six-phase pipeline over the chunks
	// and returns the merged graph. Content-level failures shrink the result;
	// only systemic failures return an error.
	Extract(ctx context.Context, text string, config *types.RunConfig) (*types.KnowledgeGraph, error)
}

// ExtractionService manages extraction runs end to end: pipeline, validation
// loop and claim emission.
type ExtractionService interface {
	// StartExtraction registers a run and processes it asynchronously
	StartExtraction(ctx context.Context, documentURI, text string, config *types.RunConfig) (*types.ExtractionRun, error)

	// RunExtraction processes a run synchronously and returns its final state
	RunExtraction(ctx context.Context, run *types.ExtractionRun, text string) (*types.ExtractionRun, error)

	// GetRun returns the current state of a run
	GetRun(ctx context.Context, runID string) (*types.ExtractionRun, error)
}

// CheckpointPublisher receives validation-loop checkpoint events as they are
// produced, keyed by extraction run ID.
type CheckpointPublisher interface {
	// PublishCheckpoint records one validation iteration checkpoint
	PublishCheckpoint(ctx context.Context, runID string, checkpoint types.ValidationCheckpoint) error

	// Checkpoints returns the checkpoints recorded so far for a run
	Checkpoints(ctx context.Context, runID string) ([]types.ValidationCheckpoint, error)
}
