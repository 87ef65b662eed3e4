package extraction

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/tracing"
	"github.com/semweave/semweave/internal/types"
)

// Workflow is the user-facing extraction entry point: chunk the text, run
// the streaming driver and return the merged graph.
type Workflow struct {
	chunker *Chunker
	driver  *Driver
}

// NewWorkflow creates a Workflow.
func NewWorkflow(chunker *Chunker, driver *Driver) *Workflow {
	return &Workflow{chunker: chunker, driver: driver}
}

// Extract runs the full pipeline over one document. On success the merged
// graph is returned, possibly empty; content-level failures shrink the
// result and are logged. Systemic failures return an ExtractionError with
// the cause preserved.
func (w *Workflow) Extract(ctx context.Context, text string, config *types.RunConfig) (*types.KnowledgeGraph, error) {
	ctx, span := tracing.ContextWithSpan(ctx, "extraction-pipeline")
	defer span.End()

	if config == nil {
		config = &types.RunConfig{}
	}

	chunks := w.chunker.Chunk(text, config.Chunking)
	span.SetAttributes(attribute.Int("chunk.count", len(chunks)))
	if len(chunks) == 0 {
		return types.EmptyGraph(), nil
	}
	logger.Infof(ctx, "extracting document: %d chars, %d chunks", len(text), len(chunks))

	graph, err := w.driver.Run(ctx, chunks, config)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		var extractionErr *types.ExtractionError
		if errors.As(err, &extractionErr) {
			return nil, err
		}
		return nil, types.NewExtractionError("extraction failed", err, text)
	}

	span.SetAttributes(
		attribute.Int("entity.count", len(graph.Entities)),
		attribute.Int("relation.count", len(graph.Relations)),
	)
	return graph, nil
}
