package extraction

import (
	"context"
	"fmt"
	"runtime"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/ontology"
	"github.com/semweave/semweave/internal/tracing"
	"github.com/semweave/semweave/internal/types"
)

// Driver orchestrates the per-chunk pipeline over all chunks of a document
// with bounded concurrency. Chunks complete in arbitrary order; the merge
// monoid makes the fold order-insensitive. A bounded buffer between workers
// and the fold provides backpressure so the driver never accumulates an
// unbounded number of fragments or in-flight model calls.
type Driver struct {
	mentions  *MentionExtractor
	retriever *ClassRetriever
	entities  *EntityExtractor
	grounder  *Grounder
	relations *RelationExtractor
	merger    *Merger
	ontology  *ontology.Context
	pool      *ants.Pool
}

// NewDriver wires the pipeline phases over a shared goroutine pool.
func NewDriver(
	ont *ontology.Context,
	mentions *MentionExtractor,
	retriever *ClassRetriever,
	entities *EntityExtractor,
	grounder *Grounder,
	relations *RelationExtractor,
	merger *Merger,
	pool *ants.Pool,
) *Driver {
	return &Driver{
		mentions:  mentions,
		retriever: retriever,
		entities:  entities,
		grounder:  grounder,
		relations: relations,
		merger:    merger,
		ontology:  ont,
		pool:      pool,
	}
}

// chunkResult carries one chunk's fragment or its systemic failure.
type chunkResult struct {
	fragment *types.KnowledgeGraph
	err      error
}

// Run processes all chunks and returns the merged graph. Content-level chunk
// failures become empty fragments; systemic failures cancel the remaining
// work and fail the run. Cancelling ctx discards partial results.
func (d *Driver) Run(ctx context.Context, chunks []types.TextChunk, config *types.RunConfig) (*types.KnowledgeGraph, error) {
	if len(chunks) == 0 {
		return types.EmptyGraph(), nil
	}

	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	if concurrency > len(chunks) {
		concurrency = len(chunks)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffer of 2x concurrency between stage output and the fold: once it
	// fills, workers block before picking up their next chunk.
	results := make(chan chunkResult, 2*concurrency)
	slots := make(chan struct{}, concurrency)

	go func() {
		for i := range chunks {
			chunk := chunks[i]
			select {
			case slots <- struct{}{}:
			case <-runCtx.Done():
				// Unstarted chunks still owe a result so the fold can finish.
				results <- chunkResult{err: runCtx.Err()}
				continue
			}
			submitErr := d.pool.Submit(func() {
				defer func() { <-slots }()
				fragment, err := d.processChunkRecovering(runCtx, chunk, config)
				select {
				case results <- chunkResult{fragment: fragment, err: err}:
				case <-runCtx.Done():
					results <- chunkResult{err: runCtx.Err()}
				}
			})
			if submitErr != nil {
				<-slots
				results <- chunkResult{err: submitErr}
			}
		}
	}()

	graph := types.EmptyGraph()
	var firstErr error
	for range chunks {
		result := <-results
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
				cancel()
			}
			continue
		}
		if firstErr == nil && result.fragment != nil {
			graph = d.merger.Merge(runCtx, graph, result.fragment)
		}
	}

	// Cancellation discards partial results
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if firstErr != nil {
		return nil, types.NewExtractionError("extraction aborted on systemic failure", firstErr, "")
	}

	mergeCtx, mergeSpan := tracing.ContextWithSpan(ctx, "graph-merge")
	mergeSpan.SetAttributes(
		attribute.Int("entity.count", len(graph.Entities)),
		attribute.Int("relation.count", len(graph.Relations)),
	)
	mergeSpan.End()
	logger.Infof(mergeCtx, "merged %d chunks into %d entities, %d relations",
		len(chunks), len(graph.Entities), len(graph.Relations))

	return graph, nil
}

// processChunkRecovering adds defect recovery around processChunk: an
// unexpected panic in a chunk task is logged as a warning and the chunk
// yields an empty fragment.
func (d *Driver) processChunkRecovering(
	ctx context.Context, chunk types.TextChunk, config *types.RunConfig,
) (fragment *types.KnowledgeGraph, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warnf(ctx, "chunk %d task panicked: %v", chunk.Index, r)
			fragment = types.EmptyGraph()
			err = nil
		}
	}()
	return d.processChunk(ctx, chunk, config)
}

// processChunk runs the six phases for one chunk in sequence. Content
// errors end the chunk with an empty fragment; systemic errors are returned
// to abort the stream.
func (d *Driver) processChunk(
	ctx context.Context, chunk types.TextChunk, config *types.RunConfig,
) (*types.KnowledgeGraph, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	ctx, span := tracing.ContextWithSpan(ctx, fmt.Sprintf("chunk-%d-processing", chunk.Index))
	defer span.End()
	span.SetAttributes(
		attribute.Int("chunk.index", chunk.Index),
		attribute.Int("chunk.text_length", len(chunk.Text)),
	)

	failChunk := func(phase string, err error) (*types.KnowledgeGraph, error) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if types.IsSystemicError(err) {
			span.SetAttributes(attribute.Bool("chunk.failed", true),
				attribute.String("chunk.error_type", types.ErrorType(err)))
			return nil, err
		}
		logger.Errorf(ctx, "chunk %d %s failed, continuing with empty fragment: %v", chunk.Index, phase, err)
		span.SetAttributes(attribute.Bool("chunk.failed", true),
			attribute.String("chunk.error_type", types.ErrorType(err)))
		return types.EmptyGraph(), nil
	}

	// Phase 1: mentions
	mentions, err := d.mentions.Extract(ctx, chunk.Text)
	if err != nil {
		return failChunk("mention extraction", err)
	}

	// Phase 2: candidate classes
	candidates := d.retriever.RetrieveCandidates(ctx, chunk.Text, mentions, config.CandidateClassLimit)
	candidateIRIs := make([]types.IRI, len(candidates))
	for i := range candidates {
		candidateIRIs[i] = candidates[i].ID
	}
	datatypeProps := d.ontology.DatatypePropertiesForClasses(ctx, candidateIRIs)

	// Phase 3: typed entities
	entityCtx, entitySpan := tracing.ContextWithSpan(ctx, fmt.Sprintf("chunk-%d-entity-extraction", chunk.Index))
	entities, err := d.entities.Extract(entityCtx, chunk, candidates, datatypeProps)
	entitySpan.SetAttributes(attribute.Int("entity.count", len(entities)))
	entitySpan.End()
	if err != nil {
		return failChunk("entity extraction", err)
	}
	if len(entities) == 0 {
		return types.EmptyGraph(), nil
	}

	// Phase 4: entity grounding. Low confidence does not drop an entity;
	// the score travels with it and SHACL decides downstream.
	groundCtx, groundSpan := tracing.ContextWithSpan(ctx, fmt.Sprintf("chunk-%d-grounding", chunk.Index))
	entityVerdicts, err := d.grounder.VerifyEntityBatch(groundCtx, chunk.Text, entities)
	if err != nil {
		groundSpan.End()
		return failChunk("entity grounding", err)
	}
	for _, verdict := range entityVerdicts {
		verdict.Entity.GroundingConfidence = verdict.Confidence
	}

	fragment := &types.KnowledgeGraph{Entities: entities, Relations: []*types.Relation{}}

	// Phase 5: property scoping and relations
	var typeIRIs []types.IRI
	for _, e := range entities {
		typeIRIs = append(typeIRIs, e.Types...)
	}
	scoped := d.ontology.PropertiesForClasses(ctx, typeIRIs)
	if len(entities) < 2 || len(scoped) == 0 {
		groundSpan.End()
		return fragment, nil
	}

	relations, err := d.relations.Extract(ctx, chunk, entities, scoped, d.ontology)
	if err != nil {
		groundSpan.End()
		return failChunk("relation extraction", err)
	}

	// Phase 6: relation grounding and filtering
	relationVerdicts, err := d.grounder.VerifyRelationBatch(groundCtx, chunk.Text, relations)
	groundSpan.End()
	if err != nil {
		return failChunk("relation grounding", err)
	}

	threshold := config.GroundingThreshold
	if threshold <= 0 {
		threshold = DefaultGroundingThreshold
	}
	for _, verdict := range relationVerdicts {
		if !verdict.Grounded || verdict.Confidence < threshold {
			logger.Debugf(ctx, "dropping ungrounded relation %s -[%s]-> (confidence %.2f)",
				verdict.Relation.SubjectID, verdict.Relation.Predicate, verdict.Confidence)
			continue
		}
		if verdict.Relation.Evidence != nil && verdict.Relation.Evidence.Confidence == 0 {
			verdict.Relation.Evidence.Confidence = verdict.Confidence
		}
		fragment.Relations = append(fragment.Relations, verdict.Relation)
	}

	return fragment, nil
}
