// Package service wires the extraction pipeline, the validation-correction
// loop and claim emission into the run-level service the API exposes.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/semweave/semweave/internal/application/service/extraction"
	"github.com/semweave/semweave/internal/application/service/shacl"
	"github.com/semweave/semweave/internal/config"
	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/ontology"
	"github.com/semweave/semweave/internal/types"
	"github.com/semweave/semweave/internal/types/interfaces"
)

// TypeDocumentExtraction is the asynq task type for background runs.
const TypeDocumentExtraction = "extraction:document"

// documentExtractionPayload is the asynq task payload.
type documentExtractionPayload struct {
	RunID string `json:"run_id"`
	Text  string `json:"text"`
}

// ExtractionService owns extraction runs end to end.
type ExtractionService struct {
	config      *config.Config
	workflow    *extraction.Workflow
	ontology    *ontology.Context
	shapeGen    *shacl.Generator
	loop        *shacl.Loop
	claims      *extraction.ClaimFactory
	claimRepo   interfaces.ClaimRepository
	graphSink   interfaces.GraphSink
	checkpoints interfaces.CheckpointPublisher
	asynqClient *asynq.Client
	exporter    *ClaimExporter

	mu   sync.RWMutex
	runs map[string]*types.ExtractionRun
}

// SetClaimExporter attaches an optional parquet exporter run after claim
// emission.
func (s *ExtractionService) SetClaimExporter(exporter *ClaimExporter) {
	s.exporter = exporter
}

// NewExtractionService creates the service. claimRepo, graphSink and
// asynqClient may be nil; the corresponding stages are skipped.
func NewExtractionService(
	cfg *config.Config,
	workflow *extraction.Workflow,
	ont *ontology.Context,
	shapeGen *shacl.Generator,
	loop *shacl.Loop,
	claims *extraction.ClaimFactory,
	claimRepo interfaces.ClaimRepository,
	graphSink interfaces.GraphSink,
	checkpoints interfaces.CheckpointPublisher,
	asynqClient *asynq.Client,
) *ExtractionService {
	return &ExtractionService{
		config:      cfg,
		workflow:    workflow,
		ontology:    ont,
		shapeGen:    shapeGen,
		loop:        loop,
		claims:      claims,
		claimRepo:   claimRepo,
		graphSink:   graphSink,
		checkpoints: checkpoints,
		asynqClient: asynqClient,
		runs:        map[string]*types.ExtractionRun{},
	}
}

// StartExtraction registers a run and processes it in the background: via
// the task queue when available, otherwise on a detached goroutine.
func (s *ExtractionService) StartExtraction(
	ctx context.Context, documentURI, text string, runConfig *types.RunConfig,
) (*types.ExtractionRun, error) {
	if runConfig == nil {
		runConfig = s.config.RunConfig()
	}
	run := &types.ExtractionRun{
		ID:          uuid.New().String(),
		DocumentURI: documentURI,
		Status:      types.ExtractionStatusPending,
		Config:      *runConfig,
		StartedAt:   time.Now(),
	}
	s.storeRun(run)

	if s.asynqClient != nil {
		payload, err := json.Marshal(documentExtractionPayload{RunID: run.ID, Text: text})
		if err != nil {
			return nil, err
		}
		task := asynq.NewTask(TypeDocumentExtraction, payload, asynq.MaxRetry(1))
		if info, err := s.asynqClient.Enqueue(task); err == nil {
			logger.Infof(ctx, "enqueued extraction run %s as task %s", run.ID, info.ID)
			return run, nil
		} else {
			logger.Warnf(ctx, "failed to enqueue run %s, falling back to in-process: %v", run.ID, err)
		}
	}

	background := logger.CloneContext(ctx)
	go func() {
		if _, err := s.RunExtraction(background, run, text); err != nil {
			logger.Errorf(background, "background extraction %s failed: %v", run.ID, err)
		}
	}()
	return run, nil
}

// StartSynchronous registers a run and processes it before returning.
func (s *ExtractionService) StartSynchronous(
	ctx context.Context, documentURI, text string, runConfig *types.RunConfig,
) (*types.ExtractionRun, error) {
	if runConfig == nil {
		runConfig = s.config.RunConfig()
	}
	run := &types.ExtractionRun{
		ID:          uuid.New().String(),
		DocumentURI: documentURI,
		Status:      types.ExtractionStatusPending,
		Config:      *runConfig,
		StartedAt:   time.Now(),
	}
	s.storeRun(run)
	return s.RunExtraction(ctx, run, text)
}

// HandleTask is the asynq handler for background extraction tasks.
func (s *ExtractionService) HandleTask(ctx context.Context, task *asynq.Task) error {
	var payload documentExtractionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode extraction payload: %w", err)
	}
	run, err := s.GetRun(ctx, payload.RunID)
	if err != nil {
		return err
	}
	_, err = s.RunExtraction(ctx, run, payload.Text)
	return err
}

// RunExtraction processes one run synchronously: pipeline, validation loop,
// claim emission, graph sink.
func (s *ExtractionService) RunExtraction(
	ctx context.Context, run *types.ExtractionRun, text string,
) (*types.ExtractionRun, error) {
	ctx = logger.WithField(ctx, "run_id", run.ID)
	s.setStatus(run, types.ExtractionStatusRunning)

	graph, err := s.workflow.Extract(ctx, text, &run.Config)
	if err != nil {
		if ctx.Err() != nil {
			s.setStatus(run, types.ExtractionStatusCancelled)
		} else {
			s.failRun(run, err)
		}
		return run, err
	}
	run.Graph = graph

	validation, err := s.validateAndCorrect(ctx, run, graph)
	if err != nil {
		s.failRun(run, err)
		return run, err
	}
	run.Validation = validation

	if err := s.emitClaims(ctx, run, graph); err != nil {
		s.failRun(run, err)
		return run, err
	}

	if s.graphSink != nil {
		if err := s.graphSink.WriteGraph(ctx, run.DocumentURI, graph); err != nil {
			// The graph is already extracted and claimed; a sink failure is
			// logged, not fatal.
			logger.Errorf(ctx, "graph sink write failed: %v", err)
		}
	}

	now := time.Now()
	run.FinishedAt = &now
	s.setStatus(run, types.ExtractionStatusCompleted)
	logger.Infof(ctx, "extraction run %s completed: %d entities, %d relations, %d claims",
		run.ID, len(graph.Entities), len(graph.Relations), run.ClaimCount)
	return run, nil
}

// validateAndCorrect populates the RDF store from the graph, derives shapes
// from the ontology and drives the correction loop.
func (s *ExtractionService) validateAndCorrect(
	ctx context.Context, run *types.ExtractionRun, graph *types.KnowledgeGraph,
) (*types.ValidationLoopResult, error) {
	s.setStatus(run, types.ExtractionStatusValidating)

	dataStore := s.ontology.QuadStore(ctx) // class hierarchy informs sh:class checks
	if err := extraction.PopulateDataStore(ctx, dataStore, graph, s.config.Extraction.BaseNamespace); err != nil {
		return nil, err
	}
	shapesStore, err := s.shapeGen.GenerateShapes(ctx, s.ontology.QuadStore(ctx))
	if err != nil {
		return nil, err
	}

	loopConfig := shacl.LoopConfig{
		MaxIterations:         s.config.Validation.MaxIterations,
		CorrectionConcurrency: s.config.Validation.CorrectionConcurrency,
		Timeout:               s.config.Validation.Timeout,
	}
	publish := func(checkpoint types.ValidationCheckpoint) {
		if s.checkpoints == nil {
			return
		}
		if err := s.checkpoints.PublishCheckpoint(ctx, run.ID, checkpoint); err != nil {
			logger.Warnf(ctx, "failed to publish checkpoint: %v", err)
		}
	}
	return s.loop.Run(ctx, dataStore, shapesStore, s.ontology, loopConfig, publish)
}

// emitClaims turns the graph into claims and hands them to the repository.
func (s *ExtractionService) emitClaims(ctx context.Context, run *types.ExtractionRun, graph *types.KnowledgeGraph) error {
	options := extraction.ClaimOptions{
		BaseNamespace:     s.config.Extraction.BaseNamespace,
		DocumentID:        run.ID,
		DocumentURI:       run.DocumentURI,
		OntologyID:        run.Config.Ontology.Name,
		DefaultConfidence: s.config.Extraction.DefaultConfidence,
	}
	claims := s.claims.GraphToClaims(graph, options)
	run.ClaimCount = len(claims)
	if len(claims) == 0 {
		return nil
	}
	if s.exporter != nil {
		if _, err := s.exporter.Export(ctx, run.ID, claims); err != nil {
			logger.Warnf(ctx, "claim export failed: %v", err)
		}
	}
	if s.claimRepo == nil {
		return nil
	}
	return s.claimRepo.SaveClaims(ctx, claims)
}

// GetRun returns the current state of a run.
func (s *ExtractionService) GetRun(ctx context.Context, runID string) (*types.ExtractionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("extraction run %s not found", runID)
	}
	return run, nil
}

func (s *ExtractionService) storeRun(run *types.ExtractionRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *ExtractionService) setStatus(run *types.ExtractionRun, status types.ExtractionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.Status = status
}

func (s *ExtractionService) failRun(run *types.ExtractionRun, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.Status = types.ExtractionStatusFailed
	run.Error = err.Error()
	now := time.Now()
	run.FinishedAt = &now
}
