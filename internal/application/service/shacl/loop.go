package shacl

import (
	"context"
	"time"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/ontology"
	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
	"github.com/semweave/semweave/internal/types/interfaces"
)

// DefaultMaxIterations bounds the validation-correction loop.
const DefaultMaxIterations = 5

// LoopConfig configures one validation-correction run.
type LoopConfig struct {
	// Maximum validate-correct iterations; default 5
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations" json:"max_iterations"`
	// Parallel per-violation corrections within an iteration
	CorrectionConcurrency int `mapstructure:"correction_concurrency" yaml:"correction_concurrency" json:"correction_concurrency"`
	// Optional wall-clock bound; zero disables it
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// Loop drives validate -> correct -> re-validate until the store conforms,
// the iteration budget runs out, an iteration makes no progress, or the
// optional timeout expires. Iterations are strictly sequential; the store is
// the single source of truth across them.
type Loop struct {
	validator *Validator
	corrector *Corrector
	clock     interfaces.Clock
}

// NewLoop creates a Loop.
func NewLoop(validator *Validator, corrector *Corrector, clock interfaces.Clock) *Loop {
	return &Loop{validator: validator, corrector: corrector, clock: clock}
}

// Run executes the loop over the data store. Every iteration emits a
// checkpoint carrying its index, violation count and applied correction
// count; publish may be nil.
func (l *Loop) Run(
	ctx context.Context,
	dataStore, shapesStore *rdf.MemoryStore,
	ont *ontology.Context,
	config LoopConfig,
	publish func(types.ValidationCheckpoint),
) (*types.ValidationLoopResult, error) {
	maxIterations := config.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	result := &types.ValidationLoopResult{Checkpoints: []types.ValidationCheckpoint{}}

	for iteration := 0; iteration < maxIterations; iteration++ {
		if ctx.Err() != nil {
			result.StopReason = types.StopReasonTimeout
			return result, nil
		}

		report, err := l.validator.Validate(ctx, dataStore, shapesStore)
		if err != nil {
			return nil, err
		}
		result.FinalReport = report
		result.Iterations = iteration + 1

		if report.Conforms {
			result.Conformant = true
			result.StopReason = types.StopReasonConformant
			l.checkpoint(ctx, result, iteration, 0, 0, publish)
			return result, nil
		}

		logger.Infof(ctx, "validation iteration %d: %d violations", iteration, len(report.Violations))

		batch, err := l.corrector.CorrectAll(ctx, report, dataStore, ont, config.CorrectionConcurrency)
		if err != nil {
			return nil, err
		}
		l.checkpoint(ctx, result, iteration, len(report.Violations), batch.CorrectedCount, publish)

		if batch.CorrectedCount == 0 {
			// Nothing changed, revalidating would loop forever.
			result.StopReason = types.StopReasonNoProgress
			return result, nil
		}
	}

	// Budget exhausted: report the state the store ended in.
	report, err := l.validator.Validate(ctx, dataStore, shapesStore)
	if err != nil {
		return nil, err
	}
	result.FinalReport = report
	result.Conformant = report.Conforms
	if report.Conforms {
		result.StopReason = types.StopReasonConformant
	} else {
		result.StopReason = types.StopReasonMaxIterations
	}
	return result, nil
}

func (l *Loop) checkpoint(
	ctx context.Context,
	result *types.ValidationLoopResult,
	iteration, violations, corrected int,
	publish func(types.ValidationCheckpoint),
) {
	checkpoint := types.ValidationCheckpoint{
		IterationIndex: iteration,
		ViolationCount: violations,
		CorrectedCount: corrected,
		Timestamp:      l.clock.Now(),
	}
	result.Checkpoints = append(result.Checkpoints, checkpoint)
	if publish != nil {
		publish(checkpoint)
	}
	logger.Debugf(ctx, "checkpoint: iteration=%d violations=%d corrected=%d", iteration, violations, corrected)
}
