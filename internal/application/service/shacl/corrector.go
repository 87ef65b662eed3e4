package shacl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/models/llm"
	"github.com/semweave/semweave/internal/ontology"
	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
)

// DefaultCorrectionConcurrency bounds parallel per-violation model calls.
const DefaultCorrectionConcurrency = 4

// ontologySummaryLimit caps how many classes and properties the correction
// prompt describes.
const ontologySummaryLimit = 8

// Corrector classifies violations into repair strategies, asks the model
// for typed corrections and applies them to the data store under a
// single-writer discipline.
type Corrector struct {
	generator *llm.Generator
}

// NewCorrector creates a Corrector.
func NewCorrector(generator *llm.Generator) *Corrector {
	return &Corrector{generator: generator}
}

// ClassifyViolation maps a violation onto a repair strategy. The mapping is
// deterministic: case-insensitive substring matches on the message.
func ClassifyViolation(violation *types.ShaclViolation) types.CorrectionStrategy {
	message := strings.ToLower(violation.Message)
	switch {
	case strings.Contains(message, "mincount") || strings.Contains(message, "missing required"):
		return types.StrategyGenerateValue
	case strings.Contains(message, "maxcount") || strings.Contains(message, "too many values"):
		return types.StrategyRemoveExcess
	case strings.Contains(message, "datatype") || strings.Contains(message, "node kind"):
		return types.StrategyCoerceDatatype
	case strings.Contains(message, "class mismatch") || strings.Contains(message, "not an instance"):
		return types.StrategyReclassifyEntity
	case strings.Contains(message, "pattern") || strings.Contains(message, "format"):
		return types.StrategyReformatValue
	default:
		return types.StrategySkip
	}
}

const correctionSystemPrompt = `You repair RDF data that violates SHACL constraints. You answer with JSON only, no prose.`

const correctionUserPrompt = `A SHACL validation found this violation:
- focus node: %s
- path: %s
- value: %q
- message: %s

The chosen repair strategy is %q.

Current triples of the focus node (Turtle):
%s

Ontology excerpt:
%s

Produce a correction as a JSON object:
{"strategy": "%s", "focus_node": "%s", "path": "%s", "original_value": "<value to replace, or empty>",
"new_value": "<replacement literal value>",
"new_type": "<class IRI for reclassify-entity, target datatype IRI for coerce-datatype, else empty>",
"explanation": "<one sentence>", "confidence": 0.0}
Set "strategy" to "skip" and confidence to 0 if no safe correction exists.`

// CorrectAll processes every violation of a report. Violations run
// concurrently up to the configured limit; each correction is applied under
// a mutex so the store sees a single writer. Per-violation model failures
// downgrade to skip corrections so the batch always completes.
func (c *Corrector) CorrectAll(
	ctx context.Context,
	report *types.ShaclValidationReport,
	dataStore *rdf.MemoryStore,
	ont *ontology.Context,
	concurrency int,
) (*types.BatchCorrectionResult, error) {
	started := time.Now()
	if concurrency <= 0 {
		concurrency = DefaultCorrectionConcurrency
	}

	results := make([]types.CorrectionResult, len(report.Violations))
	var writeMu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for i := range report.Violations {
		index := i
		violation := report.Violations[i]
		group.Go(func() error {
			results[index] = c.correctOne(groupCtx, violation, dataStore, ont, &writeMu)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	batch := &types.BatchCorrectionResult{
		Results:         results,
		TotalViolations: len(report.Violations),
		DurationMs:      time.Since(started).Milliseconds(),
	}
	for _, r := range results {
		if r.Applied {
			batch.CorrectedCount++
		} else {
			batch.SkippedCount++
		}
	}
	batch.AllCorrected = batch.CorrectedCount == batch.TotalViolations
	if batch.TotalViolations > 0 {
		batch.SuccessRate = float64(batch.CorrectedCount) / float64(batch.TotalViolations)
	}
	logger.Infof(ctx, "correction batch: %d/%d applied in %dms",
		batch.CorrectedCount, batch.TotalViolations, batch.DurationMs)
	return batch, nil
}

// correctOne classifies, generates and applies the correction for one
// violation.
func (c *Corrector) correctOne(
	ctx context.Context,
	violation types.ShaclViolation,
	dataStore *rdf.MemoryStore,
	ont *ontology.Context,
	writeMu *sync.Mutex,
) types.CorrectionResult {
	result := types.CorrectionResult{Violation: violation}

	strategy := ClassifyViolation(&violation)
	if strategy == types.StrategySkip {
		logger.Debugf(ctx, "skipping violation on %s: no safe strategy", violation.FocusNode)
		result.Correction = &types.Correction{
			Strategy:  types.StrategySkip,
			FocusNode: violation.FocusNode,
			Path:      violation.Path,
		}
		return result
	}

	correction, err := c.generateCorrection(ctx, &violation, strategy, dataStore, ont)
	if err != nil {
		// Model trouble on one violation must not sink the batch.
		logger.Warnf(ctx, "correction generation failed for %s, downgrading to skip: %v", violation.FocusNode, err)
		result.Correction = &types.Correction{
			Strategy:    types.StrategySkip,
			FocusNode:   violation.FocusNode,
			Path:        violation.Path,
			Explanation: fmt.Sprintf("correction generation failed: %v", err),
		}
		result.Error = err.Error()
		return result
	}
	result.Correction = correction

	if !correction.ShouldApply() {
		logger.Debugf(ctx, "not applying correction for %s: strategy=%s confidence=%.2f",
			violation.FocusNode, correction.Strategy, correction.Confidence)
		return result
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	applied, err := c.apply(ctx, correction, dataStore)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Applied = applied
	return result
}

// generateCorrection builds the repair prompt and decodes the model's
// structured correction.
func (c *Corrector) generateCorrection(
	ctx context.Context,
	violation *types.ShaclViolation,
	strategy types.CorrectionStrategy,
	dataStore *rdf.MemoryStore,
	ont *ontology.Context,
) (*types.Correction, error) {
	focusTurtle, err := c.focusNodeTurtle(ctx, dataStore, violation.FocusNode)
	if err != nil {
		return nil, err
	}

	var correction types.Correction
	err = c.generator.GenerateObject(ctx, llm.GenerateRequest{
		System: correctionSystemPrompt,
		Prompt: fmt.Sprintf(correctionUserPrompt,
			violation.FocusNode, violation.Path, violation.Value, violation.Message,
			strategy, focusTurtle, summarizeOntology(ont),
			strategy, violation.FocusNode, violation.Path),
		ObjectName: "correction",
	}, &correction)
	if err != nil {
		return nil, err
	}

	// The model proposes values; strategy and target stay ours.
	correction.Strategy = strategy
	correction.FocusNode = violation.FocusNode
	if correction.Path == "" {
		correction.Path = violation.Path
	}
	return &correction, nil
}

// apply mutates the store according to the correction strategy.
func (c *Corrector) apply(ctx context.Context, correction *types.Correction, dataStore *rdf.MemoryStore) (bool, error) {
	focus := rdf.NewIRI(correction.FocusNode)

	switch correction.Strategy {
	case types.StrategyGenerateValue, types.StrategyCoerceDatatype, types.StrategyReformatValue:
		if correction.Path == "" || correction.NewValue == "" {
			return false, nil
		}
		if correction.OriginalValue != "" {
			quads, err := dataStore.GetQuads(ctx,
				rdf.TermPattern(focus), rdf.IRIPattern(correction.Path), nil, "")
			if err != nil {
				return false, err
			}
			for _, q := range quads {
				if q.Object.Value == correction.OriginalValue {
					if err := dataStore.RemoveQuad(ctx, q); err != nil {
						return false, err
					}
				}
			}
		}
		// For datatype repairs NewType carries the target datatype IRI.
		object := rdf.NewLiteral(correction.NewValue)
		if correction.NewType != "" {
			object = rdf.NewTypedLiteral(correction.NewValue, correction.NewType)
		}
		if err := dataStore.AddQuad(ctx, rdf.NewQuad(focus, rdf.NewIRI(correction.Path), object)); err != nil {
			return false, err
		}
		return true, nil

	case types.StrategyReclassifyEntity:
		if correction.NewType == "" {
			return false, nil
		}
		typeQuads, err := dataStore.GetQuads(ctx,
			rdf.TermPattern(focus), rdf.IRIPattern(rdf.RDFType), nil, "")
		if err != nil {
			return false, err
		}
		for _, q := range typeQuads {
			if err := dataStore.RemoveQuad(ctx, q); err != nil {
				return false, err
			}
		}
		newQuad := rdf.NewQuad(focus, rdf.NewIRI(rdf.RDFType), rdf.NewIRI(correction.NewType))
		if err := dataStore.AddQuad(ctx, newQuad); err != nil {
			return false, err
		}
		return true, nil

	case types.StrategyRemoveExcess:
		// Choosing which value to drop needs domain judgement; leave the
		// store untouched and surface the decision.
		logger.Warnf(ctx, "remove-excess on %s %s requires manual review, not applied",
			correction.FocusNode, correction.Path)
		return false, nil

	default:
		logger.Debugf(ctx, "skip correction for %s", correction.FocusNode)
		return false, nil
	}
}

// focusNodeTurtle renders the focus node's triples for the prompt.
func (c *Corrector) focusNodeTurtle(ctx context.Context, dataStore *rdf.MemoryStore, focusNode types.IRI) (string, error) {
	quads, err := dataStore.GetQuads(ctx, rdf.IRIPattern(focusNode), nil, nil, "")
	if err != nil {
		return "", err
	}
	if len(quads) == 0 {
		return "# focus node has no triples", nil
	}
	return rdf.SerializeTurtle(quads, map[string]string{
		"rdf": rdf.RDFNS,
		"xsd": rdf.XSDNS,
	}), nil
}

// summarizeOntology describes the first few classes and properties so the
// model knows the vocabulary it may use.
func summarizeOntology(ont *ontology.Context) string {
	var b strings.Builder
	b.WriteString("Classes:\n")
	for i, class := range ont.Classes() {
		if i >= ontologySummaryLimit {
			break
		}
		fmt.Fprintf(&b, "- %s (%s)\n", class.ID, class.Label)
	}
	b.WriteString("Properties:\n")
	for i, property := range ont.Properties() {
		if i >= ontologySummaryLimit {
			break
		}
		fmt.Fprintf(&b, "- %s (%s) range: %s\n", property.ID, property.Label, strings.Join(property.Range, ", "))
	}
	return b.String()
}
