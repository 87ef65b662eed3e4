package types

import "time"

// ShaclSeverity is the severity level of a SHACL validation result.
type ShaclSeverity string

const (
	// SeverityViolation is a hard constraint breach
	SeverityViolation ShaclSeverity = "Violation"
	// SeverityWarning is a soft constraint breach
	SeverityWarning ShaclSeverity = "Warning"
	// SeverityInfo is an informational result
	SeverityInfo ShaclSeverity = "Info"
)

// ShaclViolation is a single SHACL constraint breach.
type ShaclViolation struct {
	// IRI of the node that failed validation
	FocusNode IRI `json:"focus_node"`
	// Property path of the failing constraint, when applicable
	Path IRI `json:"path,omitempty"`
	// Offending value, when applicable
	Value string `json:"value,omitempty"`
	// Human-readable validation message
	Message string `json:"message"`
	// Severity of the result
	Severity ShaclSeverity `json:"severity"`
}

// ShaclValidationReport is the outcome of validating a data store against a
// set of shapes.
type ShaclValidationReport struct {
	// True when no violations were found
	Conforms bool `json:"conforms"`
	// All violations, in deterministic store order
	Violations []ShaclViolation `json:"violations"`
}

// CorrectionStrategy classifies how a violation can be repaired.
type CorrectionStrategy string

const (
	// StrategyGenerateValue fills in a missing required property
	StrategyGenerateValue CorrectionStrategy = "generate-value"
	// StrategyCoerceDatatype converts a literal to the expected datatype
	StrategyCoerceDatatype CorrectionStrategy = "coerce-datatype"
	// StrategyRemoveExcess resolves an exceeded maxCount
	StrategyRemoveExcess CorrectionStrategy = "remove-excess"
	// StrategyReclassifyEntity retypes an entity whose class does not fit
	StrategyReclassifyEntity CorrectionStrategy = "reclassify-entity"
	// StrategyReformatValue rewrites a value failing a pattern constraint
	StrategyReformatValue CorrectionStrategy = "reformat-value"
	// StrategySkip marks violations that cannot be safely auto-corrected
	StrategySkip CorrectionStrategy = "skip"
)

// Correction is a typed, model-generated edit intended to resolve one
// violation.
type Correction struct {
	// Chosen repair strategy
	Strategy CorrectionStrategy `json:"strategy"`
	// Node the correction applies to
	FocusNode IRI `json:"focus_node"`
	// Property path the correction applies to, when applicable
	Path IRI `json:"path,omitempty"`
	// Value being replaced, when applicable
	OriginalValue string `json:"original_value,omitempty"`
	// Replacement value
	NewValue string `json:"new_value,omitempty"`
	// Replacement class for reclassify-entity; for value repairs, the
	// datatype IRI of the new literal (plain string literal when empty)
	NewType IRI `json:"new_type,omitempty"`
	// Model explanation for the correction
	Explanation string `json:"explanation"`
	// Confidence in [0,1]
	Confidence float64 `json:"confidence"`
}

// ShouldApply reports whether the correction is trusted enough to mutate the
// store. Corrections below 0.5 confidence are recorded but never applied.
func (c *Correction) ShouldApply() bool {
	return c.Strategy != StrategySkip && c.Confidence >= 0.5
}

// CorrectionResult pairs a violation with the correction attempted for it.
type CorrectionResult struct {
	Violation  ShaclViolation `json:"violation"`
	Correction *Correction    `json:"correction,omitempty"`
	// True when the correction mutated the store
	Applied bool `json:"applied"`
	// Failure that prevented correction, downgraded to a skip
	Error string `json:"error,omitempty"`
}

// BatchCorrectionResult summarizes one correction pass over a report.
type BatchCorrectionResult struct {
	Results         []CorrectionResult `json:"results"`
	TotalViolations int                `json:"total_violations"`
	CorrectedCount  int                `json:"corrected_count"`
	SkippedCount    int                `json:"skipped_count"`
	DurationMs      int64              `json:"duration_ms"`
	AllCorrected    bool               `json:"all_corrected"`
	SuccessRate     float64            `json:"success_rate"`
}

// ValidationCheckpoint is emitted after each validate-correct iteration.
type ValidationCheckpoint struct {
	// Iteration index starting at 0
	IterationIndex int `json:"iteration_index"`
	// Violations found by this iteration's validation
	ViolationCount int `json:"violation_count"`
	// Corrections applied during this iteration
	CorrectedCount int `json:"corrected_count"`
	// When the checkpoint was produced
	Timestamp time.Time `json:"timestamp"`
}

// ValidationLoopResult is the final state of the validation-correction loop.
type ValidationLoopResult struct {
	// True when the store conforms to the shapes
	Conformant bool `json:"conformant"`
	// Number of iterations executed
	Iterations int `json:"iterations"`
	// Why the loop stopped: conformant, max-iterations, no-progress or timeout
	StopReason string `json:"stop_reason"`
	// Report of the final validation pass
	FinalReport *ShaclValidationReport `json:"final_report,omitempty"`
	// Checkpoint of every iteration, in order
	Checkpoints []ValidationCheckpoint `json:"checkpoints"`
}

// Loop stop reasons.
const (
	StopReasonConformant    = "conformant"
	StopReasonMaxIterations = "max-iterations"
	StopReasonNoProgress    = "no-progress"
	StopReasonTimeout       = "timeout"
)
