package types

import "time"

// RunConfig is the per-run configuration of an extraction.
type RunConfig struct {
	// Chunking parameters
	Chunking ChunkingConfig `mapstructure:"chunking" yaml:"chunking" json:"chunking"`
	// Number of chunks processed concurrently
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
	// Minimum grounding confidence for relations to survive filtering
	GroundingThreshold float64 `mapstructure:"grounding_threshold" yaml:"grounding_threshold" json:"grounding_threshold"`
	// Number of candidate classes retrieved per chunk
	CandidateClassLimit int `mapstructure:"candidate_class_limit" yaml:"candidate_class_limit" json:"candidate_class_limit"`
	// Ontology the run is grounded against
	Ontology OntologyRef `mapstructure:"ontology" yaml:"ontology" json:"ontology"`
}

// ExtractionStatus tracks the lifecycle of an extraction run.
type ExtractionStatus string

const (
	// ExtractionStatusPending queued but not started
	ExtractionStatusPending ExtractionStatus = "pending"
	// ExtractionStatusRunning pipeline in flight
	ExtractionStatusRunning ExtractionStatus = "running"
	// ExtractionStatusValidating validation-correction loop in flight
	ExtractionStatusValidating ExtractionStatus = "validating"
	// ExtractionStatusCompleted finished successfully
	ExtractionStatusCompleted ExtractionStatus = "completed"
	// ExtractionStatusFailed aborted on a systemic error
	ExtractionStatusFailed ExtractionStatus = "failed"
	// ExtractionStatusCancelled cancelled by the caller
	ExtractionStatusCancelled ExtractionStatus = "cancelled"
)

// ExtractionRun is the record of a single document extraction.
type ExtractionRun struct {
	// Run identifier (UUID)
	ID string `json:"id"`
	// URI of the source document
	DocumentURI string `json:"document_uri"`
	// Current status
	Status ExtractionStatus `json:"status"`
	// Run configuration
	Config RunConfig `json:"config"`
	// Merged graph, present once the pipeline completed
	Graph *KnowledgeGraph `json:"graph,omitempty"`
	// Outcome of the validation-correction loop
	Validation *ValidationLoopResult `json:"validation,omitempty"`
	// Claims emitted for the run
	ClaimCount int `json:"claim_count"`
	// Failure message for failed runs
	Error string `json:"error,omitempty"`
	// Timestamps
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
