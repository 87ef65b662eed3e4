package types

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ExtractionError wraps any failure surfaced by the extraction workflow. The
// originating cause is preserved and a short excerpt of the source text is
// kept for diagnostics.
type ExtractionError struct {
	Message string
	Cause   error
	// Excerpt of the text being extracted when the failure occurred
	Text string
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes the cause to errors.Is/As
func (e *ExtractionError) Unwrap() error { return e.Cause }

// NewExtractionError creates an extraction error with a text excerpt capped
// at 200 characters.
func NewExtractionError(message string, cause error, text string) *ExtractionError {
	if len(text) > 200 {
		text = text[:200]
	}
	return &ExtractionError{Message: message, Cause: cause, Text: text}
}

// LLMRateLimitError indicates the model provider rejected a call for rate
// limiting. Always treated as systemic.
type LLMRateLimitError struct {
	Model string
	Cause error
}

func (e *LLMRateLimitError) Error() string {
	return fmt.Sprintf("llm rate limit exceeded (model %s): %v", e.Model, e.Cause)
}

func (e *LLMRateLimitError) Unwrap() error { return e.Cause }

// LLMTimeoutError indicates a model call exceeded its deadline. Always
// treated as systemic.
type LLMTimeoutError struct {
	Model string
	Cause error
}

func (e *LLMTimeoutError) Error() string {
	return fmt.Sprintf("llm call timed out (model %s): %v", e.Model, e.Cause)
}

func (e *LLMTimeoutError) Unwrap() error { return e.Cause }

// LLMSchemaError indicates the model response did not decode into the
// requested schema after all retries. Treated as a content error: the chunk
// fails to an empty fragment and the stream continues.
type LLMSchemaError struct {
	ObjectName string
	Cause      error
	// Raw model output that failed to decode
	Response string
}

func (e *LLMSchemaError) Error() string {
	return fmt.Sprintf("llm response does not conform to %s schema: %v", e.ObjectName, e.Cause)
}

func (e *LLMSchemaError) Unwrap() error { return e.Cause }

// OntologyCycleError indicates a cycle in the subclass or subproperty
// hierarchy. Fatal at ontology load time.
type OntologyCycleError struct {
	// Hierarchy the cycle was found in: class or property
	Hierarchy string
	// IRI on the cycle
	Node IRI
}

func (e *OntologyCycleError) Error() string {
	return fmt.Sprintf("ontology %s hierarchy contains a cycle through %s", e.Hierarchy, e.Node)
}

// OntologyIndexUnavailableError indicates neither a lexical nor a vector
// index could be built for class search. Callers fall back to a
// deterministic slice of the ontology.
type OntologyIndexUnavailableError struct {
	Cause error
}

func (e *OntologyIndexUnavailableError) Error() string {
	return fmt.Sprintf("ontology index unavailable: %v", e.Cause)
}

func (e *OntologyIndexUnavailableError) Unwrap() error { return e.Cause }

// StoreConnectionError indicates the data store backing claims or the
// correction loop could not be reached. Always treated as systemic.
type StoreConnectionError struct {
	Store string
	Cause error
}

func (e *StoreConnectionError) Error() string {
	return fmt.Sprintf("store connection failed (%s): %v", e.Store, e.Cause)
}

func (e *StoreConnectionError) Unwrap() error { return e.Cause }

// IsSystemicError reports whether an error must abort the whole extraction:
// rate limits, model timeouts, network connectivity failures and store
// connection failures. Everything else is recoverable per chunk.
func IsSystemicError(err error) bool {
	if err == nil {
		return false
	}
	var rateLimit *LLMRateLimitError
	var timeout *LLMTimeoutError
	var storeConn *StoreConnectionError
	if errors.As(err, &rateLimit) || errors.As(err, &timeout) || errors.As(err, &storeConn) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ETIMEDOUT) || errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	// Provider SDKs wrap transport failures in plain errors; match the
	// well-known substrings as a last resort.
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "no such host", "i/o timeout"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsContentError reports whether an error is recoverable at the chunk level.
func IsContentError(err error) bool {
	return err != nil && !IsSystemicError(err)
}

// ErrorType returns the short tag recorded on tracing spans for a failed
// chunk.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case IsSystemicError(err):
		return "systemic"
	default:
		var schemaErr *LLMSchemaError
		if errors.As(err, &schemaErr) {
			return "schema"
		}
		return "content"
	}
}
