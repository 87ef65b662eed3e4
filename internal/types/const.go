package types

// ContextKey defines a type for context keys to avoid string collision
type ContextKey string

const (
	// RequestIDContextKey is the context key for request ID
	RequestIDContextKey ContextKey = "RequestID"
	// RunIDContextKey is the context key for the extraction run ID
	RunIDContextKey ContextKey = "RunID"
	// LoggerContextKey is the context key for logger
	LoggerContextKey ContextKey = "Logger"
)

// String returns the string representation of the context key
func (c ContextKey) String() string {
	return string(c)
}

// CleanupFunc is a resource cleanup function executed at shutdown
type CleanupFunc func() error
