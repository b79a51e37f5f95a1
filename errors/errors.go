package errors

import "errors"

// Sentinel errors for the failure categories the reflection loop distinguishes.
// Stage implementations wrap these with fmt.Errorf("%w: ...") so callers can
// classify failures with errors.Is without depending on concrete types.
var (
	// ErrRetrieval indicates the vector store was unreachable or rejected the query.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration indicates the answer-generation call failed.
	ErrGeneration = errors.New("generation failed")

	// ErrCritique indicates the critique call failed or returned unusable content.
	ErrCritique = errors.New("critique failed")

	// ErrQueryImprovement indicates the query-rewrite call failed.
	ErrQueryImprovement = errors.New("query improvement failed")

	// ErrConfiguration indicates required credentials or settings are missing.
	// Surfaced before a run starts; never retried.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrFatalWorkflow indicates an unrecoverable failure escaped a stage with
	// no defined fallback.
	ErrFatalWorkflow = errors.New("fatal workflow error")

	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
)
