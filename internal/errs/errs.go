// Package errs defines the error taxonomy shared by the embedding client,
// the vector store and the search orchestrator. Callers wrap these with
// fmt.Errorf("...: %w", err) and match them with errors.Is.
package errs

import "errors"

var (
	// ErrProviderUnavailable means a provider was skipped: missing credentials,
	// an open circuit, or a daily cap within 5% of being reached. Never retried.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrProviderTransient is a network, timeout, rate-limit or 5xx failure.
	// Retried with backoff inside the embedding client.
	ErrProviderTransient = errors.New("embedding provider transient failure")

	// ErrProviderExhausted means every retry against every provider failed.
	ErrProviderExhausted = errors.New("all embedding providers exhausted")

	// ErrDimensionMismatch means two vectors of different length were compared.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrNotIndexedYet means the entity exists but has no stored embedding.
	// The caller should retry after background indexing has run.
	ErrNotIndexedYet = errors.New("entity not indexed yet")

	// ErrEntityNotFound means the job or profile does not exist or is not visible.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrNotAuthorized means the caller may not act on the entity.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrUnauthenticated means no caller identity was supplied.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidInput covers empty queries, empty texts and similar caller mistakes.
	ErrInvalidInput = errors.New("invalid input")
)
