package domain

import "fmt"

// Error types for consistent error handling across the engine.

// ErrDataSource indicates the ledger query failed or timed out.
// Fatal for the request: the facade never synthesizes partial results.
type ErrDataSource struct {
	Op  string
	Err error
}

func (e *ErrDataSource) Error() string {
	return fmt.Sprintf("ledger source error [%s]: %v", e.Op, e.Err)
}

func (e *ErrDataSource) Unwrap() error {
	return e.Err
}

// ErrInvalidRange indicates a malformed query (bad dates, bad enum
// values). Rejected before any ledger query is issued.
type ErrInvalidRange struct {
	Reason string
}

func (e *ErrInvalidRange) Error() string {
	return fmt.Sprintf("invalid query range: %s", e.Reason)
}

// ErrCacheUnavailable indicates the snapshot cache backend failed.
// Non-fatal: the facade logs it and computes without caching.
type ErrCacheUnavailable struct {
	Err error
}

func (e *ErrCacheUnavailable) Error() string {
	return fmt.Sprintf("snapshot cache unavailable: %v", e.Err)
}

func (e *ErrCacheUnavailable) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the breaker in front of the ledger source
// is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrUnauthorized indicates a missing or invalid caller token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
