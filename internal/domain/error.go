package domain

import "errors"

var (
	// Storage
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Reconciliation and access
	ErrUnauthenticated     = errors.New("authentication required")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrRateLimited         = errors.New("too many requests")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidAmount       = errors.New("payment amount mismatch")
	ErrUpstreamUnavailable = errors.New("payment gateway unavailable")
	ErrPersistence         = errors.New("persistence failure")
)
