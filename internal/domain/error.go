package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrGuardrailRejected   = errors.New("prompt rejected by guardrail")
	ErrJobTerminal         = errors.New("job already reached a terminal state")
	ErrLockHeld            = errors.New("another submission is in flight")
	ErrInvalidExecContext  = errors.New("invalid executor context")
	ErrReadDatabaseRow     = errors.New("failed to read database row")
)
