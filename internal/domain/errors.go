package domain

import (
	"errors"
	"fmt"
)

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Entity errors
	ErrMsgGameNotFound    = "game not found"
	ErrMsgCompanyNotFound = "company not found"
	ErrMsgRunNotFound     = "run not found"

	// Persistence errors
	ErrMsgDuplicateKey         = "duplicate key"
	ErrMsgSerializationFailure = "serialization failure"
	ErrMsgDeadlockDetected     = "deadlock detected"
	ErrMsgQueryTimeout         = "query timeout"
	ErrMsgConnectionFailed     = "connection failed"

	// Upsert errors
	ErrMsgCreateNotPermitted = "create not permitted"
	ErrMsgValidation         = "validation failed"

	// Source client errors
	ErrMsgRateLimited = "rate limited by source"

	// Merge errors
	ErrMsgMergeParticipant   = "merge participant not found"
	ErrMsgMergeSameGame      = "keeper and loser are the same game"
	ErrMsgMergeCountMismatch = "release reassignment count mismatch"
)

// Common domain errors.
// Wrap these with fmt.Errorf("%w: %s", domain.ErrXxx, details) for context.
var (
	ErrGameNotFound    = errors.New(ErrMsgGameNotFound)
	ErrCompanyNotFound = errors.New(ErrMsgCompanyNotFound)
	ErrRunNotFound     = errors.New(ErrMsgRunNotFound)

	ErrDuplicateKey         = errors.New(ErrMsgDuplicateKey)
	ErrSerializationFailure = errors.New(ErrMsgSerializationFailure)
	ErrDeadlockDetected     = errors.New(ErrMsgDeadlockDetected)
	ErrQueryTimeout         = errors.New(ErrMsgQueryTimeout)
	ErrConnectionFailed     = errors.New(ErrMsgConnectionFailed)

	ErrCreateNotPermitted = errors.New(ErrMsgCreateNotPermitted)
	ErrValidation         = errors.New(ErrMsgValidation)

	ErrRateLimited = errors.New(ErrMsgRateLimited)

	ErrMergeParticipant   = errors.New(ErrMsgMergeParticipant)
	ErrMergeSameGame      = errors.New(ErrMsgMergeSameGame)
	ErrMergeCountMismatch = errors.New(ErrMsgMergeCountMismatch)
)

// DuplicateKeyError wraps ErrDuplicateKey with the violated constraint and the
// colliding value extracted from the database error detail. The orchestrator's
// merge-recovery path keys off Constraint to find the conflicting row.
type DuplicateKeyError struct {
	Constraint string
	Value      string
	Err        error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: constraint %q value %q", ErrMsgDuplicateKey, e.Constraint, e.Value)
}

// Unwrap makes errors.Is(err, ErrDuplicateKey) hold.
func (e *DuplicateKeyError) Unwrap() error {
	return ErrDuplicateKey
}
