package ingest

import (
	"context"
	"errors"

	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/source"
)

// errorClass drives the orchestrator's retry decision.
type errorClass int

const (
	// classPermanent errors are never retried.
	classPermanent errorClass = iota
	// classTransient errors are retried with backoff until the attempt cap.
	classTransient
)

// classify buckets an upsert error. Constraint and validation violations are
// permanent: retrying the same record yields the same result. Timeouts,
// deadlocks, serialization failures, connection loss, and rate limiting are
// transient.
func classify(err error) errorClass {
	switch {
	case errors.Is(err, domain.ErrQueryTimeout),
		errors.Is(err, domain.ErrDeadlockDetected),
		errors.Is(err, domain.ErrSerializationFailure),
		errors.Is(err, domain.ErrConnectionFailed),
		errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, context.DeadlineExceeded):
		return classTransient
	default:
		return classPermanent
	}
}

// failureReason maps a terminal error to the reason code recorded on the run
// item and aggregated in the failure histogram. A not-found from the record's
// own catalog is coded per source so the summary separates the two feeds.
func failureReason(err error, recordSource string) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateKey):
		return domain.ReasonDuplicateConstraint
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrCreateNotPermitted):
		return domain.ReasonValidationFailed
	case errors.Is(err, source.ErrNotFound):
		if recordSource == domain.SourceSteam {
			return domain.ReasonSteamNotFound
		}
		return domain.ReasonRawgNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return domain.ReasonRateLimit
	default:
		return domain.ReasonUnknown
	}
}

// recoverableCollision reports whether the error is a unique-index collision
// on the canonical slug, the one conflict the orchestrator can resolve by
// locating the existing entity and retrying as an update.
func recoverableCollision(err error) (*domain.DuplicateKeyError, bool) {
	var dup *domain.DuplicateKeyError
	if errors.As(err, &dup) && dup.Constraint == ogSlugConstraint && dup.Value != "" {
		return dup, true
	}
	return nil, false
}
