package handler

import (
	"errors"
	"net/http"

	"github.com/ludocat/gamesync/internal/domain"
)

// Generic HTTP error messages for client responses.
// These messages intentionally do not expose internal error details.
// Both handlers and tests should reference these constants to maintain consistency.
const (
	ErrMsgInvalidRequest = "Invalid request body"

	// Query parameter error messages
	ErrMsgMissingQueryParam = "Missing %s query parameter"
	ErrMsgInvalidQueryParam = "Invalid %s query parameter"

	// Run error messages
	ErrMsgStartRunFailed = "Failed to start ingest run"
	ErrMsgRunNotFound    = "run not found"
	ErrMsgGetRunFailed   = "Failed to retrieve run"
	ErrMsgEmptyBatch     = "Batch contains no records"

	// Match error messages
	ErrMsgListMatchesFailed = "Failed to retrieve match decisions"

	// Merge error messages
	ErrMsgMergeFailed = "Failed to merge games"
)

// statusForError maps domain errors to HTTP status codes. Anything
// unrecognized is treated as an internal error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrGameNotFound),
		errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrMergeParticipant):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrMergeSameGame):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMergeCountMismatch),
		errors.Is(err, domain.ErrDuplicateKey):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
