package ingest

// ogSlugConstraint is the unique index on the canonical slug column. A
// collision on it during create means another writer already owns the entity,
// so the item can be recovered by retrying as an update.
const ogSlugConstraint = "games_og_slug_key"

// Error message string constants
const (
	ErrMsgFailedToCreateRun   = "failed to create run"
	ErrMsgFailedToFinishRun   = "failed to finish run"
	ErrMsgFailedToRecordItem  = "failed to record run item"
	ErrMsgFailedToWriteReport = "failed to write metrics file"
)
