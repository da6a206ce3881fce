package domain

import "time"

// MatchOutcome is the decision of one matching-engine evaluation.
type MatchOutcome string

const (
	MatchNoCandidate MatchOutcome = "no_candidate"
	MatchMatched     MatchOutcome = "matched"
	MatchPending     MatchOutcome = "pending"
	MatchRejected    MatchOutcome = "rejected"
)

// Rejection reasons recorded on the audit log. An identifier conflict is
// logged distinctly from a plain low score.
const (
	RejectLowScore            = "low_score"
	RejectInsufficientSignals = "insufficient_signals"
	RejectIDConflict          = "id_conflict"
	RejectNoCandidate         = "no_candidate"
)

// MatchDecision is one append-only audit row of the matching engine.
type MatchDecision struct {
	ID         int64
	Source     string
	ExternalID int64
	Outcome    MatchOutcome
	Reason     string
	Score      float64
	GameID     *int64 // winning candidate, when any
	Details    map[string]any
	CreatedAt  time.Time
}
