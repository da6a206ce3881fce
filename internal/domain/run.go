package domain

import "time"

// RunItemOutcome is the terminal state of one processed record within a run.
type RunItemOutcome string

const (
	OutcomeCreated RunItemOutcome = "created"
	OutcomeUpdated RunItemOutcome = "updated"
	OutcomeFailed  RunItemOutcome = "failed"
)

// FailureReason codes surfaced in the run summary for failed items.
const (
	ReasonDuplicateConstraint = "DUPLICATE_CONSTRAINT"
	ReasonValidationFailed    = "VALIDATION_FAILED"
	ReasonSteamNotFound       = "STEAM_NOT_FOUND"
	ReasonRawgNotFound        = "RAWG_NOT_FOUND"
	ReasonRateLimit           = "RATE_LIMIT"
	ReasonUnknown             = "UNKNOWN"
)

// Run is the audit record of one batch-processing execution.
type Run struct {
	ID         string // uuid
	Source     string
	StartedAt  time.Time
	FinishedAt *time.Time

	Total   int
	Created int
	Updated int
	Failed  int

	Metrics *RunMetrics
}

// RunItem is the per-record audit row of a run.
type RunItem struct {
	RunID     string
	Seq       int
	Ref       string
	Outcome   RunItemOutcome
	Reason    string // failure reason code, empty on success
	Message   string
	Attempts  int
	LatencyMS int64
}

// RunMetrics is the aggregate snapshot persisted with a run and written to a
// timestamped metrics file.
type RunMetrics struct {
	SuccessRate    float64        `json:"successRate"`
	MeanLatencyMS  float64        `json:"meanLatencyMs"`
	P95LatencyMS   float64        `json:"p95LatencyMs"`
	RetryHistogram map[int]int    `json:"retryHistogram"`   // attempts -> item count
	FailureReasons map[string]int `json:"failureReasons"`   // reason code -> count
	RateLimitHits  int            `json:"rateLimitHits"`
	MergeRecovered int            `json:"mergeRecovered"`
}

// ItemFailure is one entry of the structured failure list in a run summary.
type ItemFailure struct {
	Record  *ProcessedRecord `json:"record"`
	Reason  string           `json:"reason"`
	Message string           `json:"message"`
}

// RunSummary is the orchestrator's return value for a batch.
type RunSummary struct {
	RunID    string        `json:"runId"`
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Failed   int           `json:"failed"`
	Failures []ItemFailure `json:"failures"`
	Metrics  *RunMetrics   `json:"metrics"`
}
