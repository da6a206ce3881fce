package metrics

// ============================================================================
// Metric Names
// ============================================================================

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// Ingest metric names
const (
	MetricNameIngestRunsTotal       = "ingest_runs_total"
	MetricNameIngestItemsTotal      = "ingest_items_total"
	MetricNameIngestRetriesTotal    = "ingest_item_retries_total"
	MetricNameIngestRateLimitHits   = "ingest_rate_limit_hits_total"
	MetricNameIngestMergeRecoveries = "ingest_merge_recoveries_total"
	MetricNameIngestItemDuration    = "ingest_item_duration_seconds"
	MetricNameMatchDecisionsTotal   = "match_decisions_total"
	MetricNameMergesTotal           = "merges_total"
	MetricNameReleasesReassigned    = "merge_releases_reassigned_total"
)

// ============================================================================
// Metric Help Text
// ============================================================================

// HTTP metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"
)

// Ingest metric help text
const (
	HelpTextIngestRunsTotal       = "Total number of ingest runs started"
	HelpTextIngestItemsTotal      = "Total number of batch items processed, by terminal outcome"
	HelpTextIngestRetriesTotal    = "Total number of item retry attempts scheduled"
	HelpTextIngestRateLimitHits   = "Total number of rate-limit signals observed during ingest"
	HelpTextIngestMergeRecoveries = "Total number of items recovered from a canonical-slug collision"
	HelpTextIngestItemDuration    = "Per-item upsert latency in seconds"
	HelpTextMatchDecisionsTotal   = "Total number of matching-engine decisions, by outcome"
	HelpTextMergesTotal           = "Total number of entity merges performed"
	HelpTextReleasesReassigned    = "Total number of releases reassigned during merges"
)

// ============================================================================
// Metric Label Names
// ============================================================================

// Common label names used across metrics
const (
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelStatus  = "status"
	LabelSource  = "source"
	LabelOutcome = "outcome"
)

// ============================================================================
// Histogram Buckets
// ============================================================================

// HTTPLatencyBuckets defines the histogram buckets for HTTP request duration
// in seconds. These buckets range from 1ms to 10s to capture various latency
// patterns: fast (1-10ms), normal (10-100ms), slow (100ms-1s), very slow (1-10s)
var HTTPLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// ItemLatencyBuckets covers per-item upsert latency: most items land in the
// 5-250ms range, retried items can take seconds.
var ItemLatencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
