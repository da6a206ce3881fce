package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Ingest Metrics
var (
	IngestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameIngestRunsTotal,
			Help: HelpTextIngestRunsTotal,
		},
		[]string{LabelSource},
	)

	IngestItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameIngestItemsTotal,
			Help: HelpTextIngestItemsTotal,
		},
		[]string{LabelSource, LabelOutcome},
	)

	IngestRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameIngestRetriesTotal,
			Help: HelpTextIngestRetriesTotal,
		},
		[]string{LabelSource},
	)

	IngestRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameIngestRateLimitHits,
			Help: HelpTextIngestRateLimitHits,
		},
		[]string{LabelSource},
	)

	IngestMergeRecoveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameIngestMergeRecoveries,
			Help: HelpTextIngestMergeRecoveries,
		},
		[]string{LabelSource},
	)

	IngestItemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameIngestItemDuration,
			Help:    HelpTextIngestItemDuration,
			Buckets: ItemLatencyBuckets,
		},
		[]string{LabelSource},
	)
)

// Matching and Merge Metrics
var (
	MatchDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameMatchDecisionsTotal,
			Help: HelpTextMatchDecisionsTotal,
		},
		[]string{LabelSource, LabelOutcome},
	)

	MergesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameMergesTotal,
			Help: HelpTextMergesTotal,
		},
	)

	ReleasesReassigned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameReleasesReassigned,
			Help: HelpTextReleasesReassigned,
		},
	)
)
