package ingest

import (
	"sort"
	"sync"

	"github.com/ludocat/gamesync/internal/domain"
)

// collector aggregates per-item outcomes across workers.
type collector struct {
	mu sync.Mutex

	created int
	updated int
	failed  int

	latencies      []int64
	retryHistogram map[int]int
	failureReasons map[string]int
	rateLimitHits  int
	mergeRecovered int

	failures []domain.ItemFailure
}

func newCollector() *collector {
	return &collector{
		retryHistogram: make(map[int]int),
		failureReasons: make(map[string]int),
	}
}

func (c *collector) recordSuccess(outcome domain.RunItemOutcome, attempts int, latencyMS int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if outcome == domain.OutcomeCreated {
		c.created++
	} else {
		c.updated++
	}
	c.latencies = append(c.latencies, latencyMS)
	c.retryHistogram[attempts]++
}

func (c *collector) recordFailure(record *domain.ProcessedRecord, reason, message string, attempts int, latencyMS int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failed++
	c.latencies = append(c.latencies, latencyMS)
	c.retryHistogram[attempts]++
	c.failureReasons[reason]++
	c.failures = append(c.failures, domain.ItemFailure{Record: record, Reason: reason, Message: message})
}

func (c *collector) recordRateLimitHit() {
	c.mu.Lock()
	c.rateLimitHits++
	c.mu.Unlock()
}

func (c *collector) recordMergeRecovery() {
	c.mu.Lock()
	c.mergeRecovered++
	c.mu.Unlock()
}

func (c *collector) counts() (created, updated, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created, c.updated, c.failed
}

// metrics computes the aggregate snapshot for the run record.
func (c *collector) metrics() *domain.RunMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.created + c.updated + c.failed
	m := &domain.RunMetrics{
		RetryHistogram: c.retryHistogram,
		FailureReasons: c.failureReasons,
		RateLimitHits:  c.rateLimitHits,
		MergeRecovered: c.mergeRecovered,
	}
	if total > 0 {
		m.SuccessRate = float64(c.created+c.updated) / float64(total)
	}
	if len(c.latencies) == 0 {
		return m
	}

	sorted := make([]int64, len(c.latencies))
	copy(sorted, c.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum int64
	for _, l := range sorted {
		sum += l
	}
	m.MeanLatencyMS = float64(sum) / float64(len(sorted))
	m.P95LatencyMS = float64(sorted[percentileIndex(len(sorted), 0.95)])
	return m
}

// percentileIndex returns the nearest-rank index for percentile p.
func percentileIndex(n int, p float64) int {
	idx := int(float64(n)*p+0.5) - 1
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

func (c *collector) failureList() []domain.ItemFailure {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ItemFailure, len(c.failures))
	copy(out, c.failures)
	return out
}
