package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ludocat/gamesync/internal/domain"
)

func TestCollectorMetrics(t *testing.T) {
	c := newCollector()
	for i := int64(1); i <= 19; i++ {
		c.recordSuccess(domain.OutcomeCreated, 1, i*10)
	}
	c.recordFailure(&domain.ProcessedRecord{}, domain.ReasonUnknown, "boom", 2, 1000)

	m := c.metrics()
	assert.Equal(t, 0.95, m.SuccessRate)
	assert.Equal(t, float64(190), m.P95LatencyMS, "nearest-rank p95 of 20 samples is the 19th")
	assert.Equal(t, 19, m.RetryHistogram[1])
	assert.Equal(t, 1, m.RetryHistogram[2])
	assert.Equal(t, 1, m.FailureReasons[domain.ReasonUnknown])
	assert.InDelta(t, 145.0, m.MeanLatencyMS, 0.001)
}

func TestCollectorMetrics_Empty(t *testing.T) {
	m := newCollector().metrics()
	assert.Zero(t, m.SuccessRate)
	assert.Zero(t, m.MeanLatencyMS)
	assert.Zero(t, m.P95LatencyMS)
}

func TestPercentileIndex(t *testing.T) {
	assert.Equal(t, 0, percentileIndex(1, 0.95))
	assert.Equal(t, 18, percentileIndex(20, 0.95))
	assert.Equal(t, 94, percentileIndex(100, 0.95))
}
