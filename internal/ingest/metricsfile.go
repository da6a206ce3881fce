package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ludocat/gamesync/internal/domain"
)

// metricsFileTimestamp is the layout of the filename timestamp.
const metricsFileTimestamp = "20060102T150405Z"

// writeMetricsFile persists the run's aggregate metrics as a timestamped JSON
// snapshot, one file per run.
func writeMetricsFile(dir string, run *domain.Run) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	payload := struct {
		RunID      string             `json:"runId"`
		Source     string             `json:"source"`
		StartedAt  string             `json:"startedAt"`
		FinishedAt string             `json:"finishedAt,omitempty"`
		Total      int                `json:"total"`
		Created    int                `json:"created"`
		Updated    int                `json:"updated"`
		Failed     int                `json:"failed"`
		Metrics    *domain.RunMetrics `json:"metrics"`
	}{
		RunID:     run.ID,
		Source:    run.Source,
		StartedAt: run.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Total:     run.Total,
		Created:   run.Created,
		Updated:   run.Updated,
		Failed:    run.Failed,
		Metrics:   run.Metrics,
	}
	if run.FinishedAt != nil {
		payload.FinishedAt = run.FinishedAt.UTC().Format("2006-01-02T15:04:05Z")
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	name := fmt.Sprintf("run-%s-%s.json", run.StartedAt.UTC().Format(metricsFileTimestamp), run.ID)
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}
