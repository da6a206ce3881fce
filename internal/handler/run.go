package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/logger"
	"github.com/ludocat/gamesync/internal/repository"
)

// BatchRunner executes an ingest batch. Satisfied by ingest.Orchestrator.
type BatchRunner interface {
	Run(ctx context.Context, source string, records []*domain.ProcessedRecord) (*domain.RunSummary, error)
}

// StartRunRequest is the request body for starting an ingest run
type StartRunRequest struct {
	Source  string                    `json:"source"`
	Records []*domain.ProcessedRecord `json:"records"`
}

// RunResponse is the API shape of a persisted run
type RunResponse struct {
	ID         string             `json:"id"`
	Source     string             `json:"source"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt *time.Time         `json:"finishedAt,omitempty"`
	Total      int                `json:"total"`
	Created    int                `json:"created"`
	Updated    int                `json:"updated"`
	Failed     int                `json:"failed"`
	Metrics    *domain.RunMetrics `json:"metrics,omitempty"`
}

// HandleStartRun ingests a batch of normalized records and responds with the
// run summary once every record has reached a terminal outcome.
func HandleStartRun(runner BatchRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var req StartRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Failed to decode start-run request", "error", err)
			respondError(w, http.StatusBadRequest, ErrMsgInvalidRequest)
			return
		}
		if req.Source != domain.SourceSteam && req.Source != domain.SourceRAWG {
			respondError(w, http.StatusBadRequest, "Unknown source")
			return
		}
		if len(req.Records) == 0 {
			respondError(w, http.StatusBadRequest, ErrMsgEmptyBatch)
			return
		}

		summary, err := runner.Run(r.Context(), req.Source, req.Records)
		if err != nil {
			log.Error("Ingest run failed", "error", err)
			respondError(w, statusForError(err), ErrMsgStartRunFailed)
			return
		}

		respondJSON(w, http.StatusOK, summary)
	}
}

// HandleGetRun returns the audit record of a past run by its ID.
func HandleGetRun(runs repository.Run) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		runID := chi.URLParam(r, "id")
		if runID == "" {
			respondError(w, http.StatusBadRequest, "Missing run id")
			return
		}

		run, err := runs.GetRun(r.Context(), runID)
		if err != nil {
			status := statusForError(err)
			if status == http.StatusNotFound {
				respondError(w, status, ErrMsgRunNotFound)
				return
			}
			log.Error("Failed to get run", "error", err, "run_id", runID)
			respondError(w, status, ErrMsgGetRunFailed)
			return
		}

		respondJSON(w, http.StatusOK, RunResponse{
			ID:         run.ID,
			Source:     run.Source,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Total:      run.Total,
			Created:    run.Created,
			Updated:    run.Updated,
			Failed:     run.Failed,
			Metrics:    run.Metrics,
		})
	}
}
