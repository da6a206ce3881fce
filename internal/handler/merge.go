package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ludocat/gamesync/internal/logger"
	"github.com/ludocat/gamesync/internal/merge"
)

// MergeRequest is the request body for merging two games. Either both
// database IDs or both external IDs identify the pair.
type MergeRequest struct {
	KeeperID int64 `json:"keeperId"`
	LoserID  int64 `json:"loserId"`

	SteamID *int64 `json:"steamId"`
	RawgID  *int64 `json:"rawgId"`

	DryRun bool `json:"dryRun"`
}

// HandleMerge collapses a duplicate pair into one game and returns the merge
// report. With dryRun set the report is computed without mutating anything.
func HandleMerge(svc merge.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var req MergeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Failed to decode merge request", "error", err)
			respondError(w, http.StatusBadRequest, ErrMsgInvalidRequest)
			return
		}

		var (
			report *merge.Report
			err    error
		)
		switch {
		case req.SteamID != nil && req.RawgID != nil:
			if req.DryRun {
				respondError(w, http.StatusBadRequest, "Dry run requires keeperId and loserId")
				return
			}
			report, err = svc.MergeByExternalIDs(r.Context(), *req.SteamID, *req.RawgID)
		case req.KeeperID != 0 && req.LoserID != 0:
			if req.DryRun {
				report, err = svc.DryRun(r.Context(), req.KeeperID, req.LoserID)
			} else {
				report, err = svc.Merge(r.Context(), req.KeeperID, req.LoserID)
			}
		default:
			respondError(w, http.StatusBadRequest, "Merge requires keeperId/loserId or steamId/rawgId")
			return
		}
		if err != nil {
			log.Error("Merge failed", "error", err)
			respondError(w, statusForError(err), ErrMsgMergeFailed)
			return
		}

		respondJSON(w, http.StatusOK, report)
	}
}
