package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ludocat/gamesync/internal/logger"
	"github.com/ludocat/gamesync/internal/repository"
)

// MatchDecisionResponse is the API shape of one audit-log entry
type MatchDecisionResponse struct {
	ID         int64          `json:"id"`
	Source     string         `json:"source"`
	ExternalID int64          `json:"externalId"`
	Outcome    string         `json:"outcome"`
	Reason     string         `json:"reason,omitempty"`
	Score      float64        `json:"score"`
	GameID     *int64         `json:"gameId,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// HandleListMatches returns the matching-decision audit trail for one
// external record, newest first.
func HandleListMatches(matches repository.Match) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		source := r.URL.Query().Get("source")
		if source == "" {
			respondError(w, http.StatusBadRequest, fmt.Sprintf(ErrMsgMissingQueryParam, "source"))
			return
		}

		rawID := r.URL.Query().Get("externalId")
		if rawID == "" {
			respondError(w, http.StatusBadRequest, fmt.Sprintf(ErrMsgMissingQueryParam, "externalId"))
			return
		}
		externalID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf(ErrMsgInvalidQueryParam, "externalId"))
			return
		}

		decisions, err := matches.ListBySource(r.Context(), source, externalID)
		if err != nil {
			log.Error("Failed to list match decisions", "error", err, "source", source, "external_id", externalID)
			respondError(w, statusForError(err), ErrMsgListMatchesFailed)
			return
		}

		out := make([]MatchDecisionResponse, 0, len(decisions))
		for _, d := range decisions {
			out = append(out, MatchDecisionResponse{
				ID:         d.ID,
				Source:     d.Source,
				ExternalID: d.ExternalID,
				Outcome:    string(d.Outcome),
				Reason:     d.Reason,
				Score:      d.Score,
				GameID:     d.GameID,
				Details:    d.Details,
				CreatedAt:  d.CreatedAt,
			})
		}
		respondJSON(w, http.StatusOK, DataResponse{Data: out})
	}
}
