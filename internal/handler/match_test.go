package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludocat/gamesync/internal/domain"
)

type fakeMatchStore struct {
	decisions []domain.MatchDecision

	gotSource string
	gotID     int64
}

func (f *fakeMatchStore) Append(ctx context.Context, decision *domain.MatchDecision) error {
	f.decisions = append(f.decisions, *decision)
	return nil
}

func (f *fakeMatchStore) ListBySource(ctx context.Context, source string, externalID int64) ([]domain.MatchDecision, error) {
	f.gotSource = source
	f.gotID = externalID
	return f.decisions, nil
}

func TestHandleListMatches(t *testing.T) {
	gameID := int64(7)
	store := &fakeMatchStore{decisions: []domain.MatchDecision{
		{
			ID:         1,
			Source:     domain.SourceRAWG,
			ExternalID: 9000,
			Outcome:    domain.MatchMatched,
			Score:      0.91,
			GameID:     &gameID,
			CreatedAt:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/v1/matches?source=rawg&externalId=9000", nil)
	rec := httptest.NewRecorder()
	HandleListMatches(store)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.SourceRAWG, store.gotSource)
	assert.Equal(t, int64(9000), store.gotID)

	var resp struct {
		Data []MatchDecisionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, string(domain.MatchMatched), resp.Data[0].Outcome)
	assert.Equal(t, 0.91, resp.Data[0].Score)
	require.NotNil(t, resp.Data[0].GameID)
	assert.Equal(t, gameID, *resp.Data[0].GameID)
}

func TestHandleListMatches_EmptyTrail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/matches?source=steam&externalId=440", nil)
	rec := httptest.NewRecorder()
	HandleListMatches(&fakeMatchStore{})(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []MatchDecisionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data)
}

func TestHandleListMatches_BadParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "missing source", target: "/v1/matches?externalId=440"},
		{name: "missing external id", target: "/v1/matches?source=steam"},
		{name: "non-numeric external id", target: "/v1/matches?source=steam&externalId=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			HandleListMatches(&fakeMatchStore{})(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
