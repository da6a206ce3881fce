package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/merge"
)

type fakeMergeService struct {
	report *merge.Report
	err    error

	mergeCalls  int
	dryRunCalls int
}

func (f *fakeMergeService) Merge(ctx context.Context, keeperID, loserID int64) (*merge.Report, error) {
	f.mergeCalls++
	return f.report, f.err
}

func (f *fakeMergeService) DryRun(ctx context.Context, keeperID, loserID int64) (*merge.Report, error) {
	f.dryRunCalls++
	return f.report, f.err
}

func (f *fakeMergeService) MergeByExternalIDs(ctx context.Context, steamID, rawgID int64) (*merge.Report, error) {
	f.mergeCalls++
	return f.report, f.err
}

func postMerge(t *testing.T, svc merge.Service, body MergeRequest) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/merges", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	HandleMerge(svc)(rec, req)
	return rec
}

func TestHandleMerge_ByIDs(t *testing.T) {
	svc := &fakeMergeService{report: &merge.Report{KeeperID: 1, LoserID: 2, Reassigned: 3}}

	rec := postMerge(t, svc, MergeRequest{KeeperID: 1, LoserID: 2})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.mergeCalls)
	assert.Zero(t, svc.dryRunCalls)

	var report merge.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, int64(1), report.KeeperID)
	assert.Equal(t, 3, report.Reassigned)
}

func TestHandleMerge_DryRun(t *testing.T) {
	svc := &fakeMergeService{report: &merge.Report{KeeperID: 1, LoserID: 2, DryRun: true}}

	rec := postMerge(t, svc, MergeRequest{KeeperID: 1, LoserID: 2, DryRun: true})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.dryRunCalls)
	assert.Zero(t, svc.mergeCalls)

	var report merge.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.DryRun)
}

func TestHandleMerge_ByExternalIDs(t *testing.T) {
	steamID, rawgID := int64(440), int64(9000)
	svc := &fakeMergeService{report: &merge.Report{KeeperID: 1, LoserID: 2}}

	rec := postMerge(t, svc, MergeRequest{SteamID: &steamID, RawgID: &rawgID})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.mergeCalls)
}

func TestHandleMerge_BadRequests(t *testing.T) {
	steamID := int64(440)
	rawgID := int64(9000)
	tests := []struct {
		name string
		body MergeRequest
	}{
		{name: "no identifiers", body: MergeRequest{}},
		{name: "half an external pair", body: MergeRequest{SteamID: &steamID}},
		{name: "dry run with external ids", body: MergeRequest{SteamID: &steamID, RawgID: &rawgID, DryRun: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeMergeService{}
			rec := postMerge(t, svc, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, svc.mergeCalls)
			assert.Zero(t, svc.dryRunCalls)
		})
	}
}

func TestHandleMerge_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "participant missing", err: fmt.Errorf("%w: id 9", domain.ErrMergeParticipant), wantStatus: http.StatusNotFound},
		{name: "same game", err: fmt.Errorf("%w: id 1", domain.ErrMergeSameGame), wantStatus: http.StatusBadRequest},
		{name: "count mismatch", err: fmt.Errorf("%w: expected 2 moved 1", domain.ErrMergeCountMismatch), wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postMerge(t, &fakeMergeService{err: tt.err}, MergeRequest{KeeperID: 1, LoserID: 2})
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
