package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/match"
)

// stubMatcher returns a fixed matching-engine result.
type stubMatcher struct {
	result *match.Result
	err    error
	calls  int
}

func (m *stubMatcher) Evaluate(ctx context.Context, record *domain.ProcessedRecord) (*match.Result, error) {
	m.calls++
	if m.result == nil {
		return &match.Result{Outcome: domain.MatchNoCandidate, Reason: domain.RejectNoCandidate}, m.err
	}
	return m.result, m.err
}

func ptr[T any](v T) *T { return &v }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func steamRecord(steamID int64, name string) *domain.ProcessedRecord {
	return &domain.ProcessedRecord{
		Source:  domain.SourceSteam,
		Name:    name,
		OGName:  name,
		SteamID: ptr(steamID),
		Weight:  50,
	}
}

func rawgRecord(rawgID int64, name string) *domain.ProcessedRecord {
	return &domain.ProcessedRecord{
		Source: domain.SourceRAWG,
		Name:   name,
		OGName: name,
		RawgID: ptr(rawgID),
		Weight: 50,
	}
}

func newTestService(repo *FakeRepository) (Service, *stubMatcher) {
	matcher := &stubMatcher{}
	return NewService(repo, matcher), matcher
}

func TestUpsert_CreatesOnFirstSight(t *testing.T) {
	repo := NewFakeRepository()
	svc, _ := newTestService(repo)

	record := steamRecord(400, "Portal")
	record.ReleaseDate = date(2007, time.October, 10)

	result, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeCreated, result.Operation)
	assert.NotZero(t, result.GameID)
	assert.Empty(t, result.MatchedBy)

	games := repo.Games()
	require.Len(t, games, 1)
	assert.Equal(t, "portal", games[0].Slug)
	assert.Equal(t, "portal", games[0].OGSlug)
	require.NotNil(t, games[0].SteamID)
	assert.Equal(t, int64(400), *games[0].SteamID)
}

func TestUpsert_SameExternalIDUpdatesSameEntity(t *testing.T) {
	repo := NewFakeRepository()
	svc, _ := newTestService(repo)

	first, err := svc.Upsert(context.Background(), steamRecord(400, "Portal"), Options{AllowCreate: true})
	require.NoError(t, err)

	again := steamRecord(400, "Portal")
	again.Weight = 90
	second, err := svc.Upsert(context.Background(), again, Options{AllowCreate: true})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeUpdated, second.Operation)
	assert.Equal(t, first.GameID, second.GameID)
	assert.Equal(t, MatchedByExternalID, second.MatchedBy)

	games := repo.Games()
	require.Len(t, games, 1)
	assert.Equal(t, 90, games[0].Weight)
}

func TestUpsert_ResolvesByCompetingID(t *testing.T) {
	repo := NewFakeRepository()
	existing := repo.Seed(domain.Game{
		Name: "Hades", OGName: "Hades", Slug: "hades", OGSlug: "hades",
		RawgID: ptr(int64(2254)), Type: domain.GameTypeGame,
	})
	svc, _ := newTestService(repo)

	// Steam record that already knows its rawg counterpart.
	record := steamRecord(1145360, "Hades")
	record.RawgID = ptr(int64(2254))

	result, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeUpdated, result.Operation)
	assert.Equal(t, existing.ID, result.GameID)
	assert.Equal(t, MatchedByCompetingID, result.MatchedBy)

	games := repo.Games()
	require.Len(t, games, 1)
	require.NotNil(t, games[0].SteamID)
	assert.Equal(t, int64(1145360), *games[0].SteamID)
	require.NotNil(t, games[0].RawgID)
	assert.Equal(t, int64(2254), *games[0].RawgID)
}

func TestUpsert_ResolvesBySlug(t *testing.T) {
	repo := NewFakeRepository()
	existing := repo.Seed(domain.Game{
		Name: "Celeste", OGName: "Celeste", Slug: "celeste", OGSlug: "celeste",
		RawgID: ptr(int64(50)), Type: domain.GameTypeGame,
	})
	svc, _ := newTestService(repo)

	record := steamRecord(504230, "Celeste")
	record.Slug = "celeste"

	result, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, result.GameID)
	assert.Equal(t, MatchedBySlug, result.MatchedBy)
}

func TestUpsert_SlugConflictWithOtherSameSourceGameCreatesNew(t *testing.T) {
	// A different steam game already owns the slug: updating it would steal
	// the row, so the record must create its own entity with a suffixed slug.
	repo := NewFakeRepository()
	repo.Seed(domain.Game{
		Name: "Inside", OGName: "Inside", Slug: "inside", OGSlug: "inside",
		SteamID: ptr(int64(304430)), Type: domain.GameTypeGame,
	})
	svc, _ := newTestService(repo)

	record := steamRecord(999999, "Inside")
	record.Slug = "inside"

	result, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeCreated, result.Operation)
	games := repo.Games()
	require.Len(t, games, 2)
	assert.NotEqual(t, games[0].Slug, games[1].Slug)
}

func TestUpsert_MatchEngineResolution(t *testing.T) {
	repo := NewFakeRepository()
	existing := repo.Seed(domain.Game{
		Name: "Blasphemous", OGName: "Blasphemous", Slug: "blasphemous", OGSlug: "blasphemous",
		RawgID: ptr(int64(257201)), Type: domain.GameTypeGame,
	})
	svc, matcher := newTestService(repo)
	matcher.result = &match.Result{Outcome: domain.MatchMatched, Game: existing, Score: 0.9}

	// Different slug, no competing id: only the engine can resolve this.
	record := steamRecord(774361, "Blasphemous: Digital Deluxe")
	record.Slug = "blasphemous-digital-deluxe"

	result, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)

	assert.Equal(t, 1, matcher.calls)
	assert.Equal(t, domain.OutcomeUpdated, result.Operation)
	assert.Equal(t, existing.ID, result.GameID)
	assert.Equal(t, MatchedByEngine, result.MatchedBy)
}

func TestUpsert_PendingMatchCreatesNewEntity(t *testing.T) {
	repo := NewFakeRepository()
	repo.Seed(domain.Game{
		Name: "Blasphemous", OGName: "Blasphemous", Slug: "blasphemous", OGSlug: "blasphemous",
		RawgID: ptr(int64(257201)), Type: domain.GameTypeGame,
	})
	svc, matcher := newTestService(repo)
	matcher.result = &match.Result{Outcome: domain.MatchPending, Score: 0.5}

	record := steamRecord(774361, "Blasphemous II Demo")
	record.Slug = "blasphemous-ii-demo"

	result, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCreated, result.Operation)
	assert.Len(t, repo.Games(), 2)
}

func TestUpsert_CreateNotPermitted(t *testing.T) {
	repo := NewFakeRepository()
	svc, _ := newTestService(repo)

	_, err := svc.Upsert(context.Background(), steamRecord(111, "Unknown Game"), Options{AllowCreate: false})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCreateNotPermitted)
	assert.Empty(t, repo.Games())
}

func TestUpsert_ExistingIDSkipsResolution(t *testing.T) {
	repo := NewFakeRepository()
	existing := repo.Seed(domain.Game{
		Name: "Factorio", OGName: "Factorio", Slug: "factorio", OGSlug: "factorio",
		SteamID: ptr(int64(427520)), Type: domain.GameTypeGame,
	})
	svc, matcher := newTestService(repo)

	record := steamRecord(427520, "Factorio")
	record.Weight = 95

	result, err := svc.Upsert(context.Background(), record, Options{AllowCreate: false, ExistingID: &existing.ID})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeUpdated, result.Operation)
	assert.Equal(t, MatchedByCaller, result.MatchedBy)
	assert.Zero(t, matcher.calls)
	assert.Equal(t, 95, repo.Games()[0].Weight)
}

func TestUpsert_ProtectionPolicyRestrictsSecondaryUpdate(t *testing.T) {
	// The stored game is steam-sourced; an incoming rawg record may only
	// contribute its identifiers. Everything else is discarded.
	repo := NewFakeRepository()
	existing := repo.Seed(domain.Game{
		Name: "Hollow Knight", OGName: "Hollow Knight", Slug: "hollow-knight", OGSlug: "hollow-knight",
		SteamID: ptr(int64(367520)), Weight: 88, Followers: 120000,
		ReleaseDate: date(2017, time.February, 24), Type: domain.GameTypeGame,
	})
	svc, _ := newTestService(repo)

	record := rawgRecord(9767, "Hollow Knight GOTY")
	record.Slug = "hollow-knight"
	record.Weight = 10
	record.Followers = 5
	record.ReleaseDate = date(2018, time.January, 1)
	record.Detail = &domain.DetailPayload{Description: "secondary description"}
	record.Releases = []domain.ReleasePayload{{Platform: domain.PlatformSwitch, Store: "eshop"}}
	record.Companies = []domain.CompanyPayload{{Name: "Team Cherry", Role: domain.RoleDeveloper}}

	result, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeUpdated, result.Operation)
	assert.Equal(t, existing.ID, result.GameID)

	g := repo.Games()[0]
	require.NotNil(t, g.RawgID, "secondary identifier must be written")
	assert.Equal(t, int64(9767), *g.RawgID)

	assert.Equal(t, "Hollow Knight", g.Name, "name must not change")
	assert.Equal(t, 88, g.Weight, "weight must not change")
	assert.Equal(t, 120000, g.Followers, "followers must not change")
	assert.Equal(t, 2017, g.ReleaseDate.Year(), "release date must not change")

	assert.Nil(t, repo.Detail(g.ID), "detail must be discarded")
	assert.Empty(t, repo.Releases(), "releases must be discarded")
	assert.Empty(t, repo.Roles(), "company roles must be discarded")
}

func TestUpsert_SteamUpdateOverRawgSourcedGameIsFull(t *testing.T) {
	// The reverse direction is not protected: primary-source data overwrites.
	repo := NewFakeRepository()
	existing := repo.Seed(domain.Game{
		Name: "Hades", OGName: "Hades", Slug: "hades", OGSlug: "hades",
		RawgID: ptr(int64(2254)), Weight: 30, Type: domain.GameTypeGame,
	})
	svc, _ := newTestService(repo)

	record := steamRecord(1145360, "Hades")
	record.Slug = "hades"
	record.Weight = 92

	_, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)

	g := repo.Games()[0]
	assert.Equal(t, existing.ID, g.ID)
	assert.Equal(t, 92, g.Weight)
	require.NotNil(t, g.SteamID)
}

func TestUpsert_ValidationFailure(t *testing.T) {
	repo := NewFakeRepository()
	svc, _ := newTestService(repo)

	record := &domain.ProcessedRecord{Source: "gog", Name: "Anything", SteamID: ptr(int64(1))}
	_, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpsert_MissingExternalID(t *testing.T) {
	repo := NewFakeRepository()
	svc, _ := newTestService(repo)

	record := &domain.ProcessedRecord{Source: domain.SourceSteam, Name: "No ID"}
	_, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), ErrMsgMissingExternalID)
}

func TestUpsert_NoDuplicateIdentifiersAfterRepeatedUpserts(t *testing.T) {
	repo := NewFakeRepository()
	svc, _ := newTestService(repo)

	for i := 0; i < 3; i++ {
		_, err := svc.Upsert(context.Background(), steamRecord(400, "Portal"), Options{AllowCreate: true})
		require.NoError(t, err)
	}

	seen := map[int64]bool{}
	for _, g := range repo.Games() {
		if g.SteamID == nil {
			continue
		}
		require.False(t, seen[*g.SteamID], "steam id %d owned by two games", *g.SteamID)
		seen[*g.SteamID] = true
	}
}
