package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/repository"
)

func ptr[T any](v T) *T { return &v }

// createGame commits a single game and returns it with its assigned id.
func createGame(t *testing.T, ctx context.Context, repo *GameRepository, g domain.Game) *domain.Game {
	t.Helper()
	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Create(ctx, &g))
	require.NoError(t, tx.Commit(ctx))
	return &g
}

func TestGameRepository_CreateAndLookups(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	truncateAll(t, ctx)

	repo := NewGameRepository(testPool)

	release := time.Date(2020, 9, 17, 0, 0, 0, 0, time.UTC)
	g := createGame(t, ctx, repo, domain.Game{
		Name: "Hades", OGName: "Hades", Slug: "hades", OGSlug: "hades",
		SteamID: ptr(int64(1145360)), Type: domain.GameTypeGame,
		ReleaseDate: &release, ReleaseStatus: domain.ReleaseStatusReleased,
		Weight: 90,
	})
	require.NotZero(t, g.ID)
	assert.False(t, g.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hades", byID.Name)
	require.NotNil(t, byID.ReleaseDate)
	assert.Equal(t, release.Format("2006-01-02"), byID.ReleaseDate.Format("2006-01-02"))

	byExternal, err := repo.GetByExternalID(ctx, domain.SourceSteam, 1145360)
	require.NoError(t, err)
	assert.Equal(t, g.ID, byExternal.ID)

	bySlug, err := repo.GetBySlug(ctx, "HADES")
	require.NoError(t, err, "slug lookup is case-insensitive")
	assert.Equal(t, g.ID, bySlug.ID)

	_, err = repo.GetByExternalID(ctx, domain.SourceRAWG, 1145360)
	assert.ErrorIs(t, err, domain.ErrGameNotFound)

	exists, err := repo.SlugExists(ctx, "hades", nil)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.SlugExists(ctx, "hades", &g.ID)
	require.NoError(t, err)
	assert.False(t, exists, "excluded id must not count")
}

func TestGameRepository_UniqueConstraintMapping(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	truncateAll(t, ctx)

	repo := NewGameRepository(testPool)
	createGame(t, ctx, repo, domain.Game{
		Name: "Dark Souls III", OGName: "Dark Souls III",
		Slug: "dark-souls-iii", OGSlug: "dark-souls-iii",
		SteamID: ptr(int64(374320)), Type: domain.GameTypeGame,
	})

	tests := []struct {
		name           string
		game           domain.Game
		wantConstraint string
		wantValue      string
	}{
		{
			name: "canonical slug collision",
			game: domain.Game{
				Name: "Dark Souls 3", OGName: "Dark Souls 3",
				Slug: "ds3", OGSlug: "dark-souls-iii", RawgID: ptr(int64(501)),
				Type: domain.GameTypeGame,
			},
			wantConstraint: "games_og_slug_key",
			wantValue:      "dark-souls-iii",
		},
		{
			name: "steam id collision",
			game: domain.Game{
				Name: "Imposter", OGName: "Imposter",
				Slug: "imposter", OGSlug: "imposter", SteamID: ptr(int64(374320)),
				Type: domain.GameTypeGame,
			},
			wantConstraint: "games_steam_id_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := repo.BeginTx(ctx)
			require.NoError(t, err)
			defer tx.Rollback(ctx)

			err = tx.Create(ctx, &tt.game)
			require.Error(t, err)

			var dup *domain.DuplicateKeyError
			require.ErrorAs(t, err, &dup)
			assert.Equal(t, tt.wantConstraint, dup.Constraint)
			if tt.wantValue != "" {
				assert.Equal(t, tt.wantValue, dup.Value)
			}
			assert.ErrorIs(t, err, domain.ErrDuplicateKey)
		})
	}
}

func TestGameRepository_FindMatchCandidates(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	truncateAll(t, ctx)

	repo := NewGameRepository(testPool)
	release := time.Date(2019, 9, 10, 0, 0, 0, 0, time.UTC)

	// Eligible: rawg-owned, no steam id, matching name tokens.
	eligible := createGame(t, ctx, repo, domain.Game{
		Name: "Blasphemous", OGName: "Blasphemous",
		Slug: "blasphemous", OGSlug: "blasphemous",
		RawgID: ptr(int64(257201)), Type: domain.GameTypeGame,
		ReleaseDate: &release, Weight: 70,
	})
	// Already owns a steam id, must not be a candidate.
	createGame(t, ctx, repo, domain.Game{
		Name: "Blasphemous II", OGName: "Blasphemous II",
		Slug: "blasphemous-ii", OGSlug: "blasphemous-ii",
		SteamID: ptr(int64(2114740)), RawgID: ptr(int64(963218)),
		Type: domain.GameTypeGame, Weight: 60,
	})
	// DLC is never a candidate.
	createGame(t, ctx, repo, domain.Game{
		Name: "Blasphemous Stir of Dawn", OGName: "Blasphemous Stir of Dawn",
		Slug: "blasphemous-stir-of-dawn", OGSlug: "blasphemous-stir-of-dawn",
		RawgID: ptr(int64(451337)), Type: domain.GameTypeDLC, Weight: 40,
	})

	got, err := repo.FindMatchCandidates(ctx, repository.CandidateQuery{
		Source:         domain.SourceSteam,
		Slug:           "blasphemous",
		RequiredTokens: []string{"blasphemous"},
		ReleaseDate:    &release,
		DateWindow:     5 * 365 * 24 * time.Hour,
		Limit:          10,
	})
	require.NoError(t, err)
	require.Len(t, got, 2, "slug match or token match, minus steam-owned and dlc")
	assert.Equal(t, eligible.ID, got[0].ID, "ordered by weight desc")
}

func TestGameTx_MergePrimitives(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	truncateAll(t, ctx)

	repo := NewGameRepository(testPool)
	keeper := createGame(t, ctx, repo, domain.Game{
		Name: "Celeste", OGName: "Celeste", Slug: "celeste", OGSlug: "celeste",
		SteamID: ptr(int64(504230)), Type: domain.GameTypeGame,
	})
	loser := createGame(t, ctx, repo, domain.Game{
		Name: "Celeste", OGName: "Celeste", Slug: "celeste-2", OGSlug: "celeste-2",
		RawgID: ptr(int64(261758)), Type: domain.GameTypeGame,
	})

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)

	lockedKeeper, lockedLoser, err := tx.LockPair(ctx, keeper.ID, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, keeper.ID, lockedKeeper.ID)
	assert.Equal(t, loser.ID, lockedLoser.ID)

	// Two releases on the loser, one to reassign.
	r1 := domain.GameRelease{GameID: loser.ID, Platform: domain.PlatformPC, Store: "rawg", StoreAppID: "261758"}
	require.NoError(t, tx.UpsertRelease(ctx, &r1))
	r2 := domain.GameRelease{GameID: loser.ID, Platform: "switch", Store: "eshop", StoreAppID: "70010000002097"}
	require.NoError(t, tx.UpsertRelease(ctx, &r2))

	moved, err := tx.ReassignReleases(ctx, []int64{r1.ID, r2.ID}, keeper.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), moved)

	// Null-first transfer of the rawg id.
	require.NoError(t, tx.ClearExternalID(ctx, loser.ID, domain.SourceRAWG))
	require.NoError(t, tx.SetExternalID(ctx, keeper.ID, domain.SourceRAWG, 261758))

	require.NoError(t, tx.Delete(ctx, loser.ID))
	require.NoError(t, tx.UpdateSlugs(ctx, keeper.ID, "celeste", "celeste"))
	require.NoError(t, tx.Commit(ctx))

	merged, err := repo.GetByID(ctx, keeper.ID)
	require.NoError(t, err)
	require.NotNil(t, merged.RawgID)
	assert.Equal(t, int64(261758), *merged.RawgID)

	_, err = repo.GetByID(ctx, loser.ID)
	assert.ErrorIs(t, err, domain.ErrGameNotFound)

	finalTx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer finalTx.Rollback(ctx)
	releases, err := finalTx.ListReleases(ctx, keeper.ID)
	require.NoError(t, err)
	assert.Len(t, releases, 2)
}

func TestGameTx_RollbackLeavesNoTrace(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	truncateAll(t, ctx)

	repo := NewGameRepository(testPool)

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)

	g := domain.Game{
		Name: "Ghost", OGName: "Ghost", Slug: "ghost", OGSlug: "ghost",
		SteamID: ptr(int64(999)), Type: domain.GameTypeGame,
	}
	require.NoError(t, tx.Create(ctx, &g))
	require.NoError(t, tx.UpsertDetail(ctx, &domain.GameDetail{GameID: g.ID, Description: "gone"}))
	require.NoError(t, tx.Rollback(ctx))

	_, err = repo.GetBySlug(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
}

func TestGameRepository_CompaniesRoundTrip(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	truncateAll(t, ctx)

	repo := NewGameRepository(testPool)
	g := createGame(t, ctx, repo, domain.Game{
		Name: "Hollow Knight", OGName: "Hollow Knight",
		Slug: "hollow-knight", OGSlug: "hollow-knight",
		SteamID: ptr(int64(367520)), Type: domain.GameTypeGame,
	})

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)

	company := domain.Company{Name: "Team Cherry", Slug: "team-cherry"}
	require.NoError(t, tx.CreateCompany(ctx, &company))
	require.NotZero(t, company.ID)

	require.NoError(t, tx.UpsertCompanyRole(ctx, domain.CompanyRole{
		GameID: g.ID, CompanyID: company.ID, Role: domain.RoleDeveloper,
	}))
	// Upserting the same role twice must not duplicate.
	require.NoError(t, tx.UpsertCompanyRole(ctx, domain.CompanyRole{
		GameID: g.ID, CompanyID: company.ID, Role: domain.RoleDeveloper,
	}))

	found, err := tx.GetCompanyBySlugOrName(ctx, "team-cherry", "Team Cherry")
	require.NoError(t, err)
	assert.Equal(t, company.ID, found.ID)
	require.NoError(t, tx.Commit(ctx))

	names, err := repo.ListCompanyNames(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Team Cherry"}, names)
}

func TestRunRepository_RoundTrip(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	truncateAll(t, ctx)

	repo := NewRunRepository(testPool)

	run := &domain.Run{
		ID:        uuid.NewString(),
		Source:    domain.SourceSteam,
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
		Total:     2,
	}
	require.NoError(t, repo.CreateRun(ctx, run))

	require.NoError(t, repo.AddItem(ctx, &domain.RunItem{
		RunID: run.ID, Seq: 0, Ref: "steam:440", Outcome: domain.OutcomeCreated, Attempts: 1, LatencyMS: 12,
	}))
	require.NoError(t, repo.AddItem(ctx, &domain.RunItem{
		RunID: run.ID, Seq: 1, Ref: "steam:570", Outcome: domain.OutcomeFailed,
		Reason: domain.ReasonValidationFailed, Message: "missing external id", Attempts: 1, LatencyMS: 3,
	}))

	finished := time.Now().UTC().Truncate(time.Millisecond)
	run.FinishedAt = &finished
	run.Created = 1
	run.Failed = 1
	run.Metrics = &domain.RunMetrics{
		SuccessRate:    0.5,
		MeanLatencyMS:  7.5,
		P95LatencyMS:   12,
		RetryHistogram: map[int]int{1: 2},
		FailureReasons: map[string]int{domain.ReasonValidationFailed: 1},
	}
	require.NoError(t, repo.FinishRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Created)
	assert.Equal(t, 1, got.Failed)
	require.NotNil(t, got.FinishedAt)
	require.NotNil(t, got.Metrics)
	assert.Equal(t, 0.5, got.Metrics.SuccessRate)
	assert.Equal(t, 2, got.Metrics.RetryHistogram[1])

	_, err = repo.GetRun(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestMatchRepository_AppendAndList(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	truncateAll(t, ctx)

	games := NewGameRepository(testPool)
	g := createGame(t, ctx, games, domain.Game{
		Name: "Factorio", OGName: "Factorio", Slug: "factorio", OGSlug: "factorio",
		RawgID: ptr(int64(9910)), Type: domain.GameTypeGame,
	})

	repo := NewMatchRepository(testPool)

	first := &domain.MatchDecision{
		Source: domain.SourceSteam, ExternalID: 427520,
		Outcome: domain.MatchPending, Score: 0.52,
		Details: map[string]any{"candidates": float64(3)},
	}
	require.NoError(t, repo.Append(ctx, first))
	require.NotZero(t, first.ID)

	second := &domain.MatchDecision{
		Source: domain.SourceSteam, ExternalID: 427520,
		Outcome: domain.MatchMatched, Score: 0.87, GameID: &g.ID,
	}
	require.NoError(t, repo.Append(ctx, second))

	decisions, err := repo.ListBySource(ctx, domain.SourceSteam, 427520)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, domain.MatchPending, decisions[0].Outcome)
	assert.Equal(t, domain.MatchMatched, decisions[1].Outcome)
	assert.Equal(t, float64(3), decisions[0].Details["candidates"])
	require.NotNil(t, decisions[1].GameID)
	assert.Equal(t, g.ID, *decisions[1].GameID)

	other, err := repo.ListBySource(ctx, domain.SourceRAWG, 427520)
	require.NoError(t, err)
	assert.Empty(t, other)
}
