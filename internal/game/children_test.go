package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludocat/gamesync/internal/domain"
)

func TestSyncDetail_WeightFloor(t *testing.T) {
	tests := []struct {
		name       string
		weight     int
		wantDetail bool
	}{
		{name: "below floor", weight: domain.MinDetailWeight - 1, wantDetail: false},
		{name: "at floor", weight: domain.MinDetailWeight, wantDetail: true},
		{name: "above floor", weight: 90, wantDetail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeRepository()
			svc, _ := newTestService(repo)

			record := steamRecord(1000, "Some Game")
			record.Weight = tt.weight
			record.Detail = &domain.DetailPayload{Description: "a description", Genres: []string{"Action"}}

			result, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
			require.NoError(t, err)

			detail := repo.Detail(result.GameID)
			if tt.wantDetail {
				require.NotNil(t, detail)
				assert.Equal(t, "a description", detail.Description)
			} else {
				assert.Nil(t, detail)
			}
		})
	}
}

func TestSyncDetail_ScreenshotCapAndSearchText(t *testing.T) {
	repo := NewFakeRepository()
	svc, _ := newTestService(repo)

	record := steamRecord(1001, "Nuclear Throne")
	record.Weight = 80
	record.Detail = &domain.DetailPayload{
		Screenshots: []string{"a", "b", "c", "d", "e", "f", "g"},
		Genres:      []string{"Roguelike"},
		Tags:        []string{"Bullet Hell"},
	}

	result, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)

	detail := repo.Detail(result.GameID)
	require.NotNil(t, detail)
	assert.Len(t, detail.Screenshots, domain.MaxScreenshots)
	assert.Contains(t, detail.SearchText, "nuclear throne")
	assert.Contains(t, detail.SearchText, "roguelike")
	assert.Contains(t, detail.SearchText, "bullet hell")
}

func TestSyncChildren_DLCParentWeightRule(t *testing.T) {
	tests := []struct {
		name         string
		parentWeight int
		wantChildren bool
	}{
		{name: "popular parent", parentWeight: 80, wantChildren: true},
		{name: "obscure parent", parentWeight: domain.MinDetailWeight - 1, wantChildren: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeRepository()
			repo.Seed(domain.Game{
				Name: "Base Game", OGName: "Base Game", Slug: "base-game", OGSlug: "base-game",
				SteamID: ptr(int64(100)), Weight: tt.parentWeight, Type: domain.GameTypeGame,
			})
			svc, _ := newTestService(repo)

			record := steamRecord(200, "Base Game - Expansion")
			record.Type = domain.GameTypeDLC
			record.ParentSteamID = ptr(int64(100))
			record.Weight = 10
			record.Detail = &domain.DetailPayload{Description: "expansion content"}
			record.Releases = []domain.ReleasePayload{{Platform: domain.PlatformPC, Store: "steam", StoreAppID: "200"}}
			record.Companies = []domain.CompanyPayload{{Name: "Studio", Role: domain.RoleDeveloper}}

			result, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
			require.NoError(t, err)

			// The game row itself is always persisted; only child content is gated.
			require.Len(t, repo.Games(), 2)

			if tt.wantChildren {
				assert.NotNil(t, repo.Detail(result.GameID), "dlc detail bypasses its own weight floor")
				assert.Len(t, repo.Releases(), 1)
				assert.Len(t, repo.Roles(), 1)
			} else {
				assert.Nil(t, repo.Detail(result.GameID))
				assert.Empty(t, repo.Releases())
				assert.Empty(t, repo.Roles())
			}
		})
	}
}

func TestSyncChildren_DLCWithoutResolvableParentSuppressed(t *testing.T) {
	repo := NewFakeRepository()
	svc, _ := newTestService(repo)

	record := steamRecord(300, "Orphan Expansion")
	record.Type = domain.GameTypeDLC
	record.ParentSteamID = ptr(int64(12345)) // nothing stored under this id
	record.Detail = &domain.DetailPayload{Description: "content"}

	result, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)
	assert.Nil(t, repo.Detail(result.GameID))
}

func TestSyncReleases_SecondaryPCRejected(t *testing.T) {
	repo := NewFakeRepository()
	svc, _ := newTestService(repo)

	record := rawgRecord(500, "Cross Platform Game")
	record.Weight = 60
	record.Releases = []domain.ReleasePayload{
		{Platform: domain.PlatformPC, Store: "gog"},
		{Platform: domain.PlatformSwitch, Store: "eshop"},
	}

	_, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)

	releases := repo.Releases()
	require.Len(t, releases, 1, "pc release from the secondary source must be dropped")
	assert.Equal(t, domain.PlatformSwitch, releases[0].Platform)
}

func TestSyncReleases_PrimaryPCKept(t *testing.T) {
	repo := NewFakeRepository()
	svc, _ := newTestService(repo)

	record := steamRecord(600, "PC Game")
	record.Releases = []domain.ReleasePayload{{Platform: domain.PlatformPC, Store: "steam", StoreAppID: "600"}}

	_, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)
	assert.Len(t, repo.Releases(), 1)
}

func TestSyncReleases_NaturalKeyUpsertDoesNotDuplicate(t *testing.T) {
	repo := NewFakeRepository()
	svc, _ := newTestService(repo)

	record := steamRecord(700, "Updated Game")
	record.Releases = []domain.ReleasePayload{{Platform: domain.PlatformPC, Store: "steam", StoreAppID: "700", Followers: 10}}

	_, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)

	record2 := steamRecord(700, "Updated Game")
	record2.Releases = []domain.ReleasePayload{{Platform: domain.PlatformPC, Store: "steam", StoreAppID: "700", Followers: 20}}

	_, err = svc.Upsert(context.Background(), record2, Options{AllowCreate: true})
	require.NoError(t, err)

	releases := repo.Releases()
	require.Len(t, releases, 1)
	assert.Equal(t, 20, releases[0].Followers)
}

func TestSyncCompanies_ResolveCreateAndDedupe(t *testing.T) {
	repo := NewFakeRepository()
	svc, _ := newTestService(repo)

	record := steamRecord(800, "Indie Game")
	record.Companies = []domain.CompanyPayload{
		{Name: "Supergiant Games", Role: domain.RoleDeveloper},
		{Name: "Supergiant Games", Role: domain.RolePublisher},
	}

	_, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)

	roles := repo.Roles()
	require.Len(t, roles, 2, "one join row per role")
	assert.Equal(t, roles[0].CompanyID, roles[1].CompanyID, "both roles must point at one company row")

	// Second upsert of the same record must not duplicate anything.
	_, err = svc.Upsert(context.Background(), steamRecordWithCompanies(800, "Indie Game"), Options{AllowCreate: true})
	require.NoError(t, err)
	assert.Len(t, repo.Roles(), 2)
}

func steamRecordWithCompanies(steamID int64, name string) *domain.ProcessedRecord {
	r := steamRecord(steamID, name)
	r.Companies = []domain.CompanyPayload{
		{Name: "Supergiant Games", Role: domain.RoleDeveloper},
		{Name: "Supergiant Games", Role: domain.RolePublisher},
	}
	return r
}

func TestSyncCompanies_ExistingCompanyReusedBySlug(t *testing.T) {
	repo := NewFakeRepository()
	existing := repo.SeedCompany(domain.Company{Name: "Devolver Digital", Slug: "devolver-digital"})
	svc, _ := newTestService(repo)

	record := steamRecord(900, "Published Game")
	record.Companies = []domain.CompanyPayload{{Name: "DEVOLVER DIGITAL", Slug: "devolver-digital", Role: domain.RolePublisher}}

	_, err := svc.Upsert(context.Background(), record, Options{AllowCreate: true})
	require.NoError(t, err)

	roles := repo.Roles()
	require.Len(t, roles, 1)
	assert.Equal(t, existing.ID, roles[0].CompanyID)
}
