package repository

import (
	"context"
	"time"

	"github.com/ludocat/gamesync/internal/domain"
)

// CandidateQuery bounds the candidate set retrieved for one matching-engine
// evaluation. Source is the incoming record's source system; candidates must
// carry the competing source's identifier and lack this one's.
type CandidateQuery struct {
	Source         string
	Slug           string
	RequiredTokens []string // top name tokens, all must appear in the name
	ReleaseDate    *time.Time
	DateWindow     time.Duration // half-width of the release-date window
	Limit          int
}

// Game defines the data access interface for game entities. Read paths used
// by the matching engine and slug resolver run outside transactions; all
// mutations go through a GameTx.
type Game interface {
	GetByID(ctx context.Context, id int64) (*domain.Game, error)
	GetByExternalID(ctx context.Context, source string, externalID int64) (*domain.Game, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Game, error)
	SlugExists(ctx context.Context, slug string, excludeID *int64) (bool, error)
	FindMatchCandidates(ctx context.Context, q CandidateQuery) ([]domain.Game, error)
	ListCompanyNames(ctx context.Context, gameID int64) ([]string, error)
	GetDetail(ctx context.Context, gameID int64) (*domain.GameDetail, error)

	BeginTx(ctx context.Context) (GameTx, error)
}

// GameTx defines the transactional interface for game mutations. One upsert
// or merge runs entirely inside a single GameTx.
type GameTx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	GetByID(ctx context.Context, id int64) (*domain.Game, error)
	GetByExternalID(ctx context.Context, source string, externalID int64) (*domain.Game, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Game, error)
	SlugExists(ctx context.Context, slug string, excludeID *int64) (bool, error)

	Create(ctx context.Context, game *domain.Game) error
	Update(ctx context.Context, game *domain.Game) error
	UpdateSlugs(ctx context.Context, gameID int64, slug, ogSlug string) error
	UpdateExternalIDs(ctx context.Context, gameID int64, source string, externalID, parentID *int64) error
	ClearExternalID(ctx context.Context, gameID int64, source string) error
	SetExternalID(ctx context.Context, gameID int64, source string, externalID int64) error
	Delete(ctx context.Context, gameID int64) error

	// LockPair acquires row locks on both games in ascending id order, so
	// concurrent merges of the same pair serialize instead of deadlocking.
	LockPair(ctx context.Context, firstID, secondID int64) (*domain.Game, *domain.Game, error)

	UpsertDetail(ctx context.Context, detail *domain.GameDetail) error
	DeleteDetail(ctx context.Context, gameID int64) error

	ListReleases(ctx context.Context, gameID int64) ([]domain.GameRelease, error)
	UpsertRelease(ctx context.Context, release *domain.GameRelease) error
	DeleteRelease(ctx context.Context, releaseID int64) error
	ReassignReleases(ctx context.Context, releaseIDs []int64, toGameID int64) (int64, error)

	GetCompanyBySlugOrName(ctx context.Context, slug, name string) (*domain.Company, error)
	CreateCompany(ctx context.Context, company *domain.Company) error
	UpsertCompanyRole(ctx context.Context, role domain.CompanyRole) error
}
