package domain

import "time"

// Game is the canonical entity merged from both catalogs.
// Slug and OGSlug are unique case-insensitively; SteamID and RawgID are each
// unique across all games (at most one owner per external identifier).
type Game struct {
	ID     int64
	Name   string
	OGName string // canonical (English-preferred) name
	Slug   string
	OGSlug string

	SteamID       *int64
	RawgID        *int64
	ParentSteamID *int64 // DLC -> base game linkage, per source
	ParentRawgID  *int64

	Type          GameType
	ReleaseDate   *time.Time
	ReleaseRaw    string
	ReleaseStatus ReleaseStatus

	Weight    int // normalized popularity, 0-100
	Followers int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExternalID returns the identifier for the given source, if set.
func (g *Game) ExternalID(source string) *int64 {
	switch source {
	case SourceSteam:
		return g.SteamID
	case SourceRAWG:
		return g.RawgID
	}
	return nil
}

// SetExternalID sets the identifier for the given source.
func (g *Game) SetExternalID(source string, id *int64) {
	switch source {
	case SourceSteam:
		g.SteamID = id
	case SourceRAWG:
		g.RawgID = id
	}
}

// IsDLC reports whether the game is downloadable content.
func (g *Game) IsDLC() bool {
	return g.Type == GameTypeDLC
}

// GameDetail is the 1:1 media/metadata blob for a game.
type GameDetail struct {
	GameID      int64
	Screenshots []string
	Description string
	Genres      []string
	Tags        []string
	Languages   []string
	Metacritic  *int
	Mature      bool
	SearchText  string
	UpdatedAt   time.Time
}

// ReleaseKey is the natural key of a store release.
type ReleaseKey struct {
	Platform   string
	Store      string
	StoreAppID string
}

// GameRelease is one store listing of a game on a platform.
type GameRelease struct {
	ID         int64
	GameID     int64
	Platform   string
	Store      string
	StoreAppID string

	URL           string
	Region        string
	ReleaseDate   *time.Time
	ReleaseStatus ReleaseStatus
	PriceCents    *int
	Currency      string

	Followers       int
	PositiveReviews int
	NegativeReviews int

	UpdatedAt time.Time
}

// Key returns the release's natural key.
func (r *GameRelease) Key() ReleaseKey {
	return ReleaseKey{Platform: r.Platform, Store: r.Store, StoreAppID: r.StoreAppID}
}

// MoreCompleteThan reports whether r carries strictly more information than
// other for the same natural key. Used when a merge finds the same release on
// both participants.
func (r *GameRelease) MoreCompleteThan(other *GameRelease) bool {
	score := func(rel *GameRelease) int {
		n := 0
		if rel.URL != "" {
			n++
		}
		if rel.ReleaseDate != nil {
			n++
		}
		if rel.PriceCents != nil {
			n++
		}
		if rel.Followers > 0 {
			n++
		}
		if rel.PositiveReviews+rel.NegativeReviews > 0 {
			n++
		}
		return n
	}
	return score(r) > score(other)
}

// Company is a developer or publisher master record.
type Company struct {
	ID   int64
	Name string
	Slug string
}

// CompanyRole links a company to a game in a given role.
// Natural key = (GameID, CompanyID, Role).
type CompanyRole struct {
	GameID    int64
	CompanyID int64
	Role      CompanyRoleType
}
