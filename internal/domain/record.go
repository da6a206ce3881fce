package domain

import "time"

// ProcessedRecord is one normalized item of catalog input, produced upstream
// by the source fetchers and consumed by the ingest orchestrator.
type ProcessedRecord struct {
	Source string `json:"source" validate:"required,oneof=steam rawg"`

	Name   string `json:"name" validate:"required"`
	OGName string `json:"ogName"`
	Slug   string `json:"slug"`
	OGSlug string `json:"ogSlug"`

	SteamID       *int64 `json:"steamId"`
	RawgID        *int64 `json:"rawgId"`
	ParentSteamID *int64 `json:"parentSteamId"`
	ParentRawgID  *int64 `json:"parentRawgId"`

	Type          GameType      `json:"type" validate:"omitempty,oneof=game dlc demo soundtrack"`
	ReleaseDate   *time.Time    `json:"releaseDate"`
	ReleaseRaw    string        `json:"releaseRaw"`
	ReleaseStatus ReleaseStatus `json:"releaseStatus"`

	Weight    int `json:"weight" validate:"min=0,max=100"`
	Followers int `json:"followers"`

	Detail    *DetailPayload   `json:"detail"`
	Releases  []ReleasePayload `json:"releases"`
	Companies []CompanyPayload `json:"companies"`

	Matching MatchContext `json:"matching"`
}

// ExternalID returns the record's identifier in its own source system.
func (r *ProcessedRecord) ExternalID() *int64 {
	if r.Source == SourceSteam {
		return r.SteamID
	}
	return r.RawgID
}

// CompetingID returns the record's identifier in the other source system, if
// the upstream fetcher resolved one.
func (r *ProcessedRecord) CompetingID() *int64 {
	if r.Source == SourceSteam {
		return r.RawgID
	}
	return r.SteamID
}

// CompetingSource returns the name of the other source system.
func (r *ProcessedRecord) CompetingSource() string {
	if r.Source == SourceSteam {
		return SourceRAWG
	}
	return SourceSteam
}

// Ref is a human-readable reference for logs and run items.
func (r *ProcessedRecord) Ref() string {
	return r.Source + ":" + r.Slug
}

// DetailPayload carries incoming detail fields.
type DetailPayload struct {
	Screenshots []string `json:"screenshots"`
	Description string   `json:"description"`
	Genres      []string `json:"genres"`
	Tags        []string `json:"tags"`
	Languages   []string `json:"languages"`
	Metacritic  *int     `json:"metacritic"`
	Mature      bool     `json:"mature"`
}

// ReleasePayload carries one incoming store release.
type ReleasePayload struct {
	Platform   string `json:"platform" validate:"required"`
	Store      string `json:"store" validate:"required"`
	StoreAppID string `json:"storeAppId"`

	URL           string        `json:"url"`
	Region        string        `json:"region"`
	ReleaseDate   *time.Time    `json:"releaseDate"`
	ReleaseStatus ReleaseStatus `json:"releaseStatus"`
	PriceCents    *int          `json:"priceCents"`
	Currency      string        `json:"currency"`

	Followers       int `json:"followers"`
	PositiveReviews int `json:"positiveReviews"`
	NegativeReviews int `json:"negativeReviews"`
}

// CompanyPayload carries one incoming company attribution.
type CompanyPayload struct {
	Name string          `json:"name" validate:"required"`
	Slug string          `json:"slug"`
	Role CompanyRoleType `json:"role" validate:"required,oneof=developer publisher"`
}

// MatchContext is the bag of precomputed matching hints attached to a record.
// It is consumed only by the matching engine and never persisted on the game.
type MatchContext struct {
	NameTokens     []string `json:"nameTokens"`
	CompactName    string   `json:"compactName"`
	CandidateSlugs []string `json:"candidateSlugs"`
	CandidateIDs   []int64  `json:"candidateIds"`
	Genres         []string `json:"genres"`
	CompanySlugs   []string `json:"companySlugs"`
}
