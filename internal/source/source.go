// Package source defines the boundary between the ingest pipeline and the
// upstream catalog fetchers. Implementations live outside this module; the
// pipeline only depends on these interfaces and the records they produce.
package source

import (
	"context"
	"errors"

	"github.com/ludocat/gamesync/internal/domain"
)

// ErrNotFound signals that the upstream catalog has no entry for the
// requested identifier. Callers treat it as a skip, not a failure.
var ErrNotFound = errors.New("source entry not found")

// ErrRateLimited is returned when the upstream throttles a fetch. It is the
// domain sentinel, re-exported so fetcher implementations and the retry
// classifier agree on one errors.Is target.
var ErrRateLimited = domain.ErrRateLimited

// Page is one batch of processed records plus the continuation token for the
// next fetch. An empty Next means the listing is exhausted.
type Page struct {
	Records []*domain.ProcessedRecord
	Next    string
}

// PrimaryCatalog lists and resolves entries from the authoritative store.
// Records it yields carry Source set to domain.SourceSteam.
type PrimaryCatalog interface {
	ListPage(ctx context.Context, cursor string, limit int) (*Page, error)
	GetByID(ctx context.Context, steamID int64) (*domain.ProcessedRecord, error)
}

// SecondaryCatalog lists and resolves entries from the supplementary store.
// SearchByName supports cross-reference resolution when the secondary record
// carries no competing identifier.
type SecondaryCatalog interface {
	ListPage(ctx context.Context, cursor string, limit int) (*Page, error)
	GetByID(ctx context.Context, rawgID int64) (*domain.ProcessedRecord, error)
	SearchByName(ctx context.Context, name string) ([]*domain.ProcessedRecord, error)
}

// Trailer is one enrichment hit from the trailer lookup service.
type Trailer struct {
	Provider string `json:"provider"`
	VideoID  string `json:"videoId"`
	URL      string `json:"url"`
}

// TrailerLookup resolves promotional videos for a game by name, with the
// primary-store identifier as a disambiguation hint when known.
type TrailerLookup interface {
	Lookup(ctx context.Context, name string, steamID *int64) ([]Trailer, error)
}
