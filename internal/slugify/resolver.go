// Package slugify guarantees globally unique game slugs, retrying with
// numeric suffixes under contention.
package slugify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/normalize"
)

const (
	// MaxResolvedLen caps resolved slugs including any collision suffix.
	// The base is truncated, never the suffix.
	MaxResolvedLen = 120

	// maxSuffixAttempts bounds the numeric-suffix search before falling back
	// to a timestamp suffix, guaranteeing termination under pathological
	// contention.
	maxSuffixAttempts = 50
)

// SlugChecker is the single lookup the resolver needs from the store.
type SlugChecker interface {
	SlugExists(ctx context.Context, slug string, excludeID *int64) (bool, error)
}

// Resolver resolves unique slug pairs for games.
type Resolver struct {
	repo SlugChecker
	now  func() time.Time
}

// NewResolver creates a new Resolver
func NewResolver(repo SlugChecker) *Resolver {
	return &Resolver{repo: repo, now: time.Now}
}

// Resolve produces a unique (slug, ogSlug) pair for a game. ownerID excludes
// the game's own row from uniqueness checks when updating. When normalization
// of a name yields nothing, the candidate falls back to game-<externalID>
// using the first available fallback identifier.
func (r *Resolver) Resolve(ctx context.Context, ownerID *int64, name, ogName string, fallbackIDs ...int64) (string, string, error) {
	base := candidateSlug(name, fallbackIDs)
	if base == "" {
		return "", "", fmt.Errorf("%w: no slug candidate for name %q", domain.ErrValidation, name)
	}

	slug, err := r.resolveUnique(ctx, ownerID, base)
	if err != nil {
		return "", "", err
	}

	ogBase := candidateSlug(ogName, fallbackIDs)
	if ogBase == "" || ogBase == base {
		// Same candidate resolves to the same suffix on the same row.
		return slug, slug, nil
	}

	ogSlug, err := r.resolveUnique(ctx, ownerID, ogBase)
	if err != nil {
		return "", "", err
	}
	return slug, ogSlug, nil
}

func candidateSlug(name string, fallbackIDs []int64) string {
	if s := normalize.Normalize(name).Slug; s != "" {
		return s
	}
	for _, id := range fallbackIDs {
		if id != 0 {
			return "game-" + strconv.FormatInt(id, 10)
		}
	}
	return ""
}

func (r *Resolver) resolveUnique(ctx context.Context, ownerID *int64, base string) (string, error) {
	for attempt := 1; attempt <= maxSuffixAttempts; attempt++ {
		candidate := base
		if attempt > 1 {
			candidate = withSuffix(base, strconv.Itoa(attempt))
		}

		taken, err := r.repo.SlugExists(ctx, candidate, ownerID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	// Unreachable under sane contention; the timestamp makes the slug unique
	// without further lookups.
	return withSuffix(base, strconv.FormatInt(r.now().UnixMilli(), 10)), nil
}

// withSuffix appends -suffix, truncating the base so the result stays within
// MaxResolvedLen.
func withSuffix(base, suffix string) string {
	room := MaxResolvedLen - len(suffix) - 1
	if len(base) > room {
		base = trimHyphens(base[:room])
	}
	return base + "-" + suffix
}

func trimHyphens(s string) string {
	for len(s) > 0 && s[len(s)-1] == '-' {
		s = s[:len(s)-1]
	}
	return s
}
