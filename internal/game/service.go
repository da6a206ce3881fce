// Package game implements the entity upsert service: it decides whether an
// incoming catalog record updates an existing game or creates a new one,
// applies the source-precedence protection policy, and fans out child-entity
// sync (detail, releases, company roles) inside a single transaction.
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/logger"
	"github.com/ludocat/gamesync/internal/match"
	"github.com/ludocat/gamesync/internal/repository"
	"github.com/ludocat/gamesync/internal/slugify"
)

// Matcher is the matching-engine dependency, consulted only when every
// direct-key resolution step fails.
type Matcher interface {
	Evaluate(ctx context.Context, record *domain.ProcessedRecord) (*match.Result, error)
}

// Options control one upsert call.
type Options struct {
	// AllowCreate permits creating a new entity when nothing resolves.
	AllowCreate bool
	// ExistingID skips resolution entirely and updates the given entity.
	// Used by the orchestrator's unique-collision recovery path.
	ExistingID *int64
}

// Result reports what one upsert did.
type Result struct {
	Operation domain.RunItemOutcome // created or updated
	GameID    int64
	MatchedBy string // resolution step that found the entity, empty on create
}

// Service defines the interface for upsert operations
type Service interface {
	Upsert(ctx context.Context, record *domain.ProcessedRecord, opts Options) (*Result, error)
}

type service struct {
	repo      repository.Game
	matcher   Matcher
	slugs     *slugify.Resolver
	validate  *validator.Validate
	companies *lru.Cache[string, int64]
}

// NewService creates a new Service
func NewService(repo repository.Game, matcher Matcher) Service {
	cache, _ := lru.New[string, int64](companyCacheSize)
	return &service{
		repo:      repo,
		matcher:   matcher,
		slugs:     slugify.NewResolver(repo),
		validate:  validator.New(),
		companies: cache,
	}
}

// Upsert resolves the record against the store and either updates the resolved
// entity or creates a new one. The whole mutation runs in one transaction;
// constraint violations surface as typed errors for the orchestrator to
// classify.
func (s *service) Upsert(ctx context.Context, record *domain.ProcessedRecord, opts Options) (*Result, error) {
	if err := s.validate.Struct(record); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	if record.ExternalID() == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, ErrMsgMissingExternalID)
	}

	existing, matchedBy, err := s.resolve(ctx, record, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToResolveRecord, err)
	}

	if existing == nil {
		if !opts.AllowCreate {
			return nil, fmt.Errorf("%w: %s", domain.ErrCreateNotPermitted, record.Ref())
		}
		return s.create(ctx, record)
	}
	return s.update(ctx, existing, record, matchedBy)
}

// resolve walks the resolution chain: same-source id, competing-source id,
// slug, og-slug, candidate slugs and ids from the matching context, and
// finally the matching engine. Returns (nil, "", nil) when nothing resolves.
func (s *service) resolve(ctx context.Context, record *domain.ProcessedRecord, opts Options) (*domain.Game, string, error) {
	log := logger.FromContext(ctx)

	if opts.ExistingID != nil {
		g, err := s.repo.GetByID(ctx, *opts.ExistingID)
		if err != nil {
			return nil, "", err
		}
		return g, MatchedByCaller, nil
	}

	extID := record.ExternalID()

	g, err := s.repo.GetByExternalID(ctx, record.Source, *extID)
	if err == nil {
		return g, MatchedByExternalID, nil
	}
	if !errors.Is(err, domain.ErrGameNotFound) {
		return nil, "", err
	}

	if cid := record.CompetingID(); cid != nil {
		g, err := s.repo.GetByExternalID(ctx, record.CompetingSource(), *cid)
		if err == nil {
			if s.conflicts(g, record) {
				log.Warn("competing-id resolution skipped on identifier conflict",
					"ref", record.Ref(), "game_id", g.ID)
			} else {
				return g, MatchedByCompetingID, nil
			}
		} else if !errors.Is(err, domain.ErrGameNotFound) {
			return nil, "", err
		}
	}

	slugSteps := []struct {
		slug      string
		matchedBy string
	}{
		{record.Slug, MatchedBySlug},
		{record.OGSlug, MatchedByOGSlug},
	}
	for _, cs := range record.Matching.CandidateSlugs {
		slugSteps = append(slugSteps, struct {
			slug      string
			matchedBy string
		}{cs, MatchedByCandidate})
	}

	seen := map[string]bool{}
	for _, step := range slugSteps {
		if step.slug == "" || seen[step.slug] {
			continue
		}
		seen[step.slug] = true

		g, err := s.repo.GetBySlug(ctx, step.slug)
		if errors.Is(err, domain.ErrGameNotFound) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		if s.conflicts(g, record) {
			log.Warn("slug resolution skipped on identifier conflict",
				"ref", record.Ref(), "slug", step.slug, "game_id", g.ID)
			continue
		}
		return g, step.matchedBy, nil
	}

	for _, id := range record.Matching.CandidateIDs {
		g, err := s.repo.GetByID(ctx, id)
		if errors.Is(err, domain.ErrGameNotFound) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		if s.conflicts(g, record) {
			continue
		}
		return g, MatchedByCandidate, nil
	}

	result, err := s.matcher.Evaluate(ctx, record)
	if err != nil {
		return nil, "", err
	}
	if result.Outcome == domain.MatchMatched {
		return result.Game, MatchedByEngine, nil
	}

	return nil, "", nil
}

// conflicts reports whether the candidate already carries a different
// identifier for the record's own source. Updating it would steal the row.
func (s *service) conflicts(g *domain.Game, record *domain.ProcessedRecord) bool {
	own := g.ExternalID(record.Source)
	return own != nil && *own != *record.ExternalID()
}

func (s *service) create(ctx context.Context, record *domain.ProcessedRecord) (*Result, error) {
	log := logger.FromContext(ctx)

	ogName := record.OGName
	if ogName == "" {
		ogName = record.Name
	}

	slug, ogSlug, err := s.slugs.Resolve(ctx, nil, record.Name, ogName, fallbackIDs(record)...)
	if err != nil {
		return nil, err
	}

	g := &domain.Game{
		Name:          record.Name,
		OGName:        ogName,
		Slug:          slug,
		OGSlug:        ogSlug,
		SteamID:       record.SteamID,
		RawgID:        record.RawgID,
		ParentSteamID: record.ParentSteamID,
		ParentRawgID:  record.ParentRawgID,
		Type:          record.Type,
		ReleaseDate:   record.ReleaseDate,
		ReleaseRaw:    record.ReleaseRaw,
		ReleaseStatus: record.ReleaseStatus,
		Weight:        record.Weight,
		Followers:     record.Followers,
	}
	if g.Type == "" {
		g.Type = domain.GameTypeGame
	}
	if g.ReleaseStatus == "" {
		g.ReleaseStatus = domain.ReleaseStatusUnknown
	}

	err = s.withTx(ctx, func(tx repository.GameTx) error {
		if err := tx.Create(ctx, g); err != nil {
			return fmt.Errorf("%s: %w", ErrMsgFailedToCreateGame, err)
		}
		return s.syncChildren(ctx, tx, g, record)
	})
	if err != nil {
		return nil, err
	}

	log.Info("game created", "ref", record.Ref(), "game_id", g.ID, "slug", g.Slug)
	return &Result{Operation: domain.OutcomeCreated, GameID: g.ID}, nil
}

func (s *service) update(ctx context.Context, existing *domain.Game, record *domain.ProcessedRecord, matchedBy string) (*Result, error) {
	log := logger.FromContext(ctx)

	err := s.withTx(ctx, func(tx repository.GameTx) error {
		// Re-read inside the transaction; the resolution read ran outside it.
		g, err := tx.GetByID(ctx, existing.ID)
		if err != nil {
			return err
		}

		if protected(g, record) {
			if err := tx.UpdateExternalIDs(ctx, g.ID, record.Source, record.RawgID, record.ParentRawgID); err != nil {
				return fmt.Errorf("%s: %w", ErrMsgFailedToUpdateGame, err)
			}
			log.Info("secondary-source update restricted to identifiers",
				"ref", record.Ref(),
				"game_id", g.ID,
				"discarded", discardedFields(record))
			return nil
		}

		applyRecord(g, record)
		if err := tx.Update(ctx, g); err != nil {
			return fmt.Errorf("%s: %w", ErrMsgFailedToUpdateGame, err)
		}
		return s.syncChildren(ctx, tx, g, record)
	})
	if err != nil {
		return nil, err
	}

	log.Info("game updated", "ref", record.Ref(), "game_id", existing.ID, "matched_by", matchedBy)
	return &Result{Operation: domain.OutcomeUpdated, GameID: existing.ID, MatchedBy: matchedBy}, nil
}

// protected reports whether the protection policy applies: the stored entity
// is owned by the primary catalog and the incoming record is secondary-sourced.
// Only identifier fields may then be written.
func protected(g *domain.Game, record *domain.ProcessedRecord) bool {
	return g.SteamID != nil && record.Source == domain.SourceRAWG
}

// applyRecord copies the record's populated fields onto the stored game.
// Slugs stay stable across updates; identifiers only ever gain values here.
func applyRecord(g *domain.Game, record *domain.ProcessedRecord) {
	if record.Name != "" {
		g.Name = record.Name
	}
	if record.OGName != "" {
		g.OGName = record.OGName
	}
	g.SetExternalID(record.Source, record.ExternalID())
	if cid := record.CompetingID(); cid != nil {
		g.SetExternalID(record.CompetingSource(), cid)
	}
	if record.ParentSteamID != nil {
		g.ParentSteamID = record.ParentSteamID
	}
	if record.ParentRawgID != nil {
		g.ParentRawgID = record.ParentRawgID
	}
	if record.Type != "" {
		g.Type = record.Type
	}
	if record.ReleaseDate != nil {
		g.ReleaseDate = record.ReleaseDate
	}
	if record.ReleaseRaw != "" {
		g.ReleaseRaw = record.ReleaseRaw
	}
	if record.ReleaseStatus != "" {
		g.ReleaseStatus = record.ReleaseStatus
	}
	g.Weight = record.Weight
	g.Followers = record.Followers
}

// discardedFields names the incoming fields dropped by the protection policy,
// for the audit log.
func discardedFields(record *domain.ProcessedRecord) []string {
	var fields []string
	if record.Weight > 0 {
		fields = append(fields, "weight")
	}
	if record.Followers > 0 {
		fields = append(fields, "followers")
	}
	if record.ReleaseDate != nil || record.ReleaseRaw != "" {
		fields = append(fields, "release_date")
	}
	if record.ReleaseStatus != "" {
		fields = append(fields, "release_status")
	}
	if record.Detail != nil {
		fields = append(fields, "detail")
	}
	if len(record.Releases) > 0 {
		fields = append(fields, "releases")
	}
	if len(record.Companies) > 0 {
		fields = append(fields, "companies")
	}
	return fields
}

func fallbackIDs(record *domain.ProcessedRecord) []int64 {
	var ids []int64
	if record.SteamID != nil {
		ids = append(ids, *record.SteamID)
	}
	if record.RawgID != nil {
		ids = append(ids, *record.RawgID)
	}
	return ids
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *service) withTx(ctx context.Context, fn func(tx repository.GameTx) error) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToBeginTx, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logger.FromContext(ctx).Error("rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}
