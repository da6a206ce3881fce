// Package merge implements the safe-merge procedure that collapses two
// duplicate game entities into one. The whole merge runs in a single
// transaction with both rows locked, so a failure at any step leaves the
// store untouched.
package merge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/logger"
	"github.com/ludocat/gamesync/internal/metrics"
	"github.com/ludocat/gamesync/internal/normalize"
	"github.com/ludocat/gamesync/internal/repository"
)

// Report describes what one merge did, or would do in a dry run.
type Report struct {
	KeeperID int64 `json:"keeperId"`
	LoserID  int64 `json:"loserId"`

	Reassigned int `json:"reassigned"` // loser releases moved to the keeper
	Duplicates int `json:"duplicates"` // loser releases dropped as duplicates
	Upgraded   int `json:"upgraded"`   // keeper releases replaced by a more complete duplicate

	TransferredIDs []string `json:"transferredIds,omitempty"` // sources whose id moved to the keeper
	SlugRestored   string   `json:"slugRestored,omitempty"`   // de-suffixed keeper slug, when applied
	DryRun         bool     `json:"dryRun,omitempty"`
}

// Service defines the interface for merge operations
type Service interface {
	Merge(ctx context.Context, keeperID, loserID int64) (*Report, error)
	MergeByExternalIDs(ctx context.Context, steamID, rawgID int64) (*Report, error)
	DryRun(ctx context.Context, keeperID, loserID int64) (*Report, error)
}

type service struct {
	repo repository.Game
}

// NewService creates a new Service
func NewService(repo repository.Game) Service {
	return &service{repo: repo}
}

// Merge collapses loser into keeper: releases are partitioned by natural key
// and reassigned or dropped, the loser's detail row is deleted, external
// identifiers move null-first, and the loser row is removed.
func (s *service) Merge(ctx context.Context, keeperID, loserID int64) (*Report, error) {
	return s.merge(ctx, keeperID, loserID, false)
}

// DryRun computes the merge report without mutating anything.
func (s *service) DryRun(ctx context.Context, keeperID, loserID int64) (*Report, error) {
	return s.merge(ctx, keeperID, loserID, true)
}

// MergeByExternalIDs resolves the steam-owned game as keeper and the
// rawg-owned game as loser, then merges them.
func (s *service) MergeByExternalIDs(ctx context.Context, steamID, rawgID int64) (*Report, error) {
	keeper, err := s.repo.GetByExternalID(ctx, domain.SourceSteam, steamID)
	if err != nil {
		return nil, fmt.Errorf("%w: steam id %d: %v", domain.ErrMergeParticipant, steamID, err)
	}
	loser, err := s.repo.GetByExternalID(ctx, domain.SourceRAWG, rawgID)
	if err != nil {
		return nil, fmt.Errorf("%w: rawg id %d: %v", domain.ErrMergeParticipant, rawgID, err)
	}
	if keeper.ID == loser.ID {
		return nil, fmt.Errorf("%w: id %d", domain.ErrMergeSameGame, keeper.ID)
	}
	return s.Merge(ctx, keeper.ID, loser.ID)
}

func (s *service) merge(ctx context.Context, keeperID, loserID int64, dryRun bool) (*Report, error) {
	log := logger.FromContext(ctx)

	if keeperID == loserID {
		return nil, fmt.Errorf("%w: id %d", domain.ErrMergeSameGame, keeperID)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error("merge rollback failed", "error", rbErr)
			}
		}
	}()

	keeper, loser, err := tx.LockPair(ctx, keeperID, loserID)
	if err != nil {
		return nil, err
	}

	report := &Report{KeeperID: keeperID, LoserID: loserID, DryRun: dryRun}

	if err := s.mergeReleases(ctx, tx, keeper, loser, report, dryRun); err != nil {
		return nil, err
	}

	for _, source := range []string{domain.SourceSteam, domain.SourceRAWG} {
		if keeper.ExternalID(source) == nil && loser.ExternalID(source) != nil {
			report.TransferredIDs = append(report.TransferredIDs, source)
			if dryRun {
				continue
			}
			id := *loser.ExternalID(source)
			// Null-first: the loser's id must be released before the keeper
			// claims it, or the unique index rejects the transfer.
			if err := tx.ClearExternalID(ctx, loser.ID, source); err != nil {
				return nil, err
			}
			if err := tx.SetExternalID(ctx, keeper.ID, source, id); err != nil {
				return nil, err
			}
		}
	}

	if !dryRun {
		if err := tx.DeleteDetail(ctx, loser.ID); err != nil {
			return nil, err
		}
		if err := tx.Delete(ctx, loser.ID); err != nil {
			return nil, err
		}
	}

	if restored, ogRestored, err := s.restoreSlugs(ctx, tx, keeper, loser, dryRun); err != nil {
		return nil, err
	} else if restored != "" || ogRestored != "" {
		report.SlugRestored = restored
		if restored == "" {
			report.SlugRestored = ogRestored
		}
	}

	if dryRun {
		return report, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	metrics.MergesTotal.Inc()
	metrics.ReleasesReassigned.Add(float64(report.Reassigned))

	log.Info("games merged",
		"keeper_id", keeperID,
		"loser_id", loserID,
		"reassigned", report.Reassigned,
		"duplicates", report.Duplicates,
		"transferred_ids", report.TransferredIDs)
	return report, nil
}

// mergeReleases partitions the loser's releases by natural key. Duplicates of
// keeper releases are dropped (upgrading the keeper's copy when the loser's is
// more complete); unique releases are reassigned with count verification.
func (s *service) mergeReleases(ctx context.Context, tx repository.GameTx, keeper, loser *domain.Game, report *Report, dryRun bool) error {
	keeperReleases, err := tx.ListReleases(ctx, keeper.ID)
	if err != nil {
		return err
	}
	loserReleases, err := tx.ListReleases(ctx, loser.ID)
	if err != nil {
		return err
	}

	byKey := make(map[domain.ReleaseKey]*domain.GameRelease, len(keeperReleases))
	for i := range keeperReleases {
		byKey[keeperReleases[i].Key()] = &keeperReleases[i]
	}

	var uniqueIDs []int64
	for i := range loserReleases {
		lr := &loserReleases[i]
		kept, dup := byKey[lr.Key()]
		if !dup {
			uniqueIDs = append(uniqueIDs, lr.ID)
			continue
		}

		report.Duplicates++
		if lr.MoreCompleteThan(kept) {
			report.Upgraded++
			if !dryRun {
				upgraded := *lr
				upgraded.ID = kept.ID
				upgraded.GameID = keeper.ID
				if err := tx.UpsertRelease(ctx, &upgraded); err != nil {
					return err
				}
			}
		}
		if !dryRun {
			if err := tx.DeleteRelease(ctx, lr.ID); err != nil {
				return err
			}
		}
	}

	report.Reassigned = len(uniqueIDs)
	if dryRun || len(uniqueIDs) == 0 {
		return nil
	}

	moved, err := tx.ReassignReleases(ctx, uniqueIDs, keeper.ID)
	if err != nil {
		return err
	}
	if moved != int64(len(uniqueIDs)) {
		return fmt.Errorf("%w: expected %d moved %d", domain.ErrMergeCountMismatch, len(uniqueIDs), moved)
	}
	return nil
}

// restoreSlugs de-suffixes the keeper's slugs when the loser's removal freed
// the natural base. Only collision suffixes are stripped: the base must equal
// the slug the keeper's own name normalizes to, so titles that genuinely end
// in a number keep theirs.
func (s *service) restoreSlugs(ctx context.Context, tx repository.GameTx, keeper, loser *domain.Game, dryRun bool) (string, string, error) {
	slug := desuffixCandidate(keeper.Slug, normalize.Normalize(keeper.Name).Slug)
	ogSlug := desuffixCandidate(keeper.OGSlug, normalize.Normalize(keeper.OGName).Slug)
	if slug == "" && ogSlug == "" {
		return "", "", nil
	}

	// A base counts as free when nobody holds it, or only the merge
	// participants do. In a dry run the loser row still exists, so excluding
	// it here keeps the report identical to what the real merge would do.
	check := func(candidate string) (bool, error) {
		if candidate == "" {
			return false, nil
		}
		g, err := tx.GetBySlug(ctx, candidate)
		if errors.Is(err, domain.ErrGameNotFound) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		return g.ID == keeper.ID || g.ID == loser.ID, nil
	}

	ok, err := check(slug)
	if err != nil {
		return "", "", err
	}
	if !ok {
		slug = ""
	}
	ok, err = check(ogSlug)
	if err != nil {
		return "", "", err
	}
	if !ok {
		ogSlug = ""
	}
	if slug == "" && ogSlug == "" {
		return "", "", nil
	}

	newSlug := keeper.Slug
	if slug != "" {
		newSlug = slug
	}
	newOGSlug := keeper.OGSlug
	if ogSlug != "" {
		newOGSlug = ogSlug
	}

	if !dryRun {
		if err := tx.UpdateSlugs(ctx, keeper.ID, newSlug, newOGSlug); err != nil {
			return "", "", err
		}
	}
	return slug, ogSlug, nil
}

// desuffixCandidate returns the natural base when current is that base plus a
// numeric collision suffix, otherwise "".
func desuffixCandidate(current, natural string) string {
	if natural == "" || current == natural {
		return ""
	}
	if !strings.HasPrefix(current, natural+"-") {
		return ""
	}
	suffix := current[len(natural)+1:]
	if n, err := strconv.Atoi(suffix); err != nil || n < 2 {
		return ""
	}
	return natural
}
