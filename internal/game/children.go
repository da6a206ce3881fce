package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/logger"
	"github.com/ludocat/gamesync/internal/normalize"
	"github.com/ludocat/gamesync/internal/repository"
)

// syncChildren fans out detail, release, and company sync for one game within
// the caller's transaction. For DLC the whole fan-out is gated on the parent's
// popularity; low-weight DLC content is suppressed, not partially written.
func (s *service) syncChildren(ctx context.Context, tx repository.GameTx, g *domain.Game, record *domain.ProcessedRecord) error {
	log := logger.FromContext(ctx)

	if g.IsDLC() {
		ok, err := s.parentAllowsContent(ctx, record)
		if err != nil {
			return err
		}
		if !ok {
			log.Info("dlc child content suppressed", "ref", record.Ref(), "game_id", g.ID)
			return nil
		}
	}

	if err := s.syncDetail(ctx, tx, g, record); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToSyncDetail, err)
	}
	if err := s.syncReleases(ctx, tx, g, record); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToSyncRelease, err)
	}
	if err := s.syncCompanies(ctx, tx, g, record); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToSyncCompany, err)
	}
	return nil
}

// parentAllowsContent checks the DLC content-visibility rule: child content is
// persisted only when the parent game exists and carries weight at or above
// the detail floor. A DLC without a resolvable parent is suppressed.
func (s *service) parentAllowsContent(ctx context.Context, record *domain.ProcessedRecord) (bool, error) {
	parentID := record.ParentSteamID
	parentSource := domain.SourceSteam
	if parentID == nil {
		parentID = record.ParentRawgID
		parentSource = domain.SourceRAWG
	}
	if parentID == nil {
		return false, nil
	}

	parent, err := s.repo.GetByExternalID(ctx, parentSource, *parentID)
	if errors.Is(err, domain.ErrGameNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return parent.Weight >= domain.MinDetailWeight, nil
}

// syncDetail upserts the detail blob. Non-DLC games below the popularity floor
// get no detail row; that keeps the detail table bounded to games anyone will
// look at.
func (s *service) syncDetail(ctx context.Context, tx repository.GameTx, g *domain.Game, record *domain.ProcessedRecord) error {
	if record.Detail == nil {
		return nil
	}
	if !g.IsDLC() && g.Weight < domain.MinDetailWeight {
		logger.FromContext(ctx).Debug("detail skipped below weight floor",
			"ref", record.Ref(), "game_id", g.ID, "weight", g.Weight)
		return nil
	}

	in := record.Detail
	screenshots := in.Screenshots
	if len(screenshots) > domain.MaxScreenshots {
		screenshots = screenshots[:domain.MaxScreenshots]
	}

	detail := &domain.GameDetail{
		GameID:      g.ID,
		Screenshots: screenshots,
		Description: in.Description,
		Genres:      in.Genres,
		Tags:        in.Tags,
		Languages:   in.Languages,
		Metacritic:  in.Metacritic,
		Mature:      in.Mature,
		SearchText:  buildSearchText(g, in),
	}
	return tx.UpsertDetail(ctx, detail)
}

// buildSearchText flattens the searchable fields into one lowercase haystack.
func buildSearchText(g *domain.Game, in *domain.DetailPayload) string {
	parts := []string{g.Name, g.OGName}
	parts = append(parts, in.Genres...)
	parts = append(parts, in.Tags...)
	return strings.ToLower(strings.Join(parts, " "))
}

// syncReleases upserts store releases by natural key. The primary catalog is
// authoritative for PC, so PC releases arriving from the secondary source are
// rejected outright.
func (s *service) syncReleases(ctx context.Context, tx repository.GameTx, g *domain.Game, record *domain.ProcessedRecord) error {
	log := logger.FromContext(ctx)

	for _, in := range record.Releases {
		if record.Source == domain.SourceRAWG && in.Platform == domain.PlatformPC {
			log.Debug("secondary-source pc release rejected",
				"ref", record.Ref(), "game_id", g.ID, "store", in.Store)
			continue
		}

		release := &domain.GameRelease{
			GameID:          g.ID,
			Platform:        in.Platform,
			Store:           in.Store,
			StoreAppID:      in.StoreAppID,
			URL:             in.URL,
			Region:          in.Region,
			ReleaseDate:     in.ReleaseDate,
			ReleaseStatus:   in.ReleaseStatus,
			PriceCents:      in.PriceCents,
			Currency:        in.Currency,
			Followers:       in.Followers,
			PositiveReviews: in.PositiveReviews,
			NegativeReviews: in.NegativeReviews,
		}
		if release.ReleaseStatus == "" {
			release.ReleaseStatus = domain.ReleaseStatusUnknown
		}
		if err := tx.UpsertRelease(ctx, release); err != nil {
			return err
		}
	}
	return nil
}

// syncCompanies resolves each company by slug-or-name, creating it when
// missing, and upserts the (game, company, role) join row. Resolved ids of
// pre-existing companies are cached; freshly created ids are not, since the
// surrounding transaction may still roll back.
func (s *service) syncCompanies(ctx context.Context, tx repository.GameTx, g *domain.Game, record *domain.ProcessedRecord) error {
	for _, in := range record.Companies {
		slug := in.Slug
		if slug == "" {
			slug = normalize.Normalize(in.Name).Slug
		}
		if slug == "" {
			continue
		}

		companyID, err := s.resolveCompany(ctx, tx, slug, in.Name)
		if err != nil {
			return err
		}

		role := domain.CompanyRole{GameID: g.ID, CompanyID: companyID, Role: in.Role}
		if err := tx.UpsertCompanyRole(ctx, role); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) resolveCompany(ctx context.Context, tx repository.GameTx, slug, name string) (int64, error) {
	key := strings.ToLower(slug)
	if id, ok := s.companies.Get(key); ok {
		return id, nil
	}

	company, err := tx.GetCompanyBySlugOrName(ctx, slug, name)
	if err == nil {
		s.companies.Add(key, company.ID)
		return company.ID, nil
	}
	if !errors.Is(err, domain.ErrCompanyNotFound) {
		return 0, err
	}

	company = &domain.Company{Name: name, Slug: slug}
	if err := tx.CreateCompany(ctx, company); err != nil {
		return 0, err
	}
	return company.ID, nil
}
