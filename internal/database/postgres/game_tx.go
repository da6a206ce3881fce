package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ludocat/gamesync/internal/database"
	"github.com/ludocat/gamesync/internal/domain"
)

// gameTx implements repository.GameTx on a single pgx transaction.
type gameTx struct {
	tx pgx.Tx
}

func (t *gameTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToCommitTransaction, database.MapError(err))
	}
	return nil
}

func (t *gameTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func (t *gameTx) GetByID(ctx context.Context, id int64) (*domain.Game, error) {
	return getGameByID(ctx, t.tx, id)
}

func (t *gameTx) GetByExternalID(ctx context.Context, source string, externalID int64) (*domain.Game, error) {
	return getGameByExternalID(ctx, t.tx, source, externalID)
}

func (t *gameTx) GetBySlug(ctx context.Context, slug string) (*domain.Game, error) {
	return getGameBySlug(ctx, t.tx, slug)
}

func (t *gameTx) SlugExists(ctx context.Context, slug string, excludeID *int64) (bool, error) {
	return slugExists(ctx, t.tx, slug, excludeID)
}

func (t *gameTx) Create(ctx context.Context, game *domain.Game) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO games (
			name, og_name, slug, og_slug, steam_id, rawg_id,
			parent_steam_id, parent_rawg_id, game_type, release_date,
			release_raw, release_status, weight, followers
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`,
		game.Name, game.OGName, game.Slug, game.OGSlug, game.SteamID, game.RawgID,
		game.ParentSteamID, game.ParentRawgID, game.Type, game.ReleaseDate,
		game.ReleaseRaw, game.ReleaseStatus, game.Weight, game.Followers,
	).Scan(&game.ID, &game.CreatedAt, &game.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToInsertGame, database.MapError(err))
	}
	return nil
}

func (t *gameTx) Update(ctx context.Context, game *domain.Game) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE games SET
			name = $2, og_name = $3, slug = $4, og_slug = $5,
			steam_id = $6, rawg_id = $7, parent_steam_id = $8, parent_rawg_id = $9,
			game_type = $10, release_date = $11, release_raw = $12,
			release_status = $13, weight = $14, followers = $15, updated_at = NOW()
		WHERE id = $1`,
		game.ID, game.Name, game.OGName, game.Slug, game.OGSlug,
		game.SteamID, game.RawgID, game.ParentSteamID, game.ParentRawgID,
		game.Type, game.ReleaseDate, game.ReleaseRaw,
		game.ReleaseStatus, game.Weight, game.Followers)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpdateGame, database.MapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGameNotFound
	}
	return nil
}

func (t *gameTx) UpdateSlugs(ctx context.Context, gameID int64, slug, ogSlug string) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE games SET slug = $2, og_slug = $3, updated_at = NOW() WHERE id = $1`,
		gameID, slug, ogSlug)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpdateSlugs, database.MapError(err))
	}
	return nil
}

// UpdateExternalIDs writes only the source identifier and parent identifier
// for one source system. This is the whole write set permitted by the
// source-precedence protection policy.
func (t *gameTx) UpdateExternalIDs(ctx context.Context, gameID int64, source string, externalID, parentID *int64) error {
	idCol, ok := sourceIDColumn(source)
	if !ok {
		return fmt.Errorf("%s: %s", ErrMsgUnknownSource, source)
	}
	parentCol, _ := sourceParentColumn(source)

	_, err := t.tx.Exec(ctx,
		`UPDATE games SET `+idCol+` = $2, `+parentCol+` = $3, updated_at = NOW() WHERE id = $1`,
		gameID, externalID, parentID)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpdateExternalIDs, database.MapError(err))
	}
	return nil
}

func (t *gameTx) ClearExternalID(ctx context.Context, gameID int64, source string) error {
	col, ok := sourceIDColumn(source)
	if !ok {
		return fmt.Errorf("%s: %s", ErrMsgUnknownSource, source)
	}
	_, err := t.tx.Exec(ctx,
		`UPDATE games SET `+col+` = NULL, updated_at = NOW() WHERE id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpdateExternalIDs, database.MapError(err))
	}
	return nil
}

func (t *gameTx) SetExternalID(ctx context.Context, gameID int64, source string, externalID int64) error {
	col, ok := sourceIDColumn(source)
	if !ok {
		return fmt.Errorf("%s: %s", ErrMsgUnknownSource, source)
	}
	_, err := t.tx.Exec(ctx,
		`UPDATE games SET `+col+` = $2, updated_at = NOW() WHERE id = $1`, gameID, externalID)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpdateExternalIDs, database.MapError(err))
	}
	return nil
}

func (t *gameTx) Delete(ctx context.Context, gameID int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM games WHERE id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToDeleteGame, database.MapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGameNotFound
	}
	return nil
}

// LockPair takes FOR UPDATE locks on both rows in ascending id order so that
// concurrent merges of the same pair serialize instead of deadlocking.
func (t *gameTx) LockPair(ctx context.Context, firstID, secondID int64) (*domain.Game, *domain.Game, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1 OR id = $2 ORDER BY id FOR UPDATE`,
		firstID, secondID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", ErrMsgFailedToLockGames, database.MapError(err))
	}
	defer rows.Close()

	locked := make(map[int64]*domain.Game, 2)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", ErrMsgFailedToLockGames, err)
		}
		locked[g.ID] = g
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", ErrMsgFailedToLockGames, database.MapError(err))
	}

	first, second := locked[firstID], locked[secondID]
	if first == nil || second == nil {
		return nil, nil, domain.ErrMergeParticipant
	}
	return first, second, nil
}

func (t *gameTx) UpsertDetail(ctx context.Context, detail *domain.GameDetail) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO game_details (
			game_id, screenshots, description, genres, tags, languages,
			metacritic, mature, search_text, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (game_id) DO UPDATE SET
			screenshots = EXCLUDED.screenshots,
			description = EXCLUDED.description,
			genres = EXCLUDED.genres,
			tags = EXCLUDED.tags,
			languages = EXCLUDED.languages,
			metacritic = EXCLUDED.metacritic,
			mature = EXCLUDED.mature,
			search_text = EXCLUDED.search_text,
			updated_at = NOW()`,
		detail.GameID, detail.Screenshots, detail.Description, detail.Genres,
		detail.Tags, detail.Languages, detail.Metacritic, detail.Mature,
		detail.SearchText)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpsertDetail, database.MapError(err))
	}
	return nil
}

func (t *gameTx) DeleteDetail(ctx context.Context, gameID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM game_details WHERE game_id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToDeleteDetail, database.MapError(err))
	}
	return nil
}

func (t *gameTx) ListReleases(ctx context.Context, gameID int64) ([]domain.GameRelease, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, game_id, platform, store, store_app_id, url, region,
		       release_date, release_status, price_cents, currency,
		       followers, positive_reviews, negative_reviews, updated_at
		FROM game_releases WHERE game_id = $1 ORDER BY id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListReleases, database.MapError(err))
	}
	defer rows.Close()

	var releases []domain.GameRelease
	for rows.Next() {
		var rel domain.GameRelease
		err := rows.Scan(
			&rel.ID, &rel.GameID, &rel.Platform, &rel.Store, &rel.StoreAppID,
			&rel.URL, &rel.Region, &rel.ReleaseDate, &rel.ReleaseStatus,
			&rel.PriceCents, &rel.Currency, &rel.Followers,
			&rel.PositiveReviews, &rel.NegativeReviews, &rel.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListReleases, err)
		}
		releases = append(releases, rel)
	}
	return releases, rows.Err()
}

func (t *gameTx) UpsertRelease(ctx context.Context, release *domain.GameRelease) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO game_releases (
			game_id, platform, store, store_app_id, url, region,
			release_date, release_status, price_cents, currency,
			followers, positive_reviews, negative_reviews, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (game_id, platform, store, store_app_id) DO UPDATE SET
			url = EXCLUDED.url,
			region = EXCLUDED.region,
			release_date = EXCLUDED.release_date,
			release_status = EXCLUDED.release_status,
			price_cents = EXCLUDED.price_cents,
			currency = EXCLUDED.currency,
			followers = EXCLUDED.followers,
			positive_reviews = EXCLUDED.positive_reviews,
			negative_reviews = EXCLUDED.negative_reviews,
			updated_at = NOW()
		RETURNING id`,
		release.GameID, release.Platform, release.Store, release.StoreAppID,
		release.URL, release.Region, release.ReleaseDate, release.ReleaseStatus,
		release.PriceCents, release.Currency, release.Followers,
		release.PositiveReviews, release.NegativeReviews,
	).Scan(&release.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpsertRelease, database.MapError(err))
	}
	return nil
}

func (t *gameTx) DeleteRelease(ctx context.Context, releaseID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM game_releases WHERE id = $1`, releaseID)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToDeleteRelease, database.MapError(err))
	}
	return nil
}

// ReassignReleases moves the given release rows to another game and returns
// how many rows actually moved, so the merge procedure can verify the count.
func (t *gameTx) ReassignReleases(ctx context.Context, releaseIDs []int64, toGameID int64) (int64, error) {
	if len(releaseIDs) == 0 {
		return 0, nil
	}
	tag, err := t.tx.Exec(ctx,
		`UPDATE game_releases SET game_id = $1, updated_at = NOW() WHERE id = ANY($2)`,
		toGameID, releaseIDs)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgFailedToReassignReleases, database.MapError(err))
	}
	return tag.RowsAffected(), nil
}

func (t *gameTx) GetCompanyBySlugOrName(ctx context.Context, slug, name string) (*domain.Company, error) {
	var c domain.Company
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, slug FROM companies
		WHERE ($1 != '' AND slug = $1) OR LOWER(name) = LOWER($2)
		ORDER BY (slug = $1) DESC
		LIMIT 1`, slug, name).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetCompany, database.MapError(err))
	}
	return &c, nil
}

func (t *gameTx) CreateCompany(ctx context.Context, company *domain.Company) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO companies (name, slug) VALUES ($1, $2) RETURNING id`,
		company.Name, company.Slug).Scan(&company.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToInsertCompany, database.MapError(err))
	}
	return nil
}

func (t *gameTx) UpsertCompanyRole(ctx context.Context, role domain.CompanyRole) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO game_companies (game_id, company_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (game_id, company_id, role) DO NOTHING`,
		role.GameID, role.CompanyID, role.Role)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpsertCompanyRole, database.MapError(err))
	}
	return nil
}
