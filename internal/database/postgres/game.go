package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ludocat/gamesync/internal/database"
	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/repository"
)

const gameColumns = `id, name, og_name, slug, og_slug, steam_id, rawg_id,
	parent_steam_id, parent_rawg_id, game_type, release_date, release_raw,
	release_status, weight, followers, created_at, updated_at`

// GameRepository implements repository.Game against PostgreSQL.
type GameRepository struct {
	db *pgxpool.Pool
}

// NewGameRepository creates a new GameRepository
func NewGameRepository(db *pgxpool.Pool) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) GetByID(ctx context.Context, id int64) (*domain.Game, error) {
	return getGameByID(ctx, r.db, id)
}

func (r *GameRepository) GetByExternalID(ctx context.Context, source string, externalID int64) (*domain.Game, error) {
	return getGameByExternalID(ctx, r.db, source, externalID)
}

func (r *GameRepository) GetBySlug(ctx context.Context, slug string) (*domain.Game, error) {
	return getGameBySlug(ctx, r.db, slug)
}

func (r *GameRepository) SlugExists(ctx context.Context, slug string, excludeID *int64) (bool, error) {
	return slugExists(ctx, r.db, slug, excludeID)
}

// FindMatchCandidates retrieves a bounded candidate set for the matching
// engine: games carrying the competing source's identifier but not this
// one's, excluding DLC, prefiltered on slug or required name tokens, and
// bounded to the release-date window when both sides have a date.
func (r *GameRepository) FindMatchCandidates(ctx context.Context, q repository.CandidateQuery) ([]domain.Game, error) {
	ownCol, ok := sourceIDColumn(q.Source)
	if !ok {
		return nil, fmt.Errorf("%s: %s", ErrMsgUnknownSource, q.Source)
	}
	competingCol, _ := sourceIDColumn(competingSource(q.Source))

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conds = append(conds,
		competingCol+" IS NOT NULL",
		ownCol+" IS NULL",
		"game_type != 'dlc'",
	)

	var nameConds []string
	if q.Slug != "" {
		nameConds = append(nameConds, "LOWER(slug) = LOWER("+arg(q.Slug)+")")
	}
	if len(q.RequiredTokens) > 0 {
		var tokenConds []string
		for _, tok := range q.RequiredTokens {
			tokenConds = append(tokenConds, "name ILIKE "+arg("%"+tok+"%"))
		}
		nameConds = append(nameConds, "("+strings.Join(tokenConds, " AND ")+")")
	}
	if len(nameConds) == 0 {
		return []domain.Game{}, nil
	}
	conds = append(conds, "("+strings.Join(nameConds, " OR ")+")")

	if q.ReleaseDate != nil && q.DateWindow > 0 {
		lo := q.ReleaseDate.Add(-q.DateWindow)
		hi := q.ReleaseDate.Add(q.DateWindow)
		conds = append(conds, fmt.Sprintf(
			"(release_date IS NULL OR release_date BETWEEN %s AND %s)", arg(lo), arg(hi)))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM games WHERE %s ORDER BY weight DESC, id ASC LIMIT %s`,
		gameColumns, strings.Join(conds, " AND "), arg(limit))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToQueryCandidates, database.MapError(err))
	}
	defer rows.Close()

	var games []domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToQueryCandidates, err)
		}
		games = append(games, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToQueryCandidates, database.MapError(err))
	}
	return games, nil
}

// ListCompanyNames returns the distinct company names attached to a game.
func (r *GameRepository) ListCompanyNames(ctx context.Context, gameID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT c.name
		FROM companies c
		JOIN game_companies gc ON gc.company_id = c.id
		WHERE gc.game_id = $1`, gameID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListCompanyNames, database.MapError(err))
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListCompanyNames, err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// GetDetail returns the detail row for a game, or nil when none exists.
func (r *GameRepository) GetDetail(ctx context.Context, gameID int64) (*domain.GameDetail, error) {
	var d domain.GameDetail
	err := r.db.QueryRow(ctx, `
		SELECT game_id, screenshots, description, genres, tags, languages,
		       metacritic, mature, search_text, updated_at
		FROM game_details WHERE game_id = $1`, gameID).Scan(
		&d.GameID, &d.Screenshots, &d.Description, &d.Genres, &d.Tags,
		&d.Languages, &d.Metacritic, &d.Mature, &d.SearchText, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetDetail, database.MapError(err))
	}
	return &d, nil
}

// BeginTx starts a transaction scoped to one upsert or merge.
func (r *GameRepository) BeginTx(ctx context.Context) (repository.GameTx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, database.MapError(err))
	}
	return &gameTx{tx: tx}, nil
}

// ---- Shared query helpers (pool and tx paths) ----

func scanGame(row pgx.Row) (*domain.Game, error) {
	var g domain.Game
	err := row.Scan(
		&g.ID, &g.Name, &g.OGName, &g.Slug, &g.OGSlug, &g.SteamID, &g.RawgID,
		&g.ParentSteamID, &g.ParentRawgID, &g.Type, &g.ReleaseDate, &g.ReleaseRaw,
		&g.ReleaseStatus, &g.Weight, &g.Followers, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func getGameByID(ctx context.Context, q dbtx, id int64) (*domain.Game, error) {
	g, err := scanGame(q.QueryRow(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGameNotFound
		}
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetGame, database.MapError(err))
	}
	return g, nil
}

func getGameByExternalID(ctx context.Context, q dbtx, source string, externalID int64) (*domain.Game, error) {
	col, ok := sourceIDColumn(source)
	if !ok {
		return nil, fmt.Errorf("%s: %s", ErrMsgUnknownSource, source)
	}
	g, err := scanGame(q.QueryRow(ctx,
		`SELECT `+gameColumns+` FROM games WHERE `+col+` = $1`, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGameNotFound
		}
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetGame, database.MapError(err))
	}
	return g, nil
}

// getGameBySlug matches either slug column case-insensitively, preferring a
// hit on the display slug.
func getGameBySlug(ctx context.Context, q dbtx, slug string) (*domain.Game, error) {
	g, err := scanGame(q.QueryRow(ctx, `
		SELECT `+gameColumns+` FROM games
		WHERE LOWER(slug) = LOWER($1) OR LOWER(og_slug) = LOWER($1)
		ORDER BY (LOWER(slug) = LOWER($1)) DESC
		LIMIT 1`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGameNotFound
		}
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetGame, database.MapError(err))
	}
	return g, nil
}

func slugExists(ctx context.Context, q dbtx, slug string, excludeID *int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM games
			WHERE (LOWER(slug) = LOWER($1) OR LOWER(og_slug) = LOWER($1))
			  AND ($2::bigint IS NULL OR id != $2)
		)`, slug, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", ErrMsgFailedToCheckSlug, database.MapError(err))
	}
	return exists, nil
}

func competingSource(source string) string {
	if source == domain.SourceSteam {
		return domain.SourceRAWG
	}
	return domain.SourceSteam
}
