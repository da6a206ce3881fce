package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/logger"
)

// dbtx is the subset of pgx operations shared by *pgxpool.Pool and pgx.Tx,
// letting query helpers serve both transactional and plain paths.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SafeRollback rolls back a transaction and logs any error that isn't ErrTxClosed
func SafeRollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logger.FromContext(ctx).Error("Failed to rollback transaction", "error", err)
	}
}

// sourceIDColumn maps a source system to its identifier column.
func sourceIDColumn(source string) (string, bool) {
	switch source {
	case domain.SourceSteam:
		return "steam_id", true
	case domain.SourceRAWG:
		return "rawg_id", true
	}
	return "", false
}

// sourceParentColumn maps a source system to its parent-identifier column.
func sourceParentColumn(source string) (string, bool) {
	switch source {
	case domain.SourceSteam:
		return "parent_steam_id", true
	case domain.SourceRAWG:
		return "parent_rawg_id", true
	}
	return "", false
}
