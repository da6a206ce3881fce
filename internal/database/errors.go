package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ludocat/gamesync/internal/domain"
)

// PostgreSQL error codes classified at this boundary. Callers never inspect
// SQLSTATE strings; they match on domain sentinels instead.
const (
	pgCodeUniqueViolation      = "23505"
	pgCodeForeignKeyViolation  = "23503"
	pgCodeCheckViolation       = "23514"
	pgCodeNotNullViolation     = "23502"
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
	pgCodeQueryCanceled        = "57014"
	pgCodeConnectionClass      = "08"
)

// keyDetailPattern extracts the colliding key and value from a unique
// violation detail. Expression indexes nest parens in the key part, e.g.
// `Key (lower(og_slug))=(dark-souls-3) already exists.`, so the key group
// is greedy up to the `)=(` separator.
var keyDetailPattern = regexp.MustCompile(`Key \((.+)\)=\((.*)\) already exists`)

// MapError translates a pgx/pgconn error into the domain error taxonomy.
// Unique violations come back as *domain.DuplicateKeyError carrying the
// violated constraint and the colliding value, which the ingest recovery path
// relies on. Errors that are already domain errors pass through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrQueryTimeout
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == pgCodeUniqueViolation:
		value := ""
		if m := keyDetailPattern.FindStringSubmatch(pgErr.Detail); m != nil {
			value = m[2]
		}
		return &domain.DuplicateKeyError{
			Constraint: pgErr.ConstraintName,
			Value:      value,
			Err:        err,
		}
	case pgErr.Code == pgCodeForeignKeyViolation,
		pgErr.Code == pgCodeCheckViolation,
		pgErr.Code == pgCodeNotNullViolation:
		return fmt.Errorf("%w: %s", domain.ErrValidation, pgErr.Message)
	case pgErr.Code == pgCodeSerializationFailure:
		return fmt.Errorf("%w: %s", domain.ErrSerializationFailure, pgErr.Message)
	case pgErr.Code == pgCodeDeadlockDetected:
		return fmt.Errorf("%w: %s", domain.ErrDeadlockDetected, pgErr.Message)
	case pgErr.Code == pgCodeQueryCanceled:
		return fmt.Errorf("%w: %s", domain.ErrQueryTimeout, pgErr.Message)
	case strings.HasPrefix(pgErr.Code, pgCodeConnectionClass):
		return fmt.Errorf("%w: %s", domain.ErrConnectionFailed, pgErr.Message)
	}

	return err
}
