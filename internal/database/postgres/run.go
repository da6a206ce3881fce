package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ludocat/gamesync/internal/database"
	"github.com/ludocat/gamesync/internal/domain"
)

// RunRepository implements repository.Run against PostgreSQL.
type RunRepository struct {
	db *pgxpool.Pool
}

// NewRunRepository creates a new RunRepository
func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) CreateRun(ctx context.Context, run *domain.Run) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO runs (id, source, started_at, total)
		VALUES ($1, $2, $3, $4)`,
		run.ID, run.Source, run.StartedAt, run.Total)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToCreateRun, database.MapError(err))
	}
	return nil
}

func (r *RunRepository) FinishRun(ctx context.Context, run *domain.Run) error {
	var metricsJSON []byte
	if run.Metrics != nil {
		var err error
		if metricsJSON, err = json.Marshal(run.Metrics); err != nil {
			return fmt.Errorf("failed to marshal run metrics: %w", err)
		}
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE runs SET
			finished_at = $2, created = $3, updated = $4, failed = $5, metrics = $6
		WHERE id = $1`,
		run.ID, run.FinishedAt, run.Created, run.Updated, run.Failed, metricsJSON)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToFinishRun, database.MapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *RunRepository) AddItem(ctx context.Context, item *domain.RunItem) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO run_items (run_id, seq, ref, outcome, reason, message, attempts, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.RunID, item.Seq, item.Ref, item.Outcome, item.Reason,
		item.Message, item.Attempts, item.LatencyMS)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToAddRunItem, database.MapError(err))
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	var (
		run         domain.Run
		metricsJSON []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, source, started_at, finished_at, total, created, updated, failed, metrics
		FROM runs WHERE id = $1`, runID).Scan(
		&run.ID, &run.Source, &run.StartedAt, &run.FinishedAt,
		&run.Total, &run.Created, &run.Updated, &run.Failed, &metricsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetRun, database.MapError(err))
	}

	if len(metricsJSON) > 0 {
		run.Metrics = &domain.RunMetrics{}
		if err := json.Unmarshal(metricsJSON, run.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run metrics: %w", err)
		}
	}
	return &run, nil
}

// MatchRepository implements the append-only matching audit log.
type MatchRepository struct {
	db *pgxpool.Pool
}

// NewMatchRepository creates a new MatchRepository
func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) Append(ctx context.Context, decision *domain.MatchDecision) error {
	var detailsJSON []byte
	if decision.Details != nil {
		var err error
		if detailsJSON, err = json.Marshal(decision.Details); err != nil {
			return fmt.Errorf("failed to marshal decision details: %w", err)
		}
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO match_decisions (source, external_id, outcome, reason, score, game_id, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		decision.Source, decision.ExternalID, decision.Outcome, decision.Reason,
		decision.Score, decision.GameID, detailsJSON,
	).Scan(&decision.ID, &decision.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToAppendDecision, database.MapError(err))
	}
	return nil
}

func (r *MatchRepository) ListBySource(ctx context.Context, source string, externalID int64) ([]domain.MatchDecision, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, source, external_id, outcome, reason, score, game_id, details, created_at
		FROM match_decisions
		WHERE source = $1 AND external_id = $2
		ORDER BY created_at, id`, source, externalID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListDecisions, database.MapError(err))
	}
	defer rows.Close()

	var decisions []domain.MatchDecision
	for rows.Next() {
		var (
			d           domain.MatchDecision
			detailsJSON []byte
		)
		err := rows.Scan(&d.ID, &d.Source, &d.ExternalID, &d.Outcome, &d.Reason,
			&d.Score, &d.GameID, &detailsJSON, &d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListDecisions, err)
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &d.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal decision details: %w", err)
			}
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
