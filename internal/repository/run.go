package repository

import (
	"context"

	"github.com/ludocat/gamesync/internal/domain"
)

// Run defines the data access interface for batch-run audit records
type Run interface {
	CreateRun(ctx context.Context, run *domain.Run) error
	FinishRun(ctx context.Context, run *domain.Run) error
	AddItem(ctx context.Context, item *domain.RunItem) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
}

// Match defines the append-only audit log of matching decisions
type Match interface {
	Append(ctx context.Context, decision *domain.MatchDecision) error
	ListBySource(ctx context.Context, source string, externalID int64) ([]domain.MatchDecision, error)
}
