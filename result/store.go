package result

import (
	"context"

	"github.com/google/uuid"
)

// Store persists run history.
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	UpdateRun(ctx context.Context, id uuid.UUID, setters ...RunSetter) error
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)

	CreateAttempt(ctx context.Context, attempt *Attempt) error
	ListAttemptsByRun(ctx context.Context, runID uuid.UUID) ([]*Attempt, error)
}

// RunSetter mutates a run inside an update.
type RunSetter func(*Run) error
