// Package task queues backtest runs and tracks their status.
package task

import (
	"context"

	"github.com/rxtech-lab/argo-core/internal/types"
)

// Store persists task statuses.
type Store interface {
	// Create saves a new task. Creating an existing id fails.
	Create(ctx context.Context, status types.TaskStatus) error
	// Update replaces the stored status of an existing task.
	Update(ctx context.Context, status types.TaskStatus) error
	// Get returns the status of id, or ErrCodeTaskNotFound.
	Get(ctx context.Context, id string) (types.TaskStatus, error)
	// List returns all tasks, oldest first.
	List(ctx context.Context) ([]types.TaskStatus, error)
	Close() error
}

// Runner executes one backtest request.
type Runner interface {
	RunBacktest(ctx context.Context, req types.RunRequest) (types.RunResult, error)
}

// RequestValidator is implemented by runners that can reject a request
// before it is queued.
type RequestValidator interface {
	ValidateRequest(req types.RunRequest) error
}
