package serve

import (
	"context"
	"errors"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Store persists run records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Init prepares the backing storage (schema, directories).
	Init(ctx context.Context) error
	// SaveRun inserts or replaces a run record.
	SaveRun(ctx context.Context, rec *RunRecord) error
	// GetRun fetches one run, ErrRunNotFound when absent.
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	// ListRuns returns up to limit runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*RunRecord, error)
	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error
	// Close releases resources.
	Close() error
}
