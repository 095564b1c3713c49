// Package store persists workflow runs. Implementations return ErrNotFound
// for missing rows so callers never match on driver errors.
package store

import (
	"context"
	"errors"

	"openswe.dev/manager/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// RunStore defines the contract for run data access.
type RunStore interface {
	// CreateOrGet inserts the run, or returns the existing run with the
	// same dedupe key. The second return value reports whether a new row
	// was created; callers use it to decide whether to enqueue work.
	CreateOrGet(ctx context.Context, run *model.Run) (*model.Run, bool, error)

	GetByRunID(ctx context.Context, runID string) (*model.Run, error)

	UpdateStatus(ctx context.Context, runID string, status model.RunStatus) error

	ListByIssue(ctx context.Context, provider model.Provider, issueID string, limit int32) ([]model.Run, error)
}
