// Package storage persists the history of extraction runs.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/docimg/internal/models"
)

// ErrRunNotFound is returned by GetRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// History defines run history persistence operations.
type History interface {
	RecordRun(ctx context.Context, summary *models.RunSummary) error
	// GetRun returns a run with its documents.
	GetRun(ctx context.Context, id string) (*models.RunSummary, error)
	// ListRuns returns runs newest first, without documents.
	ListRuns(ctx context.Context, offset, limit int) ([]*models.RunSummary, error)
	CountRuns(ctx context.Context) (int64, error)

	Close() error
}
