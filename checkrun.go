package restocked

import (
	"context"
	"time"
)

// CheckRun records the outcome of one re-extraction attempt for one
// tracked item, for observability and success-rate metrics.
type CheckRun struct {
	ID            string    `json:"id"`
	TrackedItemID string    `json:"trackedItemId"`
	URL           string    `json:"url"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	CheckedAt     time.Time `json:"checkedAt"`
}

// CheckRunService manages check run records.
type CheckRunService interface {
	// CreateCheckRun persists a check outcome.
	CreateCheckRun(ctx context.Context, run *CheckRun) error

	// FindCheckRuns retrieves check runs matching the filter, newest first.
	FindCheckRuns(ctx context.Context, filter CheckRunFilter) ([]*CheckRun, error)

	// SuccessRate returns the fraction of successful runs since the given
	// time, or 0 when no runs exist.
	SuccessRate(ctx context.Context, since time.Time) (float64, error)
}

// CheckRunFilter represents a filter for FindCheckRuns.
type CheckRunFilter struct {
	TrackedItemID *string `json:"trackedItemId"`
	URL           *string `json:"url"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
