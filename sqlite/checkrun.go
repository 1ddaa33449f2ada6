package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minute-repeater/restocked"
)

// Compile-time interface verification.
var _ restocked.CheckRunService = (*CheckRunService)(nil)

// CheckRunService implements restocked.CheckRunService using SQLite.
type CheckRunService struct {
	db *DB
}

// NewCheckRunService creates a new CheckRunService.
func NewCheckRunService(db *DB) *CheckRunService {
	return &CheckRunService{db: db}
}

// CreateCheckRun persists a check outcome.
func (s *CheckRunService) CreateCheckRun(ctx context.Context, run *restocked.CheckRun) error {
	if run.URL == "" {
		return restocked.Errorf(restocked.EINVALID, "check run URL required")
	}

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CheckedAt.IsZero() {
		run.CheckedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO check_runs (id, tracked_item_id, url, success, error, checked_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.TrackedItemID, run.URL, run.Success, run.Error, formatTime(run.CheckedAt))
	return storeError(err)
}

// FindCheckRuns retrieves check runs matching the filter, newest first.
func (s *CheckRunService) FindCheckRuns(ctx context.Context, filter restocked.CheckRunFilter) ([]*restocked.CheckRun, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`
		SELECT id, tracked_item_id, url, success, error, checked_at
		FROM check_runs WHERE 1=1`)

	if filter.TrackedItemID != nil {
		query.WriteString(" AND tracked_item_id = ?")
		args = append(args, *filter.TrackedItemID)
	}
	if filter.URL != nil {
		query.WriteString(" AND url = ?")
		args = append(args, *filter.URL)
	}

	query.WriteString(" ORDER BY checked_at DESC, id")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var runs []*restocked.CheckRun
	for rows.Next() {
		var run restocked.CheckRun
		var checkedAt string

		if err := rows.Scan(&run.ID, &run.TrackedItemID, &run.URL,
			&run.Success, &run.Error, &checkedAt); err != nil {
			return nil, storeError(err)
		}
		if run.CheckedAt, err = parseTime(checkedAt, "checked_at"); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// SuccessRate returns the fraction of successful runs since the given time,
// or 0 when no runs exist.
func (s *CheckRunService) SuccessRate(ctx context.Context, since time.Time) (float64, error) {
	var total, succeeded int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(success), 0)
		FROM check_runs
		WHERE checked_at >= ?
	`, formatTime(since)).Scan(&total, &succeeded)
	if err != nil {
		return 0, storeError(err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(succeeded) / float64(total), nil
}
