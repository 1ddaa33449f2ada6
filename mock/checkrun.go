package mock

import (
	"context"
	"time"

	"github.com/minute-repeater/restocked"
)

var _ restocked.CheckRunService = (*CheckRunService)(nil)

// CheckRunService is a mock implementation of restocked.CheckRunService.
type CheckRunService struct {
	CreateCheckRunFn func(ctx context.Context, run *restocked.CheckRun) error
	FindCheckRunsFn  func(ctx context.Context, filter restocked.CheckRunFilter) ([]*restocked.CheckRun, error)
	SuccessRateFn    func(ctx context.Context, since time.Time) (float64, error)
}

func (s *CheckRunService) CreateCheckRun(ctx context.Context, run *restocked.CheckRun) error {
	return s.CreateCheckRunFn(ctx, run)
}

func (s *CheckRunService) FindCheckRuns(ctx context.Context, filter restocked.CheckRunFilter) ([]*restocked.CheckRun, error) {
	return s.FindCheckRunsFn(ctx, filter)
}

func (s *CheckRunService) SuccessRate(ctx context.Context, since time.Time) (float64, error) {
	return s.SuccessRateFn(ctx, since)
}
