// Package check provides periodic re-checking of tracked products.
// It coordinates due-item scheduling, fetching, extraction, ingestion
// and change notification.
package check

import (
	"context"
	"log/slog"
	"time"

	"github.com/minute-repeater/restocked"
	"golang.org/x/sync/errgroup"
)

// Default worker settings.
const (
	DefaultConcurrency = 5
	DefaultInterval    = 30 * time.Minute
)

// DefaultStoreRetryDelays returns the backoff delays used when the store
// reports transient contention during ingestion.
func DefaultStoreRetryDelays() []time.Duration {
	return []time.Duration{100 * time.Millisecond, 250 * time.Millisecond, 500 * time.Millisecond}
}

// Worker periodically re-checks tracked products for price and stock
// changes. One pass lists due items, deduplicates them by URL so a page
// tracked by many users is fetched once, and processes the URLs on a
// bounded pool.
type Worker struct {
	Items         restocked.TrackedItemService
	Products      restocked.ProductService
	Notifications restocked.NotificationService
	CheckRuns     restocked.CheckRunService
	Fetcher       restocked.Fetcher
	Extractor     restocked.Extractor
	RateLimiter   restocked.DomainLimiter
	Concurrency   int
	Interval      time.Duration
	RetryDelays   []time.Duration
	Logger        *slog.Logger

	runNow chan struct{}
}

// Result holds the outcome of one check pass.
type Result struct {
	URLs     int
	Items    int
	Failed   int
	Notified int
}

// urlJob covers every tracked item subscribed to one URL.
type urlJob struct {
	url   string
	items []*restocked.TrackedItem
}

// urlResult holds the outcome of processing a single URL.
type urlResult struct {
	job     *urlJob
	changes []restocked.VariantChange
	err     error
}

// RunOnce performs a single check pass over all currently due items.
// A failure on one URL is recorded and does not affect the others.
func (w *Worker) RunOnce(ctx context.Context) (*Result, error) {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	due, err := w.Items.ListDueForCheck(ctx, interval)
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		return &Result{}, nil
	}

	jobs := groupByURL(due)

	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	resultCh := make(chan urlResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	go func() {
		for _, job := range jobs {
			job := job
			g.Go(func() error {
				changes, err := w.processURL(gctx, job.url)
				resultCh <- urlResult{job: job, changes: changes, err: err}
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	// Collect results and write check runs, notifications and check marks
	// serially; only fetching and ingestion run on the pool.
	result := &Result{Items: len(due)}
	now := time.Now().UTC()

	for ur := range resultCh {
		result.URLs++

		if ur.err != nil {
			result.Failed++
			w.logger().Warn("check failed",
				"url", ur.job.url,
				"code", restocked.ErrorCode(ur.err),
				"error", restocked.ErrorMessage(ur.err))
		} else {
			result.Notified += w.notifyChanges(ctx, ur.changes)
		}

		for _, item := range ur.job.items {
			w.recordOutcome(ctx, item, ur.err, now)
		}
	}

	w.logger().Info("check pass finished",
		"urls", result.URLs,
		"items", result.Items,
		"failed", result.Failed,
		"notified", result.Notified)

	return result, nil
}

// Run checks due items immediately and then on every interval tick until
// the context is canceled. RunNow triggers an extra pass between ticks.
func (w *Worker) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if w.runNow == nil {
		w.runNow = make(chan struct{}, 1)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger().Error("check pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.runNow:
		}
	}
}

// RunNow requests an immediate check pass from a running Run loop.
// It never blocks; a request made while one is already pending is folded
// into it.
func (w *Worker) RunNow() {
	if w.runNow == nil {
		w.runNow = make(chan struct{}, 1)
	}
	select {
	case w.runNow <- struct{}{}:
	default:
	}
}

// processURL fetches, extracts and ingests a single product page.
func (w *Worker) processURL(ctx context.Context, pageURL string) ([]restocked.VariantChange, error) {
	if w.RateLimiter != nil {
		if err := w.RateLimiter.Wait(ctx, pageURL); err != nil {
			return nil, restocked.Errorf(restocked.ETIMEOUT, "rate limit wait: %v", err)
		}
	}

	fetched, err := w.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	extracted, err := w.Extractor.Extract(fetched.HTML, pageURL)
	if err != nil {
		return nil, err
	}

	ingested, err := w.ingestWithRetry(ctx, extracted)
	if err != nil {
		return nil, err
	}
	return ingested.Changes, nil
}

// ingestWithRetry retries ingestion with backoff while the store reports
// transient contention.
func (w *Worker) ingestWithRetry(ctx context.Context, extracted *restocked.ExtractedProduct) (*restocked.IngestResult, error) {
	delays := w.RetryDelays
	if delays == nil {
		delays = DefaultStoreRetryDelays()
	}

	var lastErr error
	for attempt := 0; attempt < len(delays)+1; attempt++ {
		result, err := w.Products.Ingest(ctx, extracted)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if restocked.ErrorCode(err) != restocked.EUNAVAILABLE || attempt >= len(delays) {
			break
		}

		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(delays[attempt]):
		}
	}
	return nil, lastErr
}

// notifyChanges creates notifications for material variant changes and
// returns how many were created.
func (w *Worker) notifyChanges(ctx context.Context, changes []restocked.VariantChange) int {
	var created int
	for _, change := range changes {
		for _, n := range restocked.DetectChanges(change.Previous, change.Current) {
			if err := w.Notifications.CreateNotification(ctx, n); err != nil {
				w.logger().Error("create notification",
					"variant", n.VariantID, "type", n.Type, "error", err)
				continue
			}
			created++
		}
	}
	return created
}

// recordOutcome writes a check run for one tracked item and marks it
// checked. Failed checks are marked too so a dead URL does not wedge the
// schedule.
func (w *Worker) recordOutcome(ctx context.Context, item *restocked.TrackedItem, checkErr error, now time.Time) {
	run := &restocked.CheckRun{
		TrackedItemID: item.ID,
		URL:           item.URL,
		Success:       checkErr == nil,
		CheckedAt:     now,
	}
	if checkErr != nil {
		run.Error = restocked.ErrorMessage(checkErr)
	}
	if err := w.CheckRuns.CreateCheckRun(ctx, run); err != nil {
		w.logger().Error("create check run", "item", item.ID, "error", err)
	}
	if err := w.Items.MarkChecked(ctx, item.ID, now); err != nil {
		w.logger().Error("mark checked", "item", item.ID, "error", err)
	}
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// groupByURL deduplicates tracked items by URL, preserving first-seen
// order.
func groupByURL(items []*restocked.TrackedItem) []*urlJob {
	index := make(map[string]*urlJob, len(items))
	var jobs []*urlJob
	for _, item := range items {
		job, ok := index[item.URL]
		if !ok {
			job = &urlJob{url: item.URL}
			index[item.URL] = job
			jobs = append(jobs, job)
		}
		job.items = append(job.items, item)
	}
	return jobs
}
