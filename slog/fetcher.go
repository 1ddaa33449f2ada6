// Package slog provides logging decorators for restocked interfaces.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/minute-repeater/restocked"
)

// Ensure LoggingFetcher implements restocked.Fetcher.
var _ restocked.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with per-request logging.
type LoggingFetcher struct {
	next   restocked.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next restocked.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch logs the URL, winning strategy, size and duration and delegates to
// the wrapped fetcher.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (result *restocked.FetchResult, err error) {
	defer func(begin time.Time) {
		var bytes int
		var strategy restocked.FetchStrategy
		if result != nil {
			bytes = len(result.HTML)
			strategy = result.Strategy
		}
		f.logger.Info("fetch",
			"url", url,
			"strategy", strategy,
			"bytes", bytes,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

// Close delegates to the wrapped fetcher.
func (f *LoggingFetcher) Close() error {
	return f.next.Close()
}
