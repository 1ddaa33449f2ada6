package slog

import (
	"log/slog"
	"time"

	"github.com/minute-repeater/restocked"
)

// Ensure LoggingExtractor implements restocked.Extractor.
var _ restocked.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with per-page logging.
type LoggingExtractor struct {
	next   restocked.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next restocked.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract logs the outcome of an extraction and delegates to the wrapped
// extractor.
func (e *LoggingExtractor) Extract(html, url string) (extracted *restocked.ExtractedProduct, err error) {
	defer func(begin time.Time) {
		var variants int
		var name string
		if extracted != nil {
			variants = len(extracted.Variants)
			name = extracted.Name
		}
		e.logger.Info("extract",
			"url", url,
			"name", name,
			"variants", variants,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Extract(html, url)
}
