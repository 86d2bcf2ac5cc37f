package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/listgrab"
)

// Ensure LoggingExtractor implements listgrab.Extractor.
var _ listgrab.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with debug logging.
type LoggingExtractor struct {
	next   listgrab.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next listgrab.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs which element matched.
func (e *LoggingExtractor) Extract(page *listgrab.Page) (data *listgrab.EmbeddedData, err error) {
	defer func(begin time.Time) {
		attrs := []any{"duration", time.Since(begin)}
		if data != nil {
			attrs = append(attrs, "source", data.Source)
		}
		if err != nil {
			attrs = append(attrs, "code", listgrab.ErrorCode(err), "err", err)
			if excerpt := listgrab.ErrorExcerpt(err); excerpt != "" {
				attrs = append(attrs, "excerpt", excerpt)
			}
		}
		e.logger.Debug("extract", attrs...)
	}(time.Now())
	return e.next.Extract(page)
}
