package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/listgrab"
)

// Ensure LoggingImageRetriever implements listgrab.ImageRetriever.
var _ listgrab.ImageRetriever = (*LoggingImageRetriever)(nil)

// LoggingImageRetriever wraps an ImageRetriever with logging.
type LoggingImageRetriever struct {
	next   listgrab.ImageRetriever
	logger *slog.Logger
}

// NewLoggingImageRetriever creates a new LoggingImageRetriever.
func NewLoggingImageRetriever(next listgrab.ImageRetriever, logger *slog.Logger) *LoggingImageRetriever {
	return &LoggingImageRetriever{next: next, logger: logger}
}

// Retrieve logs the download and delegates to the wrapped retriever.
func (r *LoggingImageRetriever) Retrieve(ctx context.Context, req listgrab.ImageRequest) (img *listgrab.SavedImage, err error) {
	defer func(begin time.Time) {
		var path string
		var size int64
		if img != nil {
			path, size = img.Path, img.Bytes
		}
		r.logger.Info("image",
			"url", req.URL,
			"path", path,
			"bytes", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.Retrieve(ctx, req)
}
