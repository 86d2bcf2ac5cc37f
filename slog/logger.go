package slog

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fwojciec/listgrab"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	Level slog.Leveler

	// JSON selects machine-readable output instead of tinted text.
	JSON bool

	// NoColor disables ANSI colors. Colors are also disabled when the
	// writer is not a terminal.
	NoColor bool
}

// NewLogger returns a logger writing to w. Text output uses tint.
func NewLogger(w io.Writer, opts LoggerOptions) *slog.Logger {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}

	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		TimeFormat: time.TimeOnly,
		NoColor:    opts.NoColor || !isTerminal(w),
	}))
}

// ParseLevel converts a level name (debug, info, warn, error) to a slog.Level.
// Returns EINVALID for unknown names.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, listgrab.Errorf(listgrab.EINVALID, "invalid log level %q", s)
	}
	return level, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
