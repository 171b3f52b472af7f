// Package session carries the per-run values every component needs. A
// Session is created once by the caller and passed explicitly.
package session

import (
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/telemetry"
)

// Session is the explicit context of one training run.
type Session struct {
	RunID     string
	Seed      int64
	Log       *slog.Logger
	Telemetry *telemetry.Recorder
}

// New returns a session with a fresh run id. A nil logger discards output.
func New(log *slog.Logger, seed int64) *Session {
	if log == nil {
		log = Discard()
	}
	id := uuid.NewString()
	return &Session{
		RunID:     id,
		Seed:      seed,
		Log:       log.With("run_id", id),
		Telemetry: telemetry.New(),
	}
}

// NewLogger creates a logger writing to w. level is one of debug, info, warn
// or error; format is "json" or text.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
