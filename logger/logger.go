package logger

import (
	"log/slog"
	"os"
)

// Logger is the logging surface the rest of the project depends on.
// *slog.Logger satisfies it directly; tests substitute their own.
type Logger interface {
	Info(msg string, keyvals ...any)

	Warn(msg string, keyvals ...any)

	Error(msg string, keyvals ...any)

	Debug(msg string, keyvals ...any)
}

// New returns a JSON logger writing to stderr, info level and up, with
// source locations attached.
func New() Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
	})
	return slog.New(handler)
}
