package logging

import (
	"log/slog"
	"os"
)

// New builds a logger writing to stderr at the named level.
func New(level string) *slog.Logger {
	lvl := slog.LevelInfo

	switch level {
	case "dev", "development", "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error", "production", "prod":
		lvl = slog.LevelError
	}

	return slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: lvl,
		}),
	)
}
