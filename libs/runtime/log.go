package runtime

import (
	"log/slog"
	"os"
)

// NewLogger returns the JSON logger every TRG Nexus service writes to
// stdout. LOG_LEVEL selects debug/info/warn/error, defaulting to info.
func NewLogger(service string) *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With("service", service)
}
