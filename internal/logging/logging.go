package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the log format and level
type Config struct {
	// Format is "json" or "text"
	Format string
	Level  string
}

// New builds a logger writing to w with the service attribute attached
func New(w io.Writer, service string, config Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(config.Level)}

	var handler slog.Handler
	if IsJSON(config.Format) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("service", service)
}

// Init configures the default logger on stdout and returns it
func Init(service string, config Config) *slog.Logger {
	logger := New(os.Stdout, service, config)
	slog.SetDefault(logger)
	logger.Debug("logging initialized", "json", IsJSON(config.Format), "level", ParseLevel(config.Level).String())
	return logger
}

// IsJSON reports whether format selects the JSON handler
func IsJSON(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "1", "true":
		return true
	default:
		return false
	}
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
