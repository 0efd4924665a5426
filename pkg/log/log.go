// Package log configures the process-wide slog logger shared by the hireflow binaries.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a level name to a slog.Level. An empty name means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q, allowed: debug, info, warn, error", name)
	}
}

// Setup installs a text logger on stderr as the default logger.
func Setup(level string) error {
	return SetupWriter(os.Stderr, level)
}

func SetupWriter(w io.Writer, level string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parsed,
	})))

	return nil
}

func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
