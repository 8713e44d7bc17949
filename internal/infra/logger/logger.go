package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"adpilot/internal/infra/config"
)

// New builds the process-wide *slog.Logger from the logging section of the
// config. The second return value releases the underlying output and must be
// deferred by the caller; for the standard streams it is a no-op.
func New(cfg config.LoggerConfig) (*slog.Logger, func() error, error) {
	writer, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("open log output: %w", err)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	return slog.New(newHandler(cfg.Format, writer, opts)), closer, nil
}

// newHandler picks the handler for the configured format. Anything other
// than "json" renders as text.
func newHandler(format string, w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// parseLevel maps a configured level name onto slog.Level. Unrecognized
// names fall back to info rather than failing startup.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// openOutput resolves the output target: "stdout"/"stderr" map to the
// process streams (empty defaults to stderr), any other value is treated as
// a file path and opened for append.
func openOutput(output string) (io.Writer, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, noop, nil
	case "stderr", "":
		return os.Stderr, noop, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
}
