// Package telemetry owns the one piece of process-wide state this engine
// allows: a structured logger. Every other component takes its logger (or
// the store handle, or the graph) as a constructor parameter rather than
// reaching for a singleton.
package telemetry

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// EnvFilter is the single environment variable that controls the log
// filter, per the engine's external-interface contract. The format is a
// slog level name: "debug", "info", "warn", or "error".
const EnvFilter = "LCI_LSP_LOG"

var (
	mu      sync.Mutex
	logger  *slog.Logger
	initted bool
)

// Logger returns the process-wide logger, initializing it from EnvFilter
// on first use.
func Logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !initted {
		logger = newFromEnv()
		initted = true
	}
	return logger
}

// SetLogger overrides the process-wide logger, e.g. so tests can capture
// output or the CLI can redirect to a file.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
	initted = true
}

func newFromEnv() *slog.Logger {
	level := parseLevel(os.Getenv(EnvFilter))
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

func parseLevel(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// Component returns a logger tagged with a component name, mirroring the
// teacher's Log(component, ...) helper but built on a slog "component"
// attribute.
func Component(name string) *slog.Logger {
	return Logger().With("component", name)
}
