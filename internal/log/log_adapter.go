package log

import (
	"log"
	"log/slog"
	"strings"
)

type logAdapter struct {
	slog *slog.Logger
}

// NewLogAdapter exposes a slog.Logger as a standard library *log.Logger.
func NewLogAdapter(logger *slog.Logger) *log.Logger {
	return log.New(&logAdapter{slog: logger}, "", 0)
}

func (a *logAdapter) Write(p []byte) (n int, err error) {
	// Forward the line to slog.Logger
	a.slog.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
