package testutil

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
)

// Logs is a captured slog stream.
type Logs struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *Logs) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

// String returns everything logged so far.
func (l *Logs) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

// CaptureLogs routes the default slog logger into a buffer at debug level for the rest of
// the test. Tests using it must not run in parallel.
func CaptureLogs(t *testing.T) *Logs {
	t.Helper()
	logs := &Logs{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return logs
}
