// Package testutil provides slog capture helpers for tests.
package testutil

import (
	"bytes"
	"log/slog"
	"sync"
)

// SafeBuffer is a bytes.Buffer safe for concurrent use, for capturing
// log output written from handler goroutines.
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns the captured output.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewBufferedLogger returns a text slog.Logger writing into a buffer at
// debug level, for asserting on log output in tests.
func NewBufferedLogger() (*slog.Logger, *SafeBuffer) {
	buf := &SafeBuffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), buf
}
