package testutil

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"

	"github.com/MrEdHardy/schleuben/component"
	"github.com/MrEdHardy/schleuben/logger"
)

// THelper provides testing.T integration for component setup.
type THelper struct {
	t   testing.TB
	ctx context.Context
}

// T wraps a testing.TB to provide helper methods.
func T(t testing.TB) *THelper {
	return &THelper{
		t:   t,
		ctx: context.Background(),
	}
}

// WithContext sets a custom context for the helper.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Setup starts c and stops it when the test ends.
func (h *THelper) Setup(c component.Component) {
	h.t.Helper()
	if err := c.Start(h.ctx); err != nil {
		h.t.Fatalf("failed to start component %s: %v", c.Name(), err)
	}

	h.t.Cleanup(func() {
		if err := c.Stop(context.Background()); err != nil {
			h.t.Errorf("failed to stop component %s: %v", c.Name(), err)
		}
	})
}

// LogBuffer is a goroutine-safe buffer for captured log output.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything logged so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewLogger returns a debug-level JSON logger writing into the returned buffer.
func NewLogger(service string) (*logger.Logger, *LogBuffer) {
	buf := &LogBuffer{}
	return logger.New(&logger.Config{Level: "debug", Format: "json", Writer: buf}, service), buf
}

// FreePort returns a TCP port on the loopback interface that was free a
// moment ago.
func FreePort(t testing.TB) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
