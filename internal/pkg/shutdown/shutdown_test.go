package shutdown

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"looprender/internal/pkg/logger"
)

func newTestLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:  "debug",
		Format: "json",
		Output: &bytes.Buffer{},
	})
}

func TestShutdownRunsHandlers(t *testing.T) {
	m := NewManager(newTestLogger(), time.Second)

	var calls int32
	m.Register("first", func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	m.Register("second", func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	m.Shutdown()

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 handlers to run, got %d", got)
	}
}

func TestShutdownClosesDone(t *testing.T) {
	m := NewManager(newTestLogger(), time.Second)
	m.Shutdown()

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Error("expected Done channel to be closed after shutdown")
	}
}

func TestShutdownHandlerError(t *testing.T) {
	m := NewManager(newTestLogger(), time.Second)

	var ran int32
	m.Register("failing", func(ctx context.Context) error {
		return fmt.Errorf("cleanup failed")
	})
	m.Register("ok", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})

	// A failing handler must not prevent others from running.
	m.Shutdown()

	if atomic.LoadInt32(&ran) != 1 {
		t.Error("expected remaining handler to run despite failure")
	}
}

func TestShutdownTimeout(t *testing.T) {
	m := NewManager(newTestLogger(), 50*time.Millisecond)

	m.Register("slow", func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return nil
	})

	start := time.Now()
	m.Shutdown()

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("expected shutdown to respect timeout, took %s", elapsed)
	}
}

func TestContextCanceledOnShutdown(t *testing.T) {
	m := NewManager(newTestLogger(), time.Second)
	ctx := m.Context()

	m.Shutdown()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("expected context to be canceled after shutdown")
	}
}

func TestDefaultTimeout(t *testing.T) {
	m := NewManager(newTestLogger(), 0)
	if m.timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %s", m.timeout)
	}
}
