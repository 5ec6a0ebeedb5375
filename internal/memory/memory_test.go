package memory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestNoLimitIsAlwaysSafe(t *testing.T) {
	m := &Monitor{config: DefaultConfig()}
	if !m.IsSafe() {
		t.Fatalf("monitor without limit should be safe")
	}
	var nilMonitor *Monitor
	if !nilMonitor.IsSafe() {
		t.Fatalf("nil monitor should be safe")
	}
}

func TestIsSafeThreshold(t *testing.T) {
	m := NewMonitor(Config{LimitBytes: 1000, CriticalWaterMark: 0.5, CheckInterval: time.Nanosecond}, quiet)

	m.readAlloc = func() uint64 { return 400 }
	if !m.IsSafe() {
		t.Fatalf("40%% usage should be safe")
	}

	m.readAlloc = func() uint64 { return 600 }
	time.Sleep(time.Millisecond)
	if m.IsSafe() {
		t.Fatalf("60%% usage should not be safe")
	}
}

func TestWaitUntilSafe(t *testing.T) {
	m := NewMonitor(Config{LimitBytes: 1000, CriticalWaterMark: 0.5, CheckInterval: time.Millisecond}, quiet)

	var alloc atomic.Uint64
	alloc.Store(900)
	m.readAlloc = alloc.Load

	go func() {
		time.Sleep(10 * time.Millisecond)
		alloc.Store(100)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.WaitUntilSafe(ctx); err != nil {
		t.Fatalf("WaitUntilSafe: %v", err)
	}
}

func TestWaitUntilSafeHonoursContext(t *testing.T) {
	m := NewMonitor(Config{LimitBytes: 1000, CriticalWaterMark: 0.5, CheckInterval: time.Millisecond}, quiet)
	m.readAlloc = func() uint64 { return 999 }

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.WaitUntilSafe(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
