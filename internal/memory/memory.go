// Package memory provides a backpressure signal for batch thumbnail work
// based on heap usage relative to a configured or GOMEMLIMIT limit.
package memory

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// Config holds memory management configuration
type Config struct {
	// LimitBytes is the soft memory limit (0 = use GOMEMLIMIT or no limit)
	LimitBytes int64

	// CriticalWaterMark is the fraction of the limit at which work should pause (0.0-1.0)
	CriticalWaterMark float64

	// CheckInterval bounds how often heap stats are read
	CheckInterval time.Duration
}

// DefaultConfig returns the defaults used by both binaries
func DefaultConfig() Config {
	return Config{
		CriticalWaterMark: 0.85,
		CheckInterval:     500 * time.Millisecond,
	}
}

// Monitor reports whether it is safe to start more work. Without a limit it
// always reports safe.
type Monitor struct {
	config    Config
	limit     int64
	readAlloc func() uint64

	mu      sync.Mutex
	checked time.Time
	current uint64
}

// NewMonitor creates a monitor. A zero LimitBytes falls back to GOMEMLIMIT.
func NewMonitor(config Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if config.CriticalWaterMark <= 0 || config.CriticalWaterMark > 1 {
		config.CriticalWaterMark = DefaultConfig().CriticalWaterMark
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultConfig().CheckInterval
	}

	limit := config.LimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
			logger.Info("memory monitor using GOMEMLIMIT", "limit_bytes", limit)
		}
	}
	if limit == 0 {
		logger.Debug("memory monitor has no limit, backpressure disabled")
	}

	return &Monitor{config: config, limit: limit, readAlloc: heapAlloc}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Limit returns the effective limit in bytes, 0 when none is set.
func (m *Monitor) Limit() int64 { return m.limit }

// IsSafe reports whether heap usage is below the critical water mark.
func (m *Monitor) IsSafe() bool {
	if m == nil || m.limit == 0 {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if now := time.Now(); m.checked.IsZero() || now.Sub(m.checked) >= m.config.CheckInterval {
		m.current = m.readAlloc()
		m.checked = now
	}
	return float64(m.current) < float64(m.limit)*m.config.CriticalWaterMark
}

// WaitUntilSafe blocks until IsSafe is true or ctx is done, triggering a GC
// while it waits.
func (m *Monitor) WaitUntilSafe(ctx context.Context) error {
	if m.IsSafe() {
		return nil
	}
	runtime.GC()

	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if m.IsSafe() {
				return nil
			}
		}
	}
}
