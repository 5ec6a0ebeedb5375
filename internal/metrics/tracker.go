// Package metrics tracks video frame extraction performance per codec and
// exports it, together with cache and generation metrics, to Prometheus.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// CodecStat is the raw accumulator for one codec.
type CodecStat struct {
	Codec            string
	SampleCount      int64
	CumulativeTimeMs float64
	FailureCount     int64
}

// AvgTimeMs is the mean extraction time, 0 with no samples.
func (s CodecStat) AvgTimeMs() float64 {
	if s.SampleCount == 0 {
		return 0
	}
	return s.CumulativeTimeMs / float64(s.SampleCount)
}

// SuccessRate is the fraction of successful attempts, 0 with no samples.
func (s CodecStat) SuccessRate() float64 {
	if s.SampleCount == 0 {
		return 0
	}
	return float64(s.SampleCount-s.FailureCount) / float64(s.SampleCount)
}

// CodecMetrics is the externally reported view of a codec's stats.
type CodecMetrics struct {
	Codec               string  `json:"codec_name"`
	AvgExtractionTimeMs float64 `json:"avg_extraction_time_ms"`
	SampleCount         int64   `json:"sample_count"`
	SuccessRate         float64 `json:"success_rate"`
}

type bucket struct {
	mu   sync.Mutex
	stat CodecStat
}

// CodecTracker accumulates extraction samples keyed by codec name. Each codec
// has its own lock, so recording different codecs never contends once the
// bucket exists.
type CodecTracker struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
}

// NewCodecTracker returns an empty tracker.
func NewCodecTracker() *CodecTracker {
	return &CodecTracker{buckets: make(map[string]*bucket)}
}

// Record adds one extraction attempt. The tracker's read lock is held for the
// update so a concurrent Reset never drops the sample.
func (t *CodecTracker) Record(codec string, elapsed time.Duration, success bool) {
	if codec == "" {
		codec = "unknown"
	}

	t.mu.RLock()
	if b, ok := t.buckets[codec]; ok {
		b.add(elapsed, success)
		t.mu.RUnlock()
		return
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.buckets[codec]
	if !ok {
		b = &bucket{stat: CodecStat{Codec: codec}}
		t.buckets[codec] = b
	}
	b.add(elapsed, success)
}

func (b *bucket) add(elapsed time.Duration, success bool) {
	b.mu.Lock()
	b.stat.SampleCount++
	b.stat.CumulativeTimeMs += float64(elapsed) / float64(time.Millisecond)
	if !success {
		b.stat.FailureCount++
	}
	b.mu.Unlock()
}

// Stats returns a copy of every accumulator, sorted by codec.
func (t *CodecTracker) Stats() []CodecStat {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return collect(t.buckets)
}

func collect(buckets map[string]*bucket) []CodecStat {
	out := make([]CodecStat, 0, len(buckets))
	for _, b := range buckets {
		b.mu.Lock()
		out = append(out, b.stat)
		b.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Codec < out[j].Codec })
	return out
}

// Snapshot returns the derived metrics for every codec seen, sorted by codec.
func (t *CodecTracker) Snapshot() []CodecMetrics {
	return derive(t.Stats())
}

// Reset discards all accumulated stats and returns what was discarded. Every
// Record call lands either in the returned metrics or in the fresh tracker.
func (t *CodecTracker) Reset() []CodecMetrics {
	t.mu.Lock()
	old := t.buckets
	t.buckets = make(map[string]*bucket)
	t.mu.Unlock()
	return derive(collect(old))
}

func derive(stats []CodecStat) []CodecMetrics {
	out := make([]CodecMetrics, 0, len(stats))
	for _, s := range stats {
		out = append(out, CodecMetrics{
			Codec:               s.Codec,
			AvgExtractionTimeMs: s.AvgTimeMs(),
			SampleCount:         s.SampleCount,
			SuccessRate:         s.SuccessRate(),
		})
	}
	return out
}
