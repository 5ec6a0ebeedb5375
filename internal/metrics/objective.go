package metrics

import "time"

// Objective holds the latency targets for thumbnail work.
type Objective struct {
	MaxExtraction time.Duration // average first-time video frame extraction
	MaxCached     time.Duration // a call answered from the cache
}

// DefaultObjective is 500 ms per extraction and 50 ms per cached lookup.
var DefaultObjective = Objective{
	MaxExtraction: 500 * time.Millisecond,
	MaxCached:     50 * time.Millisecond,
}

// MeetsTarget reports whether the average extraction time is within target.
// Codecs without samples always meet it.
func (m CodecMetrics) MeetsTarget(target time.Duration) bool {
	if m.SampleCount == 0 {
		return true
	}
	return m.AvgExtractionTimeMs <= float64(target)/float64(time.Millisecond)
}

// Regressions lists the codecs whose average extraction time exceeds target.
func (t *CodecTracker) Regressions(target time.Duration) []CodecMetrics {
	var out []CodecMetrics
	for _, m := range t.Snapshot() {
		if !m.MeetsTarget(target) {
			out = append(out, m)
		}
	}
	return out
}
