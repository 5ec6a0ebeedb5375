package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "thumbcache"

var (
	codecExtractionsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "codec", "extractions_total"),
		"Video frame extraction attempts by codec",
		[]string{"codec"}, nil,
	)
	codecFailuresDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "codec", "failures_total"),
		"Failed video frame extractions by codec",
		[]string{"codec"}, nil,
	)
	codecAvgDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "codec", "avg_extraction_milliseconds"),
		"Average video frame extraction time by codec",
		[]string{"codec"}, nil,
	)
)

// CodecCollector exposes a CodecTracker to Prometheus. Values are read from
// the tracker at scrape time, so a Reset is reflected on the next scrape.
type CodecCollector struct {
	tracker *CodecTracker
}

// NewCodecCollector creates a collector for tracker.
func NewCodecCollector(tracker *CodecTracker) *CodecCollector {
	return &CodecCollector{tracker: tracker}
}

// Describe implements prometheus.Collector.
func (c *CodecCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- codecExtractionsDesc
	ch <- codecFailuresDesc
	ch <- codecAvgDesc
}

// Collect implements prometheus.Collector.
func (c *CodecCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.tracker.Stats() {
		ch <- prometheus.MustNewConstMetric(codecExtractionsDesc, prometheus.CounterValue, float64(s.SampleCount), s.Codec)
		ch <- prometheus.MustNewConstMetric(codecFailuresDesc, prometheus.CounterValue, float64(s.FailureCount), s.Codec)
		ch <- prometheus.MustNewConstMetric(codecAvgDesc, prometheus.GaugeValue, s.AvgTimeMs(), s.Codec)
	}
}
