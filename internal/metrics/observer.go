package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ThumbnailObserver records cache and generation outcomes into Prometheus.
type ThumbnailObserver struct {
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	generations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewThumbnailObserver registers the thumbnail metrics with reg.
func NewThumbnailObserver(reg prometheus.Registerer) *ThumbnailObserver {
	factory := promauto.With(reg)
	return &ThumbnailObserver{
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Thumbnail requests answered from the cache",
			},
			[]string{"kind"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Thumbnail requests that required generation",
			},
			[]string{"kind"},
		),
		generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Thumbnail generations by media kind and status",
			},
			[]string{"kind", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Time to generate both thumbnails for a source",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),
	}
}

func (o *ThumbnailObserver) ObserveCacheHit(kind string) {
	o.cacheHits.WithLabelValues(kind).Inc()
}

func (o *ThumbnailObserver) ObserveCacheMiss(kind string) {
	o.cacheMisses.WithLabelValues(kind).Inc()
}

func (o *ThumbnailObserver) ObserveGeneration(kind string, durationSeconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	o.generations.WithLabelValues(kind, status).Inc()
	o.duration.WithLabelValues(kind).Observe(durationSeconds)
}
