package resource

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	cacheLabel = "cache"
)

var (
	resourceLoaded = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "resource_loaded",
		Help: "The number of resident resources.",
	}, []string{cacheLabel})

	resourceLoadedBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "resource_loaded_bytes",
		Help: "The size of resident resources.",
	}, []string{cacheLabel})

	resourceLoadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resource_load_errors",
		Help: "The number of resources that failed to load.",
	}, []string{cacheLabel})

	resourceLoadLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "resource_load_latency",
		Help: "The time to load a resource.",
	}, []string{cacheLabel})
)

func instrumentLoad(cache string, size int, d time.Duration) {
	labels := prometheus.Labels{cacheLabel: cache}
	resourceLoaded.With(labels).Inc()
	resourceLoadedBytes.With(labels).Add(float64(size))
	resourceLoadLatency.With(labels).Observe(d.Seconds())
}

func instrumentRelease(cache string, size int) {
	labels := prometheus.Labels{cacheLabel: cache}
	resourceLoaded.With(labels).Dec()
	resourceLoadedBytes.With(labels).Sub(float64(size))
}

func instrumentLoadFailure(cache string) {
	resourceLoadErrors.
		With(prometheus.Labels{cacheLabel: cache}).
		Inc()
}
