package stream

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	controllerLabel = "controller"
	stateLabel      = "state"
	eventLabel      = "event"
)

var (
	streamObjects = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stream_objects",
		Help: "The number of objects managed by a controller.",
	}, []string{controllerLabel, stateLabel})

	streamQueueLength = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stream_queue_length",
		Help: "The number of asynchronous requests waiting to be processed.",
	}, []string{controllerLabel})

	streamEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_events_total",
		Help: "The number of object events emitted by a controller.",
	}, []string{controllerLabel, eventLabel})

	streamRefreshLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stream_refresh_latency",
		Help:    "The time to run a refresh pass.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{controllerLabel})
)

func instrumentEvent(controller string, t EventType) {
	streamEvents.With(prometheus.Labels{
		controllerLabel: controller,
		eventLabel:      string(t),
	}).Inc()
}

func instrumentRefresh(controller string, d time.Duration) {
	streamRefreshLatency.
		With(prometheus.Labels{controllerLabel: controller}).
		Observe(d.Seconds())
}

func instrumentStats(controller string, s Stats) {
	streamObjects.With(prometheus.Labels{
		controllerLabel: controller,
		stateLabel:      Loaded.String(),
	}).Set(float64(s.Loaded))

	streamObjects.With(prometheus.Labels{
		controllerLabel: controller,
		stateLabel:      PendingRemoval.String(),
	}).Set(float64(s.Pending))

	streamObjects.With(prometheus.Labels{
		controllerLabel: controller,
		stateLabel:      Unloaded.String(),
	}).Set(float64(s.Objects - s.Loaded - s.Pending))

	streamQueueLength.
		With(prometheus.Labels{controllerLabel: controller}).
		Set(float64(s.Queued))
}
