package websocket

import (
	"github.com/aukilabs/scenestream/stream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	formatLabel = "format"
	eventLabel  = "event"
)

var (
	wsConnectedViewers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connected_viewers",
		Help: "The number of viewers connected to the event stream.",
	})

	wsSentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_events",
		Help: "The number of events sent to viewers.",
	}, []string{formatLabel})

	wsSentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_bytes",
		Help: "The number of bytes sent to viewers.",
	}, []string{formatLabel})

	wsSendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_send_errors",
		Help: "The errors that occured while sending an event.",
	}, []string{formatLabel})

	wsDroppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_dropped_events",
		Help: "The number of events dropped because a viewer buffer was full.",
	}, []string{eventLabel})
)

func instrumentConnect() {
	wsConnectedViewers.Inc()
}

func instrumentDisconnect() {
	wsConnectedViewers.Dec()
}

func instrumentSend(f Format, n int) {
	labels := prometheus.Labels{formatLabel: string(f)}
	wsSentEvents.With(labels).Inc()
	wsSentBytes.With(labels).Add(float64(n))
}

func instrumentSendError(f Format) {
	wsSendErrors.
		With(prometheus.Labels{formatLabel: string(f)}).
		Inc()
}

func instrumentDrop(t stream.EventType) {
	wsDroppedEvents.
		With(prometheus.Labels{eventLabel: string(t)}).
		Inc()
}
