package tree

import (
	"time"

	"github.com/aukilabs/scenestream/detector"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	treeLabel      = "tree"
	modeLabel      = "mode"
	operationLabel = "operation"
)

var (
	treeObjects = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tree_objects",
		Help: "The number of objects in a tree.",
	}, []string{treeLabel})

	treeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tree_operations_total",
		Help: "The number of operations performed on a tree.",
	}, []string{treeLabel, operationLabel})

	treeTriggerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tree_trigger_latency",
		Help:    "The time to run a tree query.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{treeLabel, modeLabel})

	treeTriggerCallbacks = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tree_trigger_callbacks",
		Help:    "The number of objects reported by a tree query.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{treeLabel, modeLabel})
)

// WithMetrics returns a tree that reports its size, operations and query
// latency under the given name.
func WithMetrics[T Object](t Tree[T], name string) Tree[T] {
	return &treeWithMetrics[T]{
		Tree: t,
		name: name,
	}
}

type treeWithMetrics[T Object] struct {
	Tree[T]

	name string
}

func (t *treeWithMetrics[T]) Add(obj T) {
	t.Tree.Add(obj)
	t.instrument("add")
}

func (t *treeWithMetrics[T]) Remove(obj T) {
	t.Tree.Remove(obj)
	t.instrument("remove")
}

func (t *treeWithMetrics[T]) Clear() {
	t.Tree.Clear()
	t.instrument("clear")
}

func (t *treeWithMetrics[T]) Trigger(d detector.Detector, fn func(T)) {
	if isNil(d) || fn == nil {
		return
	}

	mode := "region"
	if d.UsesFrustumCulling() {
		mode = "frustum"
	}

	var callbacks int
	start := time.Now()
	t.Tree.Trigger(d, func(obj T) {
		callbacks++
		fn(obj)
	})

	labels := prometheus.Labels{
		treeLabel: t.name,
		modeLabel: mode,
	}
	treeTriggerLatency.With(labels).Observe(time.Since(start).Seconds())
	treeTriggerCallbacks.With(labels).Observe(float64(callbacks))
	t.instrument("trigger")
}

func (t *treeWithMetrics[T]) instrument(operation string) {
	treeOperations.
		With(prometheus.Labels{
			treeLabel:      t.name,
			operationLabel: operation,
		}).
		Inc()

	treeObjects.
		With(prometheus.Labels{treeLabel: t.name}).
		Set(float64(t.Tree.Len()))
}
