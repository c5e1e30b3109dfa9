// Package stream implements a controller that shows the scene objects reached
// by a detector and hides the ones left behind.
//
// Objects go through a flag machine updated on each refresh. Detected objects
// are created and flagged DontDestroy. Refreshes age loaded objects to Old,
// and loaded objects that stay Old for a whole refresh are moved to a pending
// list as OutOfBounds. The pending list is drained only once it grows past a
// threshold, so an object leaving and re-entering the detector is kept alive.
package stream

import (
	"context"
	"slices"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/scenestream/detector"
	"github.com/aukilabs/scenestream/tree"
	"github.com/go-gl/mathgl/mgl32"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	ErrTypeInvalidOptions = "invalid_stream_options"

	tracerName = "github.com/aukilabs/scenestream/stream"
)

// Options configures a controller.
type Options struct {
	// The name used in logs, metrics and events.
	Name string

	Tree tree.Config

	// Wraps the tree with a lock so it can be inspected from other
	// goroutines.
	SharedTree bool

	// Queues show and hide requests to be processed by Tick instead of
	// processing them immediately.
	Async bool

	// The pending list size that triggers a drain.
	MaxCreateCount int

	// The pending list size a drain stops at.
	MinCreateCount int

	// The minimum elapsed time between refresh passes.
	RefreshInterval time.Duration

	// The minimum elapsed time between drains.
	DestroyInterval time.Duration

	// What payloads are shown into.
	Parent Parent

	// Called on each object event. Must not call the controller.
	Observer func(Event)
}

// DefaultOptions returns the options of a 100x100x100 quad tree streamed
// with the default thresholds.
func DefaultOptions() Options {
	return Options{
		Name: "scene",
		Tree: tree.Config{
			Size:     mgl32.Vec3{100, 100, 100},
			MaxDepth: 5,
			Kind:     tree.Quad,
		},
		MaxCreateCount:  25,
		MinCreateCount:  15,
		RefreshInterval: time.Second,
		DestroyInterval: 5 * time.Second,
	}
}

func (o Options) Validate() error {
	if o.MaxCreateCount <= 0 || o.MinCreateCount < 0 || o.MinCreateCount > o.MaxCreateCount {
		return errors.New("invalid create counts").
			WithType(ErrTypeInvalidOptions).
			WithTag("max_create_count", o.MaxCreateCount).
			WithTag("min_create_count", o.MinCreateCount)
	}

	if o.RefreshInterval < 0 || o.DestroyInterval < 0 {
		return errors.New("invalid intervals").
			WithType(ErrTypeInvalidOptions).
			WithTag("refresh_interval", o.RefreshInterval).
			WithTag("destroy_interval", o.DestroyInterval)
	}

	return nil
}

// Stats is a snapshot of a controller.
type Stats struct {
	Name      string `json:"name"`
	Objects   int    `json:"objects"`
	Loaded    int    `json:"loaded"`
	Pending   int    `json:"pending"`
	Queued    int    `json:"queued"`
	Refreshes int    `json:"refreshes"`
	Drains    int    `json:"drains"`
	Async     bool   `json:"async"`
}

// Controller streams scene objects in and out based on a detector.
//
// A controller is not safe for concurrent use.
type Controller struct {
	opts    Options
	tree    tree.Tree[*SceneObject]
	tracer  trace.Tracer
	loaded  []*SceneObject
	pending []*SceneObject
	queue   []*SceneObject

	detector        detector.Detector
	refreshed       bool
	refreshPosition mgl32.Vec3
	refreshElapsed  time.Duration
	destroyPosition mgl32.Vec3
	destroyElapsed  time.Duration
	refreshes       int
	drains          int
}

// NewController returns a controller with an empty tree.
func NewController(opts Options) (*Controller, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	t, err := tree.New[*SceneObject](opts.Tree)
	if err != nil {
		return nil, errors.New("creating controller tree failed").
			WithType(ErrTypeInvalidOptions).
			WithTag("controller", opts.Name).
			Wrap(err)
	}

	t = tree.WithMetrics(t, opts.Name)
	if opts.SharedTree {
		t = tree.WithLock(t)
	}

	return &Controller{
		opts:   opts,
		tree:   t,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Tree returns the tree holding the controller objects.
func (c *Controller) Tree() tree.Tree[*SceneObject] {
	return c.tree
}

// Add wraps the payload in a scene object and adds it to the tree. The object
// is created right away when the detector of the last refresh reaches it.
// Payloads outside of the tree bounds are never streamed.
func (c *Controller) Add(p Payload) *SceneObject {
	if p == nil {
		return nil
	}

	obj := newSceneObject(p)
	c.tree.Add(obj)
	if !c.tree.Contains(obj) {
		logs.Warn(errors.New("object outside of the scene bounds is ignored").
			WithTag("controller", c.opts.Name).
			WithTag("object_id", obj.id.String()).
			WithTag("bounds", obj.bounds))
		return obj
	}

	if c.detector != nil && c.detector.IsInside(obj.bounds) {
		c.createInternal(obj)
	}

	c.instrumentStats()
	return obj
}

// Remove removes the object from the tree and destroys it if it was created.
func (c *Controller) Remove(obj *SceneObject) {
	if obj == nil || !c.tree.Contains(obj) {
		return
	}

	c.tree.Remove(obj)
	c.loaded = removeObject(c.loaded, obj)
	c.pending = removeObject(c.pending, obj)
	c.destroyObject(obj)
	c.instrumentStats()
}

// Refresh updates the loaded objects with the given detector. dt is the time
// elapsed since the previous call.
//
// A refresh pass runs when the detector moved and at least RefreshInterval
// has elapsed while moving. The first call always runs a refresh pass. The
// objects waiting to be destroyed are drained when the detector moved, the
// pending list reached MaxCreateCount, and DestroyInterval elapsed.
func (c *Controller) Refresh(ctx context.Context, d detector.Detector, dt time.Duration) {
	if d == nil {
		return
	}

	pos := d.Position()

	if !c.refreshed || pos != c.refreshPosition {
		c.refreshElapsed += dt

		if !c.refreshed || c.refreshElapsed >= c.opts.RefreshInterval {
			c.refresh(ctx, d, pos)
		}
	}

	if pos != c.destroyPosition && len(c.pending) >= c.opts.MaxCreateCount {
		c.destroyElapsed += dt

		if c.destroyElapsed >= c.opts.DestroyInterval {
			c.destroyPosition = pos
			c.destroyElapsed = 0
			c.destroyOutOfBounds(ctx)
		}
	}
}

func (c *Controller) refresh(ctx context.Context, d detector.Detector, pos mgl32.Vec3) {
	_, span := c.tracer.Start(ctx, "stream.refresh", trace.WithAttributes(
		attribute.String("controller", c.opts.Name),
		attribute.Bool("frustum", d.UsesFrustumCulling()),
	))
	defer span.End()

	start := time.Now()
	c.refreshed = true
	c.refreshPosition = pos
	c.refreshElapsed = 0
	c.detector = d
	c.refreshes++

	detected := 0
	c.tree.Trigger(d, func(obj *SceneObject) {
		detected++
		c.handleTrigger(obj)
	})
	c.markOutOfBounds()

	instrumentRefresh(c.opts.Name, time.Since(start))
	stats := c.instrumentStats()

	span.SetAttributes(
		attribute.Int("detected", detected),
		attribute.Int("loaded", stats.Loaded),
		attribute.Int("pending", stats.Pending),
	)

	logs.WithTag("controller", c.opts.Name).
		WithTag("position", pos).
		WithTag("detected", detected).
		WithTag("loaded", stats.Loaded).
		WithTag("pending", stats.Pending).
		Debug("scene refreshed")
}

func (c *Controller) handleTrigger(obj *SceneObject) {
	switch obj.flag {
	case Old:
		obj.flag = DontDestroy

	case OutOfBounds:
		obj.flag = DontDestroy
		if i := slices.Index(c.pending, obj); i >= 0 {
			c.pending = slices.Delete(c.pending, i, i+1)
			c.loaded = append(c.loaded, obj)
			c.emit(Restored, obj)
		}

	case None:
		c.createInternal(obj)
	}
}

func (c *Controller) createInternal(obj *SceneObject) {
	c.loaded = append(c.loaded, obj)
	c.createObject(obj)
}

// markOutOfBounds moves the loaded objects the last refresh did not confirm
// to the pending list and ages the others.
func (c *Controller) markOutOfBounds() {
	loaded := c.loaded[:0]

	for _, obj := range c.loaded {
		if obj.flag == Old {
			obj.flag = OutOfBounds
			c.pending = append(c.pending, obj)
			c.emit(MovedOutOfBounds, obj)
			continue
		}

		obj.flag = Old
		loaded = append(loaded, obj)
	}

	clear(c.loaded[len(loaded):])
	c.loaded = loaded
}

func (c *Controller) destroyOutOfBounds(ctx context.Context) {
	_, span := c.tracer.Start(ctx, "stream.destroy", trace.WithAttributes(
		attribute.String("controller", c.opts.Name),
		attribute.Int("pending", len(c.pending)),
	))
	defer span.End()

	c.drains++
	destroyed := 0

	for i := 0; i < len(c.pending); {
		if len(c.pending) <= c.opts.MinCreateCount {
			break
		}

		obj := c.pending[i]
		if obj == nil {
			c.pending = slices.Delete(c.pending, i, i+1)
			continue
		}

		if obj.flag == OutOfBounds {
			c.destroyObject(obj)
			c.pending = slices.Delete(c.pending, i, i+1)
			destroyed++
			continue
		}

		i++
	}

	span.SetAttributes(attribute.Int("destroyed", destroyed))
	c.instrumentStats()

	logs.WithTag("controller", c.opts.Name).
		WithTag("destroyed", destroyed).
		WithTag("pending", len(c.pending)).
		Info("out of bounds objects destroyed")
}

func (c *Controller) createObject(obj *SceneObject) {
	if obj.flag != None {
		return
	}

	if c.opts.Async {
		c.processAsync(obj, true)
	} else {
		c.createSync(obj)
	}
	obj.flag = DontDestroy
}

func (c *Controller) destroyObject(obj *SceneObject) {
	if obj.flag == None {
		return
	}

	if c.opts.Async {
		c.processAsync(obj, false)
	} else {
		c.destroySync(obj)
	}
	obj.flag = None
}

func (c *Controller) createSync(obj *SceneObject) {
	if obj.process == PendingDestroy {
		obj.process = ProcessNone
		c.emit(Cancelled, obj)
		return
	}

	obj.show(c.opts.Parent)
	c.emit(Created, obj)
}

func (c *Controller) destroySync(obj *SceneObject) {
	if obj.process == PendingCreate {
		obj.process = ProcessNone
		c.emit(Cancelled, obj)
		return
	}

	obj.hide()
	c.emit(Destroyed, obj)
}

func (c *Controller) processAsync(obj *SceneObject, create bool) {
	request, opposite, event := PendingDestroy, PendingCreate, DestroyRequested
	if create {
		request, opposite, event = PendingCreate, PendingDestroy, CreateRequested
	}

	switch obj.process {
	case opposite:
		obj.process = ProcessNone
		c.emit(Cancelled, obj)
		return

	case request:
		return
	}

	obj.process = request
	c.queue = append(c.queue, obj)
	c.emit(event, obj)
}

// Tick processes the queued asynchronous requests until one of them
// consumes the tick: a show that instantiated something or any hide.
// Cancelled requests are skipped. It reports whether a request was
// processed.
func (c *Controller) Tick(ctx context.Context) bool {
	defer c.instrumentStats()

	processed := false

	for len(c.queue) != 0 {
		if ctx.Err() != nil {
			return processed
		}

		obj := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]

		switch obj.process {
		case PendingCreate:
			obj.process = ProcessNone
			processed = true
			instantiated := obj.show(c.opts.Parent)
			c.emit(Created, obj)
			if instantiated {
				return true
			}

		case PendingDestroy:
			obj.process = ProcessNone
			obj.hide()
			c.emit(Destroyed, obj)
			return true
		}
	}

	return processed
}

// Unload hides every shown object and removes all the objects.
func (c *Controller) Unload(ctx context.Context) {
	_, span := c.tracer.Start(ctx, "stream.unload", trace.WithAttributes(
		attribute.String("controller", c.opts.Name),
	))
	defer span.End()

	hidden := 0
	for _, objects := range [][]*SceneObject{c.loaded, c.pending, c.queue} {
		for _, obj := range objects {
			if obj == nil {
				continue
			}

			if obj.visible {
				obj.hide()
				c.emit(Destroyed, obj)
				hidden++
			}
			obj.flag = None
			obj.process = ProcessNone
		}
	}

	c.loaded = nil
	c.pending = nil
	c.queue = nil
	c.tree.Clear()
	c.detector = nil
	c.refreshed = false
	c.refreshElapsed = 0
	c.destroyElapsed = 0
	span.SetAttributes(attribute.Int("hidden", hidden))
	c.instrumentStats()

	logs.WithTag("controller", c.opts.Name).
		WithTag("hidden", hidden).
		Info("scene unloaded")
}

// Loaded returns the objects that are loaded and confirmed by the last
// refresh or waiting for the next one.
func (c *Controller) Loaded() []*SceneObject {
	return slices.Clone(c.loaded)
}

// Pending returns the objects waiting to be destroyed.
func (c *Controller) Pending() []*SceneObject {
	return slices.Clone(c.pending)
}

func (c *Controller) Stats() Stats {
	return Stats{
		Name:      c.opts.Name,
		Objects:   c.tree.Len(),
		Loaded:    len(c.loaded),
		Pending:   len(c.pending),
		Queued:    len(c.queue),
		Refreshes: c.refreshes,
		Drains:    c.drains,
		Async:     c.opts.Async,
	}
}

func (c *Controller) emit(t EventType, obj *SceneObject) {
	instrumentEvent(c.opts.Name, t)

	if c.opts.Observer != nil {
		c.opts.Observer(Event{
			Type:       t,
			Controller: c.opts.Name,
			ObjectID:   obj.id,
			Time:       time.Now(),
		})
	}
}

func (c *Controller) instrumentStats() Stats {
	s := c.Stats()
	instrumentStats(c.opts.Name, s)
	return s
}

func removeObject(objects []*SceneObject, obj *SceneObject) []*SceneObject {
	if i := slices.Index(objects, obj); i >= 0 {
		return slices.Delete(objects, i, i+1)
	}
	return objects
}
