package stream

import (
	"github.com/aukilabs/scenestream/bounds"
	"github.com/aukilabs/scenestream/resource"
	"github.com/google/uuid"
)

// Payload is the content streamed in and out by a controller.
type Payload interface {
	// The bounds used to place the payload in the tree. They must not change
	// once the payload is added to a controller.
	Bounds() bounds.AABB

	// Instantiates the payload. Reports whether something was instantiated,
	// which makes an asynchronous controller wait for the next tick before
	// processing more work.
	Show(p Parent) bool

	// Releases what Show instantiated.
	Hide()
}

// Parent is what payloads are instantiated into.
type Parent struct {
	Name      string
	Resources *resource.Cache
}

// CreateFlag is the streaming bookkeeping state of an object.
type CreateFlag int

const (
	// The object is not instantiated.
	None CreateFlag = iota

	// The object was detected by the last refresh.
	DontDestroy

	// The object is loaded and waits for the next refresh to confirm it.
	Old

	// The object was not confirmed and is waiting to be destroyed.
	OutOfBounds
)

func (f CreateFlag) String() string {
	switch f {
	case DontDestroy:
		return "dont_destroy"
	case Old:
		return "old"
	case OutOfBounds:
		return "out_of_bounds"
	default:
		return "none"
	}
}

// ProcessFlag is the pending asynchronous request of an object.
type ProcessFlag int

const (
	ProcessNone ProcessFlag = iota
	PendingCreate
	PendingDestroy
)

func (f ProcessFlag) String() string {
	switch f {
	case PendingCreate:
		return "pending_create"
	case PendingDestroy:
		return "pending_destroy"
	default:
		return "none"
	}
}

// State is the lifecycle stage of an object.
type State int

const (
	Unloaded State = iota
	Loaded
	PendingRemoval
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case PendingRemoval:
		return "pending_removal"
	default:
		return "unloaded"
	}
}

// SceneObject wraps a payload added to a controller.
type SceneObject struct {
	id      uuid.UUID
	payload Payload
	bounds  bounds.AABB
	flag    CreateFlag
	process ProcessFlag
	visible bool
}

func newSceneObject(p Payload) *SceneObject {
	return &SceneObject{
		id:      uuid.New(),
		payload: p,
		bounds:  p.Bounds(),
	}
}

func (o *SceneObject) ID() uuid.UUID {
	return o.id
}

func (o *SceneObject) Bounds() bounds.AABB {
	return o.bounds
}

func (o *SceneObject) Payload() Payload {
	return o.payload
}

func (o *SceneObject) Flag() CreateFlag {
	return o.flag
}

func (o *SceneObject) Process() ProcessFlag {
	return o.process
}

// Visible reports whether the payload is shown.
func (o *SceneObject) Visible() bool {
	return o.visible
}

func (o *SceneObject) State() State {
	switch o.flag {
	case None:
		return Unloaded
	case OutOfBounds:
		return PendingRemoval
	default:
		return Loaded
	}
}

func (o *SceneObject) show(p Parent) bool {
	o.visible = true
	return o.payload.Show(p)
}

func (o *SceneObject) hide() {
	o.visible = false
	o.payload.Hide()
}
