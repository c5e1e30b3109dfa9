package stream

import (
	"time"

	"github.com/google/uuid"
)

// EventType describes what happened to an object.
type EventType string

const (
	// An asynchronous creation was queued.
	CreateRequested EventType = "create_requested"

	// The payload was shown.
	Created EventType = "created"

	// An asynchronous destruction was queued.
	DestroyRequested EventType = "destroy_requested"

	// The payload was hidden.
	Destroyed EventType = "destroyed"

	// A request was cancelled by the opposite request.
	Cancelled EventType = "cancelled"

	// An object waiting to be destroyed was detected again.
	Restored EventType = "restored"

	// A loaded object was not detected by a refresh.
	MovedOutOfBounds EventType = "out_of_bounds"
)

// Event is emitted by a controller on object state changes.
type Event struct {
	Type       EventType `json:"type"`
	Controller string    `json:"controller"`
	ObjectID   uuid.UUID `json:"object_id"`
	Time       time.Time `json:"time"`
}
