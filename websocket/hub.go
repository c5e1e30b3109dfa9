// Package websocket streams controller events to connected viewers.
package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/scenestream/stream"
	"golang.org/x/net/websocket"
)

const (
	defaultBufferSize = 512
)

type viewer struct {
	id     uint32
	events chan stream.Event
}

// Hub broadcasts events to its viewers. Viewers that do not keep up lose the
// events published while their buffer is full.
type Hub struct {
	// The interval between each log summary of the events sent to a viewer.
	// Summaries are only logged on disconnect when zero.
	SummaryInterval time.Duration

	bufferSize int
	ids        SequentialIDGenerator

	mutex   sync.RWMutex
	viewers map[uint32]*viewer
}

// NewHub returns a hub buffering up to bufferSize events per viewer. A
// default size is used when bufferSize is not positive.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	return &Hub{
		bufferSize: bufferSize,
		viewers:    make(map[uint32]*viewer),
	}
}

// Publish sends the event to every viewer without blocking.
func (h *Hub) Publish(e stream.Event) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, v := range h.viewers {
		select {
		case v.events <- e:
		default:
			instrumentDrop(e.Type)
		}
	}
}

// Subscribe registers a viewer and returns its id and event channel. The
// channel is closed when the viewer is unsubscribed or the hub is closed.
func (h *Hub) Subscribe() (uint32, <-chan stream.Event) {
	v := &viewer{
		id:     h.ids.New(),
		events: make(chan stream.Event, h.bufferSize),
	}

	h.mutex.Lock()
	h.viewers[v.id] = v
	h.mutex.Unlock()

	instrumentConnect()
	return v.id, v.events
}

// Unsubscribe removes the viewer with the given id.
func (h *Hub) Unsubscribe(id uint32) {
	h.release(id, nil)
}

// release removes the viewer with the given id. When events is not nil, the
// viewer is only removed if it still owns that channel, since its id may
// have been reused after a Close.
func (h *Hub) release(id uint32, events <-chan stream.Event) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	v, ok := h.viewers[id]
	if !ok || (events != nil && (<-chan stream.Event)(v.events) != events) {
		return
	}

	delete(h.viewers, id)
	close(v.events)
	h.ids.Reuse(id)
	instrumentDisconnect()
}

// Len returns the number of viewers.
func (h *Hub) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.viewers)
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mutex.Lock()
	ids := make([]uint32, 0, len(h.viewers))
	for id := range h.viewers {
		ids = append(ids, id)
	}
	h.mutex.Unlock()

	for _, id := range ids {
		h.Unsubscribe(id)
	}
}

// Handler returns the HTTP handler upgrading requests to WebSocket
// connections receiving the published events. Events are sent as JSON text
// frames, or as binary protobuf frames when the format query parameter is
// set to proto.
func (h *Hub) Handler() http.Handler {
	return websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: h.serve,
	}
}

func (h *Hub) serve(conn *websocket.Conn) {
	defer conn.Close()

	format := parseFormat(conn.Request().URL.Query().Get("format"))
	id, events := h.Subscribe()
	defer h.release(id, events)

	entry := logs.WithTag("viewer_id", id).
		WithTag("remote_addr", conn.Request().RemoteAddr).
		WithTag("format", format)
	entry.Info("viewer connected")

	ctx, cancel := context.WithCancel(context.Background())
	summary := newViewerSummary(entry, h.SummaryInterval)
	go summary.start(ctx)
	defer summary.logSummary()
	defer cancel()

	disconnected := make(chan error, 1)
	go func() {
		var discard []byte
		for {
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				disconnected <- err
				return
			}
		}
	}()

	for {
		select {
		case err := <-disconnected:
			entry.WithTag("reason", err.Error()).Info("viewer disconnected")
			return

		case e, ok := <-events:
			if !ok {
				entry.Info("viewer released by the hub")
				return
			}

			n, err := send(conn, format, e)
			if err != nil {
				instrumentSendError(format)
				logs.Warn(errors.New("sending event failed").
					WithTag("viewer_id", id).
					WithTag("format", format).
					Wrap(err))
				return
			}
			instrumentSend(format, n)
			summary.incCounter(e.Type)
		}
	}
}
