package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aukilabs/scenestream/stream"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestEvent(t stream.EventType) stream.Event {
	return stream.Event{
		Type:       t,
		Controller: "forest",
		ObjectID:   uuid.New(),
		Time:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestServer(t *testing.T, h *Hub) string {
	server := httptest.NewServer(h.Handler())
	t.Cleanup(server.Close)
	return strings.ReplaceAll(server.URL, "http://", "ws://")
}

func dial(t *testing.T, url string) *websocket.Conn {
	conn, err := websocket.Dial(url, "", "http://localhost")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSequentialIDGenerator(t *testing.T) {
	t.Run("returns a new id", func(t *testing.T) {
		var idGen SequentialIDGenerator

		for i := 1; i <= 5; i++ {
			require.Equal(t, uint32(i), idGen.New())
		}
	})

	t.Run("returns the last reused id", func(t *testing.T) {
		var idGen SequentialIDGenerator

		for i := 1; i <= 5; i++ {
			idGen.New()
		}

		idGen.Reuse(2)
		idGen.Reuse(4)
		require.Equal(t, uint32(4), idGen.New())
		require.Equal(t, uint32(2), idGen.New())
		require.Equal(t, uint32(6), idGen.New())
	})
}

func TestHubSubscribe(t *testing.T) {
	h := NewHub(2)

	idA, eventsA := h.Subscribe()
	idB, eventsB := h.Subscribe()
	require.Equal(t, uint32(1), idA)
	require.Equal(t, uint32(2), idB)
	require.Equal(t, 2, h.Len())

	t.Run("publish to every viewer", func(t *testing.T) {
		e := newTestEvent(stream.Created)
		h.Publish(e)
		require.Equal(t, e, <-eventsA)
		require.Equal(t, e, <-eventsB)
	})

	t.Run("full buffers drop events", func(t *testing.T) {
		dropped := testutil.ToFloat64(wsDroppedEvents.With(prometheus.Labels{eventLabel: string(stream.Destroyed)}))

		for i := 0; i < 5; i++ {
			h.Publish(newTestEvent(stream.Destroyed))
		}
		require.Len(t, eventsA, 2)
		require.Equal(t, dropped+6, testutil.ToFloat64(wsDroppedEvents.With(prometheus.Labels{eventLabel: string(stream.Destroyed)})))
	})

	t.Run("unsubscribe closes the channel and reuses the id", func(t *testing.T) {
		h.Unsubscribe(idA)
		h.Unsubscribe(idA)
		require.Equal(t, 1, h.Len())

		for range eventsA {
		}

		id, _ := h.Subscribe()
		require.Equal(t, idA, id)
	})

	t.Run("close releases every viewer", func(t *testing.T) {
		h.Close()
		require.Zero(t, h.Len())

		for range eventsB {
		}
	})
}

func TestHubReleaseReusedID(t *testing.T) {
	h := NewHub(1)

	id, events := h.Subscribe()
	h.Close()

	reusedID, _ := h.Subscribe()
	require.Equal(t, id, reusedID)

	h.release(id, events)
	require.Equal(t, 1, h.Len())

	h.Unsubscribe(reusedID)
	require.Zero(t, h.Len())
}

func TestHubHandler(t *testing.T) {
	t.Run("json frames", func(t *testing.T) {
		h := NewHub(0)
		conn := dial(t, newTestServer(t, h))
		require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, 10*time.Millisecond)

		e := newTestEvent(stream.Created)
		h.Publish(e)

		var msg string
		require.NoError(t, websocket.Message.Receive(conn, &msg))

		var received stream.Event
		require.NoError(t, json.Unmarshal([]byte(msg), &received))
		require.Equal(t, e, received)
	})

	t.Run("proto frames", func(t *testing.T) {
		h := NewHub(0)
		conn := dial(t, newTestServer(t, h)+"?format=proto")
		require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, 10*time.Millisecond)

		e := newTestEvent(stream.Restored)
		h.Publish(e)

		var msg []byte
		require.NoError(t, websocket.Message.Receive(conn, &msg))

		var s structpb.Struct
		require.NoError(t, proto.Unmarshal(msg, &s))
		require.Equal(t, "restored", s.Fields["type"].GetStringValue())
		require.Equal(t, "forest", s.Fields["controller"].GetStringValue())
		require.Equal(t, e.ObjectID.String(), s.Fields["object_id"].GetStringValue())
		require.Equal(t, "2024-05-01T12:00:00Z", s.Fields["time"].GetStringValue())
	})

	t.Run("disconnected viewers are unsubscribed", func(t *testing.T) {
		h := NewHub(0)
		conn := dial(t, newTestServer(t, h))
		require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, 10*time.Millisecond)

		conn.Close()
		require.Eventually(t, func() bool { return h.Len() == 0 }, time.Second, 10*time.Millisecond)
	})

	t.Run("closing the hub disconnects viewers", func(t *testing.T) {
		h := NewHub(0)
		conn := dial(t, newTestServer(t, h))
		require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, 10*time.Millisecond)

		h.Close()

		var msg string
		require.Error(t, websocket.Message.Receive(conn, &msg))
	})
}

func TestEncodeEvent(t *testing.T) {
	e := newTestEvent(stream.MovedOutOfBounds)

	data, err := EncodeEvent(JSON, e)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"type": "out_of_bounds",
		"controller": "forest",
		"object_id": "`+e.ObjectID.String()+`",
		"time": "2024-05-01T12:00:00Z"
	}`, string(data))

	data, err = EncodeEvent(Proto, e)
	require.NoError(t, err)

	s, err := EventToStruct(e)
	require.NoError(t, err)

	var decoded structpb.Struct
	require.NoError(t, proto.Unmarshal(data, &decoded))
	require.True(t, proto.Equal(s, &decoded))
}
