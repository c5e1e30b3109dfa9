package websocket

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/scenestream/stream"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Format is the encoding of the frames sent to a viewer.
type Format string

const (
	JSON  Format = "json"
	Proto Format = "proto"
)

func parseFormat(s string) Format {
	if s == string(Proto) {
		return Proto
	}
	return JSON
}

// EncodeEvent returns the frame payload of the given event.
func EncodeEvent(f Format, e stream.Event) ([]byte, error) {
	if f != Proto {
		return json.Marshal(e)
	}

	s, err := EventToStruct(e)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// EventToStruct converts an event to a protobuf struct with the same fields
// as its JSON encoding.
func EventToStruct(e stream.Event) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(map[string]any{
		"type":       string(e.Type),
		"controller": e.Controller,
		"object_id":  e.ObjectID.String(),
		"time":       e.Time.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, errors.New("converting event to protobuf struct failed").
			WithTag("type", e.Type).
			Wrap(err)
	}
	return s, nil
}

func send(conn *websocket.Conn, f Format, e stream.Event) (int, error) {
	data, err := EncodeEvent(f, e)
	if err != nil {
		return 0, err
	}

	if f == Proto {
		err = websocket.Message.Send(conn, data)
	} else {
		err = websocket.Message.Send(conn, string(data))
	}
	return len(data), err
}
