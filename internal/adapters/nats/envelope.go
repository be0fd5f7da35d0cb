package natsadapter

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Subjects and streams for map-data change events.
const (
	PolygonSubjects = "map.polygons.>"
	MarkerSubjects  = "map.markers.>"

	polygonPrefix = "map.polygons."
	markerPrefix  = "map.markers."

	envelopeVersion = 1
)

// Envelope is the decoded form of a published event. On the wire it is a
// protobuf google.protobuf.Struct so that consumers in any language can
// read it without a generated schema.
type Envelope struct {
	Kind       string
	Action     string
	OccurredAt time.Time
	Payload    *structpb.Struct
}

// encodeEnvelope wraps a JSON-serializable event in the wire envelope.
func encodeEnvelope(kind, action string, occurredAt time.Time, event any) ([]byte, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", kind, err)
	}
	payload := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("convert %s event: %w", kind, err)
	}

	env := &structpb.Struct{Fields: map[string]*structpb.Value{
		"version":    structpb.NewNumberValue(envelopeVersion),
		"kind":       structpb.NewStringValue(kind),
		"action":     structpb.NewStringValue(action),
		"occurredAt": structpb.NewStringValue(occurredAt.UTC().Format(time.RFC3339Nano)),
		"payload":    structpb.NewStructValue(payload),
	}}
	return proto.Marshal(env)
}

// DecodeEnvelope parses a message published by Publisher.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env structpb.Struct
	if err := proto.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	f := env.GetFields()

	out := &Envelope{
		Kind:    f["kind"].GetStringValue(),
		Action:  f["action"].GetStringValue(),
		Payload: f["payload"].GetStructValue(),
	}
	if out.Kind == "" {
		return nil, fmt.Errorf("decode envelope: missing kind")
	}
	if ts := f["occurredAt"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("decode envelope: occurredAt: %w", err)
		}
		out.OccurredAt = t
	}
	return out, nil
}

// JSON renders the envelope for browser clients.
func (e *Envelope) JSON() ([]byte, error) {
	payload := json.RawMessage("null")
	if e.Payload != nil {
		b, err := protojson.Marshal(e.Payload)
		if err != nil {
			return nil, err
		}
		payload = b
	}
	return json.Marshal(struct {
		Kind       string          `json:"kind"`
		Action     string          `json:"action"`
		OccurredAt time.Time       `json:"occurredAt"`
		Payload    json.RawMessage `json:"payload"`
	}{e.Kind, e.Action, e.OccurredAt, payload})
}
