package natsadapter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/partymap/partymap/internal/core/domain"
)

func TestEnvelope_CarriesEvent(t *testing.T) {
	at := time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC)
	ev := &domain.PolygonEvent{
		Action:     domain.ActionDetached,
		PolygonIDs: []string{"a", "b"},
		MarkerID:   "m1",
		Count:      2,
		OccurredAt: at,
	}

	data, err := encodeEnvelope("polygon", string(ev.Action), ev.OccurredAt, ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	env, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Kind != "polygon" || env.Action != "detached" {
		t.Errorf("unexpected header %s/%s", env.Kind, env.Action)
	}
	if !env.OccurredAt.Equal(at) {
		t.Errorf("expected %v, got %v", at, env.OccurredAt)
	}
	if got := env.Payload.GetFields()["markerId"].GetStringValue(); got != "m1" {
		t.Errorf("expected markerId m1, got %q", got)
	}

	out, err := env.JSON()
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded struct {
		Kind    string `json:"kind"`
		Payload struct {
			Count      float64  `json:"count"`
			PolygonIDs []string `json:"polygonIds"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Payload.Count != 2 || len(decoded.Payload.PolygonIDs) != 2 {
		t.Errorf("unexpected payload %+v", decoded.Payload)
	}
}

func TestDecodeEnvelope_RejectsGarbage(t *testing.T) {
	if _, err := DecodeEnvelope([]byte{0xff, 0x01}); err == nil {
		t.Error("expected error for invalid bytes")
	}
}

func TestChannelSubject(t *testing.T) {
	if s, _ := ChannelSubject(""); s != PolygonSubjects {
		t.Errorf("expected default polygons subject, got %s", s)
	}
	if s, _ := ChannelSubject("markers"); s != MarkerSubjects {
		t.Errorf("expected markers subject, got %s", s)
	}
	if _, err := ChannelSubject("tickets"); err == nil {
		t.Error("expected error for unknown channel")
	}
}
