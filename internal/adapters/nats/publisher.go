package natsadapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/partymap/partymap/internal/core/domain"
)

const (
	envelopeContentType = "application/protobuf; proto=google.protobuf.Struct"
	streamMaxAge        = 24 * time.Hour
	duplicateWindow     = 2 * time.Minute
)

// eventStreams retain change events so a relay that reconnects can replay
// what it missed.
var eventStreams = []nats.StreamConfig{
	{Name: "MAP_POLYGONS", Subjects: []string{PolygonSubjects}},
	{Name: "MAP_MARKERS", Subjects: []string{MarkerSubjects}},
}

// Publisher implements ports.EventPublisher on JetStream. Every message
// carries a Nats-Msg-Id, so a retried publish inside the duplicate window
// is stored once.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and makes sure the event streams exist.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	for _, base := range eventStreams {
		cfg := base
		cfg.Retention = nats.LimitsPolicy
		cfg.Storage = nats.FileStorage
		cfg.MaxAge = streamMaxAge
		cfg.Duplicates = duplicateWindow
		if err := ensureStream(js, &cfg); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStream(js nats.JetStreamContext, cfg *nats.StreamConfig) error {
	if _, err := js.StreamInfo(cfg.Name); err == nil {
		if _, err := js.UpdateStream(cfg); err != nil {
			return fmt.Errorf("update stream %s: %w", cfg.Name, err)
		}
		return nil
	}
	if _, err := js.AddStream(cfg); err != nil {
		return fmt.Errorf("add stream %s: %w", cfg.Name, err)
	}
	return nil
}

// PublishPolygonEvent publishes to map.polygons.<action>.
func (p *Publisher) PublishPolygonEvent(ctx context.Context, event *domain.PolygonEvent) error {
	return p.publish(ctx, polygonPrefix, "polygon", string(event.Action), event.OccurredAt, event)
}

// PublishMarkerEvent publishes to map.markers.<action>.
func (p *Publisher) PublishMarkerEvent(ctx context.Context, event *domain.MarkerEvent) error {
	return p.publish(ctx, markerPrefix, "marker", string(event.Action), event.OccurredAt, event)
}

func (p *Publisher) publish(ctx context.Context, prefix, kind, action string, at time.Time, event any) error {
	data, err := encodeEnvelope(kind, action, at, event)
	if err != nil {
		return err
	}

	msg := nats.NewMsg(prefix + action)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	msg.Header.Set("Content-Type", envelopeContentType)

	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Conn exposes the underlying connection so the WebSocket relay can share it.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn opens a connection that keeps retrying in the background and logs
// connectivity changes.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("partymap"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
}
