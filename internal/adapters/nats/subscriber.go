package natsadapter

import (
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Channel names clients use to pick a feed.
const (
	ChannelPolygons = "polygons"
	ChannelMarkers  = "markers"
)

// ChannelSubject maps a client channel name to its subject filter.
func ChannelSubject(channel string) (string, error) {
	switch channel {
	case "", ChannelPolygons:
		return PolygonSubjects, nil
	case ChannelMarkers:
		return MarkerSubjects, nil
	default:
		return "", fmt.Errorf("unknown channel: %s", channel)
	}
}

// Subscriber delivers decoded change events from core NATS subjects. It
// sees every message the JetStream streams capture without creating
// consumers, which suits short-lived listeners such as WebSocket clients.
type Subscriber struct {
	conn *nats.Conn
}

// NewSubscriber wraps an existing connection.
func NewSubscriber(conn *nats.Conn) *Subscriber {
	return &Subscriber{conn: conn}
}

// Subscribe calls handler for every event on channel. The returned function
// cancels the subscription.
func (s *Subscriber) Subscribe(channel string, handler func(*Envelope)) (func(), error) {
	subject, err := ChannelSubject(channel)
	if err != nil {
		return nil, err
	}
	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		env, err := DecodeEnvelope(msg.Data)
		if err != nil {
			slog.Warn("dropping undecodable event", "subject", msg.Subject, "error", err)
			return
		}
		handler(env)
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}
