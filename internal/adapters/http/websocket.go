package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	natsadapter "github.com/partymap/partymap/internal/adapters/nats"
	"github.com/partymap/partymap/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "polygons" | "markers" (default: polygons)
}

// WebSocketHandler returns a handler that upgrades to WebSocket and relays
// map change events to connected clients. Clients send JSON such as
// {"action":"subscribe","channel":"markers"}; every client starts on the
// polygons channel. A nil subscriber closes the connection with an error.
func WebSocketHandler(events *natsadapter.Subscriber) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		log := slog.With("remote_addr", c.RemoteAddr().String())
		log.Info("ws client connected")

		var mu sync.Mutex

		// Helper: thread-safe write
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(env *natsadapter.Envelope) {
			data, err := env.JSON()
			if err != nil {
				log.Warn("ws encode event", "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			_ = c.WriteMessage(websocket.TextMessage, data)
		}

		if events == nil {
			_ = writeJSON(map[string]string{"error": "live updates are not available"})
			return
		}

		subs := make(map[string]func()) // channel -> cancel
		defer func() {
			for _, cancel := range subs {
				cancel()
			}
			log.Info("ws client disconnected")
		}()

		// Auto-subscribe to polygon changes by default
		cancel, err := events.Subscribe(natsadapter.ChannelPolygons, relay)
		if err != nil {
			log.Error("ws default subscribe", "error", err)
			return
		}
		subs[natsadapter.ChannelPolygons] = cancel

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// Read client messages for subscribe/unsubscribe
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			channel := m.Channel
			if channel == "" {
				channel = natsadapter.ChannelPolygons
			}
			subject, err := natsadapter.ChannelSubject(channel)
			if err != nil {
				_ = writeJSON(map[string]string{"error": err.Error()})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[channel]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				cancel, err := events.Subscribe(channel, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[channel] = cancel
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if cancel, exists := subs[channel]; exists {
					cancel()
					delete(subs, channel)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}
	}
}
