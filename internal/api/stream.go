package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opensource-finance/harrier/internal/domain"
)

const (
	// streamWriteWait is how long a single frame write may take.
	streamWriteWait = 10 * time.Second

	// streamPongWait is how long to wait for a pong before the
	// connection is considered dead.
	streamPongWait = 60 * time.Second

	// streamPingPeriod must be shorter than streamPongWait.
	streamPingPeriod = 30 * time.Second

	// streamSendBuffer bounds per-client queued alerts. A slow
	// consumer misses alerts rather than backing up the bus.
	streamSendBuffer = 16

	// streamReadLimit caps inbound frames; clients only send control
	// frames on this endpoint.
	streamReadLimit = 4096
)

// normalCloseCodes are close codes that indicate an expected disconnect.
var normalCloseCodes = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseNoStatusReceived,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The REST surface already serves any origin; the stream follows.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamAlerts upgrades the connection to a WebSocket and forwards
// high-risk alerts published on the bus until the client disconnects.
// Each connection holds its own bus subscription, so the bus does the
// fan-out.
func (h *Handler) StreamAlerts(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "event bus not available",
		})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The request context dies with the HTTP handler; the stream needs
	// its own lifetime, ended by the read pump on disconnect.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	send := make(chan []byte, streamSendBuffer)
	sub, err := h.bus.Subscribe(ctx, domain.TopicAlert, func(_ context.Context, msg *domain.Message) error {
		select {
		case send <- msg.Payload:
		default:
			// Client is not keeping up; skip this alert for them.
		}
		return nil
	})
	if err != nil {
		slog.Error("alert stream subscription failed", "error", err)
		return
	}
	defer sub.Unsubscribe()

	slog.Info("alert stream connected", "remote", r.RemoteAddr)
	defer slog.Info("alert stream disconnected", "remote", r.RemoteAddr)

	// Read pump: drains control frames and detects disconnect.
	go func() {
		defer cancel()
		conn.SetReadLimit(streamReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, normalCloseCodes...) {
					slog.Debug("alert stream read ended", "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(streamWriteWait))
			return
		case payload := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
