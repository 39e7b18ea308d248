package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/obedfeni/v80-cam/internal/events"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsEventBuffer  = 64
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS policy lives on the router; the feed carries no secrets
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEvent is the wire form of a bus event. Raw frames never cross the
// feed, only status changes and capture results.
type wsEvent struct {
	Kind string    `json:"kind"`
	Seq  uint64    `json:"seq"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

// EventFeed streams status and capture events over a websocket until the
// client disconnects.
func (h *handlers) EventFeed(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("web: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	subID := "ws-" + uuid.New().String()
	ch := make(chan events.Event, wsEventBuffer)
	if err := h.app.bus.Subscribe(subID, ch); err != nil {
		slog.Error("web: event feed subscribe failed", "error", err)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"))
		return
	}
	defer h.app.bus.Unsubscribe(subID)

	slog.Info("web: event feed connected", "subscriber", subID, "client_ip", c.ClientIP())

	// Reader loop only detects disconnects; the feed is one-directional
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure) {
					slog.Debug("web: event feed read error", "error", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			slog.Info("web: event feed disconnected", "subscriber", subID)
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev := <-ch:
			if ev.Kind == events.KindFrame {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(wsEvent{
				Kind: ev.Kind.String(),
				Seq:  ev.Seq,
				At:   ev.At,
				Data: ev.Data,
			}); err != nil {
				slog.Debug("web: event feed write failed", "subscriber", subID, "error", err)
				return
			}
		}
	}
}
