package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/roach88/reedboard/internal/engine"
	"github.com/roach88/reedboard/internal/narrate"
)

// Event is one websocket message: the notification plus its narration, if any.
type Event struct {
	engine.Notification
	Text string `json:"text,omitempty"`
}

// kindFilter parses ?kinds=move,state. Empty means everything.
func kindFilter(raw string) map[engine.NotificationKind]bool {
	if raw == "" {
		return nil
	}
	kinds := make(map[engine.NotificationKind]bool)
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds[engine.NotificationKind(k)] = true
		}
	}
	return kinds
}

func (s *Server) getEvents(c *gin.Context) {
	kinds := kindFilter(c.Query("kinds"))

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		slog.Warn("websocket upgrade failed", "remote", c.Request.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	notes, cancel := s.board.Subscribe(eventBuffer)
	defer cancel()

	remote := c.Request.RemoteAddr
	slog.Info("event subscriber connected", "remote", remote)
	defer slog.Info("event subscriber disconnected", "remote", remote)

	// Clients only send control frames; reading is how a close is noticed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return

		case <-c.Request.Context().Done():
			return

		case n, ok := <-notes:
			if !ok {
				write(conn, websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine stopped"))
				return
			}
			if kinds != nil && !kinds[n.Kind] {
				continue
			}
			if err := writeJSON(conn, Event{Notification: n, Text: narrate.Notification(n)}); err != nil {
				slog.Debug("event write failed", "remote", remote, "error", err)
				return
			}

		case <-ping.C:
			if err := write(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

func write(conn *websocket.Conn, messageType int, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(messageType, data)
}
