package websocket

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrHubStopped is returned when a connection arrives during shutdown
var ErrHubStopped = errors.New("websocket hub is stopped")

// Handler upgrades HTTP requests into topic subscriptions
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		upgrader: Upgrader(allowedOrigins),
		logger:   logger,
	}
}

// ServeTopic upgrades the connection and subscribes it to topicID. The
// caller validates the topic before calling. On upgrade failure the
// upgrader has already written an HTTP error.
func (h *Handler) ServeTopic(w http.ResponseWriter, r *http.Request, topicID int64) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("topicID", topicID).
			Msg("Failed to upgrade connection to WebSocket")
		return err
	}

	client := NewClient(h.hub, conn, topicID, h.logger)
	if !h.hub.Subscribe(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return ErrHubStopped
	}

	// Pumps run on their own goroutines so the request handler can return
	go client.writePump()
	go client.readPump()

	h.logger.Info().
		Int64("topicID", topicID).
		Str("remoteAddr", conn.RemoteAddr().String()).
		Msg("WebSocket connection established")
	return nil
}
