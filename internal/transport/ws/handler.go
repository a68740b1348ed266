package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"werewolves/internal/app"
)

// Handler handles WebSocket connections
type Handler struct {
	hub      *app.GameHub
	upgrader websocket.Upgrader
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *app.GameHub, logger *slog.Logger, tracer trace.Tracer) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
		tracer: tracer,
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
// Every connection gets a fresh player identity; rooms are entered through
// create_room and join_room messages.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	playerID := uuid.New().String()
	client := NewClient(conn, h.hub, playerID, h.logger, h.tracer)

	h.logger.Info("websocket connected", "playerID", playerID, "remote", r.RemoteAddr)

	client.sendConnected()
	client.Run()

	h.logger.Info("websocket disconnected", "playerID", playerID)
}
