package ws

import (
	"log/slog"
	"net/http"

	"ordersync/internal/delivery/http/middleware"
	"ordersync/internal/delivery/http/response"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin apps (native shells, local dev) connect here; auth is
	// the token, not the origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades authenticated requests into hub sessions.
type Handler struct {
	hub    *Hub
	logger *slog.Logger
}

// HandlerParams holds dependencies for the websocket Handler.
type HandlerParams struct {
	fx.In

	Hub    *Hub
	Logger *slog.Logger
}

// NewHandler creates the websocket handler.
func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		hub:    params.Hub,
		logger: params.Logger,
	}
}

// Serve upgrades the connection and runs the session pumps. The auth
// middleware has already validated the token and set the principal id.
func (h *Handler) Serve(c echo.Context) error {
	principalID, ok := c.Get(middleware.ContextKeyPrincipalID).(uuid.UUID)
	if !ok {
		return response.Unauthorized(c, "TOKEN_MISSING", "Authorization token is missing")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))

		return nil
	}

	session := newSession(h.hub, conn, principalID.String())
	h.hub.register(session)

	go session.writePump()
	go session.readPump()

	return nil
}
