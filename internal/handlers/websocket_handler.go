package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/latestcomment/tabbycat-dashboard/internal/services"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	Service *services.SessionService
	Log     *zap.Logger
}

func NewWebSocketHandler(service *services.SessionService, log *zap.Logger) *WebSocketHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebSocketHandler{Service: service, Log: log.Named("ws")}
}

func (h *WebSocketHandler) WebSocketMiddleware(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if _, err := uuid.Parse(c.Params("id")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}
	return c.Next()
}

// HandleWebSocket binds the page to its session for the lifetime of the
// connection; closing the page ends the session.
func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	defer func() {
		_ = c.Close()
	}()

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return
	}
	if err := h.Service.Attach(id, c); err != nil {
		h.Log.Debug("attach failed", zap.String("session", id.String()), zap.Error(err))
		_ = c.WriteJSON(h.Service.ExpiredMessage())
		return
	}

	if err := h.Service.LoopEvents(id, c); errors.Is(err, services.ErrSessionNotFound) {
		// Ended elsewhere; nothing left to detach.
		_ = c.WriteJSON(h.Service.ExpiredMessage())
		return
	}
	h.Service.Detach(id)
}
