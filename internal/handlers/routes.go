package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Register mounts the dashboard routes on app.
func Register(app *fiber.App, h *Handler, ws *WebSocketHandler) {
	app.Static("/static", "./static")
	app.Get("/", h.Dashboard)
	app.Get("/health", h.Health)
	app.Get("/sessions/:id/panels/:panel", h.Panel)
	app.Get("/sessions/:id/insights/:panel", h.Insight)
	app.Get("/sessions/:id/charts/:canvas", h.Chart)
	app.Get("/sessions/:id/report.png", h.Report)
	app.Get("/ws/:id", ws.WebSocketMiddleware, websocket.New(ws.HandleWebSocket))
}
