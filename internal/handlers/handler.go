package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/latestcomment/tabbycat-dashboard/internal/models"
	"github.com/latestcomment/tabbycat-dashboard/internal/services"
	"go.uber.org/zap"
)

const loadErrorMessage = "Error loading data. Please refresh the page."

type Handler struct {
	Loader   *services.DataLoader
	Sessions *services.SessionService
	Log      *zap.Logger
}

func NewHandler(loader *services.DataLoader, sessions *services.SessionService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Loader: loader, Sessions: sessions, Log: log.Named("http")}
}

// Dashboard loads the four resources and renders the page, or the fatal
// error page when any of them fails.
func (h *Handler) Dashboard(c *fiber.Ctx) error {
	ds, err := h.Loader.Load(c.UserContext())
	if err != nil {
		h.Log.Error("dashboard load failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).Render("error", fiber.Map{
			"Message": loadErrorMessage,
		})
	}

	id := h.Sessions.Create(ds)
	view, err := h.Sessions.Dashboard(id)
	if err != nil {
		h.Sessions.Detach(id)
		h.Log.Error("dashboard render failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).Render("error", fiber.Map{
			"Message": loadErrorMessage,
		})
	}
	return c.Render("dashboard", view)
}

func (h *Handler) Panel(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	html, err := h.Sessions.Panel(id, models.Panel(c.Params("panel")), c.Query("key"))
	if err != nil {
		return h.fail(c, err)
	}
	c.Type("html")
	return c.SendString(html)
}

func (h *Handler) Insight(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	html, err := h.Sessions.InsightFragment(c.UserContext(), id, models.Panel(c.Params("panel")))
	if err != nil {
		return h.fail(c, err)
	}
	c.Type("html")
	return c.SendString(html)
}

func (h *Handler) Chart(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	canvas := strings.TrimSuffix(c.Params("canvas"), ".png")
	png, err := h.Sessions.ChartPNG(id, canvas)
	if err != nil {
		return h.fail(c, err)
	}
	c.Type("png")
	return c.Send(png)
}

func (h *Handler) Report(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	png, err := h.Sessions.Report(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return h.fail(c, err)
		}
		h.Log.Warn("performance report failed", zap.Error(err))
		banner, rerr := h.Sessions.Banner("Failed to generate performance report. Please try again later.")
		if rerr != nil {
			return rerr
		}
		c.Type("html")
		return c.Status(fiber.StatusBadGateway).SendString(banner)
	}
	c.Attachment("performance-report.png")
	c.Type("png")
	return c.Send(png)
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "healthy",
		"sessions": h.Sessions.Count(),
	})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrSelectionNotFound),
		errors.Is(err, services.ErrUnknownCanvas):
		return c.Status(fiber.StatusNotFound).SendString(err.Error())
	case errors.Is(err, services.ErrUnknownPanel):
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}
	h.Log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).SendString("internal error")
}

func sessionID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}
	return id, nil
}
