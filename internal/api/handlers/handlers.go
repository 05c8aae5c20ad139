package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/acme/agent-ivr/internal/app"
	"github.com/acme/agent-ivr/internal/domain"
	"github.com/acme/agent-ivr/internal/service/session"
	"github.com/acme/agent-ivr/internal/telephony"
)

// HandlerSet bundles all HTTP handlers.
type HandlerSet struct {
	container *app.Container
	provider  telephony.Provider
	sessions  *session.Registry
}

// NewHandlerSet creates a new handler bundle.
func NewHandlerSet(container *app.Container) *HandlerSet {
	return &HandlerSet{
		container: container,
		provider:  container.Provider(),
		sessions:  container.Sessions(),
	}
}

// Register wires all routes onto the fiber app.
func (h *HandlerSet) Register(app *fiber.App) {
	app.Get("/healthz", h.health)

	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/countries", h.listCountries)

	calls := v1.Group("/calls")
	calls.Post("/", h.startCall)
	calls.Post("/:id/end", h.endCall)
	calls.Get("/:id", h.callStatus)

	sessions := v1.Group("/sessions")
	sessions.Post("/", h.createSession)
	sessions.Get("/:id", h.getSession)
	sessions.Delete("/:id", h.deleteSession)
	sessions.Post("/:id/start", h.startSessionCall)
	sessions.Post("/:id/end", h.endSessionCall)
	sessions.Post("/:id/reset", h.resetSession)
	sessions.Get("/:id/status", h.sessionCallStatus)
}

// ErrorHandler provides centralized error responses.
func (h *HandlerSet) ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	if fiberErr, ok := err.(*fiber.Error); ok {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	if code == fiber.StatusInternalServerError {
		h.container.Logger.Error("request failed",
			zap.String("path", ctx.Path()),
			zap.Error(err),
		)
	}

	return ctx.Status(code).JSON(fiber.Map{
		"error":    message,
		"trace_id": ctx.GetRespHeader("Trace-Id"),
	})
}

func (h *HandlerSet) health(ctx *fiber.Ctx) error {
	healthCtx, cancel := context.WithTimeout(ctx.Context(), 2*time.Second)
	defer cancel()

	errs := make(map[string]string)

	if h.container.Redis != nil {
		if err := h.container.Redis.Ping(healthCtx); err != nil {
			errs["redis"] = err.Error()
		}
	}

	if h.container.Kafka != nil {
		if err := h.container.Kafka.Ping(healthCtx); err != nil {
			errs["kafka"] = err.Error()
		}
	}

	status := fiber.StatusOK
	label := "ok"
	if len(errs) > 0 {
		status = fiber.StatusServiceUnavailable
		label = "degraded"
	}

	return ctx.Status(status).JSON(fiber.Map{
		"status":   label,
		"sessions": h.sessions.Len(),
		"errors":   errs,
	})
}

func (h *HandlerSet) listCountries(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"default":   h.container.Config.Call.DefaultCountryCode,
		"countries": domain.Countries(),
	})
}
