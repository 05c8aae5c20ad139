package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/acme/agent-ivr/internal/domain"
	"github.com/acme/agent-ivr/internal/service/session"
)

type sessionResponse struct {
	SessionID       string                `json:"session_id"`
	State           domain.CallState      `json:"state"`
	InFlight        bool                  `json:"in_flight"`
	DurationSeconds int64                 `json:"duration_seconds"`
	LastResult      *domain.CallResult    `json:"last_result,omitempty"`
	Notifications   []domain.Notification `json:"notifications"`
}

func toSessionResponse(s *session.Session) sessionResponse {
	resp := sessionResponse{
		SessionID:       s.ID,
		State:           s.Controller.State(),
		InFlight:        s.Controller.InFlight(),
		DurationSeconds: int64(s.Controller.Duration().Seconds()),
		Notifications:   s.Notifications.Snapshot(),
	}
	if last := s.Controller.LastResult(); last.Message != "" {
		resp.LastResult = &last
	}
	if resp.Notifications == nil {
		resp.Notifications = []domain.Notification{}
	}
	return resp
}

func (h *HandlerSet) createSession(ctx *fiber.Ctx) error {
	s := h.sessions.Create()
	return ctx.Status(http.StatusCreated).JSON(fiber.Map{
		"session_id": s.ID,
		"state":      s.Controller.State(),
	})
}

func (h *HandlerSet) lookup(ctx *fiber.Ctx) (*session.Session, error) {
	s, err := h.sessions.Get(ctx.Params("id"))
	if err != nil {
		return nil, translateError(err)
	}
	return s, nil
}

func (h *HandlerSet) getSession(ctx *fiber.Ctx) error {
	s, err := h.lookup(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(toSessionResponse(s))
}

func (h *HandlerSet) deleteSession(ctx *fiber.Ctx) error {
	if err := h.sessions.Delete(ctx.Params("id")); err != nil {
		return translateError(err)
	}
	return ctx.SendStatus(http.StatusNoContent)
}

// startSessionCall blocks until the call service answers. Service
// failures are reported in the notifications, not as HTTP errors.
func (h *HandlerSet) startSessionCall(ctx *fiber.Ctx) error {
	s, err := h.lookup(ctx)
	if err != nil {
		return err
	}

	var req callRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.normalize(s.Controller.State().CountryCode); err != nil {
		return translateError(err)
	}

	if err := s.Controller.StartCall(ctx.UserContext(), req.PhoneNumber, req.CountryCode); err != nil {
		return translateError(err)
	}
	return ctx.JSON(toSessionResponse(s))
}

func (h *HandlerSet) endSessionCall(ctx *fiber.Ctx) error {
	s, err := h.lookup(ctx)
	if err != nil {
		return err
	}
	if err := s.Controller.EndCall(ctx.UserContext()); err != nil {
		return translateError(err)
	}
	return ctx.JSON(toSessionResponse(s))
}

func (h *HandlerSet) resetSession(ctx *fiber.Ctx) error {
	s, err := h.lookup(ctx)
	if err != nil {
		return err
	}
	s.Controller.Reset()
	return ctx.JSON(toSessionResponse(s))
}

func (h *HandlerSet) sessionCallStatus(ctx *fiber.Ctx) error {
	s, err := h.lookup(ctx)
	if err != nil {
		return err
	}
	result, err := s.Controller.Status(ctx.UserContext())
	if err != nil {
		return translateError(err)
	}
	return renderResult(ctx, result)
}
