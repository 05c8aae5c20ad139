package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/acme/agent-ivr/internal/domain"
	apperrors "github.com/acme/agent-ivr/pkg/errors"
)

type callRequest struct {
	PhoneNumber string `json:"phone_number"`
	CountryCode string `json:"country_code"`
}

// normalize strips formatting from the number and applies the default
// country code.
func (r *callRequest) normalize(defaultCountry string) error {
	r.PhoneNumber = domain.DigitsOnly(r.PhoneNumber)
	r.CountryCode = strings.TrimSpace(r.CountryCode)
	if r.CountryCode == "" {
		r.CountryCode = defaultCountry
	}
	if !domain.KnownCountryCode(r.CountryCode) {
		return fmt.Errorf("%w: unknown country code %q", apperrors.ErrValidation, r.CountryCode)
	}
	return nil
}

// startCall exposes the call service directly. Unsuccessful results are
// still rendered as results, with 502.
func (h *HandlerSet) startCall(ctx *fiber.Ctx) error {
	var req callRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.normalize(h.container.Config.Call.DefaultCountryCode); err != nil {
		return translateError(err)
	}
	if req.PhoneNumber == "" {
		return fiber.NewError(http.StatusBadRequest, "phone_number is required")
	}

	result, err := h.provider.StartCall(ctx.UserContext(), req.PhoneNumber, req.CountryCode)
	if err != nil {
		return translateError(err)
	}
	return renderResult(ctx, result)
}

func (h *HandlerSet) endCall(ctx *fiber.Ctx) error {
	result, err := h.provider.EndCall(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return translateError(err)
	}
	return renderResult(ctx, result)
}

func (h *HandlerSet) callStatus(ctx *fiber.Ctx) error {
	result, err := h.provider.GetStatus(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return translateError(err)
	}
	return renderResult(ctx, result)
}

func renderResult(ctx *fiber.Ctx, result domain.CallResult) error {
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	return ctx.Status(status).JSON(result)
}
