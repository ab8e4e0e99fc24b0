package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/fireroute/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, gone, no_route, upstream_error, internal_error
	Message   string `json:"message"` // Human-readable message
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errValidation returns a 400 error naming the offending field.
func errValidation(c *fiber.Ctx, v *domain.ValidationError) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(fiber.StatusBadRequest).JSON(APIError{
		Status:    fiber.StatusBadRequest,
		Code:      "bad_request",
		Message:   v.Message,
		Field:     v.Field,
		RequestID: reqID,
	})
}

// writeError maps usecase errors onto API error responses.
func writeError(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	var perr *domain.ProviderError
	switch {
	case errors.As(err, &verr):
		return errValidation(c, verr)
	case errors.Is(err, domain.ErrLinkNotFound):
		return errNotFound(c, "route link not found")
	case errors.Is(err, domain.ErrLinkExpired):
		return newError(c, fiber.StatusGone, "gone", "route link expired")
	case errors.Is(err, domain.ErrNoRoute):
		return newError(c, fiber.StatusUnprocessableEntity, "no_route", err.Error())
	case errors.As(err, &perr):
		LoggerFromCtx(c.UserContext()).Warn("upstream provider failed", "provider", perr.Provider, "error", perr.Err)
		return newError(c, fiber.StatusBadGateway, "upstream_error", perr.Provider+" unavailable")
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, "internal error")
	}
}
