package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	domain "github.com/example/draw-guess-demo/domain/game"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrNotModerator),
		errors.Is(err, domain.ErrNotDrawer),
		errors.Is(err, domain.ErrDrawerCannotGuess),
		errors.Is(err, domain.ErrUnknownPlayer):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrRoomExists),
		errors.Is(err, domain.ErrRoundActive),
		errors.Is(err, domain.ErrRoomFull):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrRoundNotActive),
		errors.Is(err, domain.ErrNotEnoughPlayers):
		return fiber.StatusPreconditionFailed
	case errors.Is(err, domain.ErrMalformedPayload):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// domainError writes a domain error as a JSON error response.
func domainError(c *fiber.Ctx, err error) error {
	code := domain.ErrorCode(err)
	if code == "" {
		code = "internal"
	}
	return c.Status(statusFor(err)).JSON(ErrorResponse{
		Error:   code,
		Message: err.Error(),
	})
}
