package api

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	domain "github.com/example/draw-guess-demo/domain/game"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrRoomNotFound, fiber.StatusNotFound},
		{domain.ErrNotModerator, fiber.StatusForbidden},
		{domain.ErrNotDrawer, fiber.StatusForbidden},
		{domain.ErrDrawerCannotGuess, fiber.StatusForbidden},
		{domain.ErrUnknownPlayer, fiber.StatusForbidden},
		{domain.ErrRoomExists, fiber.StatusConflict},
		{domain.ErrRoundActive, fiber.StatusConflict},
		{domain.ErrRoomFull, fiber.StatusConflict},
		{domain.ErrRoundNotActive, fiber.StatusPreconditionFailed},
		{domain.ErrNotEnoughPlayers, fiber.StatusPreconditionFailed},
		{domain.ErrMalformedPayload, fiber.StatusBadRequest},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestStatusFor_WrappedError(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), domain.ErrRoomNotFound)
	assert.Equal(t, fiber.StatusNotFound, statusFor(wrapped))
}
