package api

import (
	"encoding/json"

	domain "github.com/example/draw-guess-demo/domain/game"
	"github.com/example/draw-guess-demo/modules/history"
)

// CreateRoomRequest is the API request to create a room. Key is optional; a
// random one is generated when absent.
type CreateRoomRequest struct {
	Key       string `json:"key,omitempty"`
	Moderator string `json:"moderator"`
}

// JoinRoomRequest is the API request to join a room.
type JoinRoomRequest struct {
	UserName string `json:"user_name"`
}

// UpdateSettingsRequest is the API request to change room settings.
type UpdateSettingsRequest struct {
	By       string               `json:"by"`
	Settings domain.SettingsPatch `json:"settings"`
}

// StartRoundRequest is the API request to start a round.
type StartRoundRequest struct {
	By string `json:"by"`
}

// GuessRequest is the API request to submit a guess.
type GuessRequest struct {
	UserName string `json:"user_name"`
	Text     string `json:"text"`
}

// DrawingRequest is the API request to replace the canvas payload.
type DrawingRequest struct {
	UserName string          `json:"user_name"`
	Payload  json.RawMessage `json:"payload"`
}

// RoundsResponse is the API response for a room's round history.
type RoundsResponse struct {
	RoomKey string                 `json:"room_key"`
	Rounds  []history.RoundOutcome `json:"rounds"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// clientFrame is one client-to-server WebSocket message.
type clientFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// guessPayload is the payload of a submitGuess frame.
type guessPayload struct {
	Text string `json:"text"`
}
