package game

import (
	"encoding/json"

	domain "github.com/example/draw-guess-demo/domain/game"
)

// Request/reply service names exposed by the game module.
const (
	ServiceCreateRoom     = "create-room"
	ServiceJoinRoom       = "join-room"
	ServiceGetSettings    = "get-settings"
	ServiceUpdateSettings = "update-settings"
	ServiceStartRound     = "start-round"
	ServiceSubmitGuess    = "submit-guess"
	ServiceUpdateDrawing  = "update-drawing"
	ServiceGetState       = "get-state"
)

// ServiceError carries the error taxonomy across the serialized service
// boundary, where sentinel identity would otherwise be lost.
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// CreateRoomRequest asks for a new room. Key may be empty, in which case the
// engine's caller generates one.
type CreateRoomRequest struct {
	Key       string `json:"key"`
	Moderator string `json:"moderator"`
}

// JoinRoomRequest adds a user to a room's member list.
type JoinRoomRequest struct {
	Key      string `json:"key"`
	UserName string `json:"user_name"`
}

// RoomResponse returns a room snapshot or a service error.
type RoomResponse struct {
	Room *domain.Snapshot `json:"room,omitempty"`
	Err  *ServiceError    `json:"error,omitempty"`
}

// GetSettingsRequest fetches a room's settings.
type GetSettingsRequest struct {
	Key string `json:"key"`
}

// UpdateSettingsRequest applies a partial settings update on behalf of By.
type UpdateSettingsRequest struct {
	Key   string               `json:"key"`
	By    string               `json:"by"`
	Patch domain.SettingsPatch `json:"patch"`
}

// SettingsResponse returns room settings or a service error.
type SettingsResponse struct {
	Settings *domain.Settings `json:"settings,omitempty"`
	Err      *ServiceError    `json:"error,omitempty"`
}

// StartRoundRequest begins a round on behalf of By.
type StartRoundRequest struct {
	Key string `json:"key"`
	By  string `json:"by"`
}

// SubmitGuessRequest records a guess.
type SubmitGuessRequest struct {
	Key      string `json:"key"`
	UserName string `json:"user_name"`
	Text     string `json:"text"`
}

// UpdateDrawingRequest replaces the canvas payload.
type UpdateDrawingRequest struct {
	Key      string          `json:"key"`
	UserName string          `json:"user_name"`
	Payload  json.RawMessage `json:"payload"`
}

// GetStateRequest fetches a room snapshot as seen by Requester.
type GetStateRequest struct {
	Key       string `json:"key"`
	Requester string `json:"requester"`
}

// AckResponse acknowledges an operation with no payload.
type AckResponse struct {
	OK  bool          `json:"ok"`
	Err *ServiceError `json:"error,omitempty"`
}
