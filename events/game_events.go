package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// RoomCreatedEvent is emitted when a room is initialized.
type RoomCreatedEvent struct {
	RoomKey   string    `json:"room_key"`
	Moderator string    `json:"moderator"`
	Timestamp time.Time `json:"timestamp"`
}

// RoundStartedEvent is emitted when a round transitions lobby -> active.
type RoundStartedEvent struct {
	RoomKey   string    `json:"room_key"`
	Drawer    string    `json:"drawer"`
	Players   int       `json:"players"`
	Duration  int       `json:"duration_seconds"`
	Timestamp time.Time `json:"timestamp"`
}

// RoundEndedEvent is emitted when a round transitions active -> lobby.
type RoundEndedEvent struct {
	RoomKey   string             `json:"room_key"`
	Word      string             `json:"word"`
	Drawer    string             `json:"drawer"`
	Success   bool               `json:"success"` // true when every guesser found the word
	Scores    map[string]float64 `json:"scores"`
	Timestamp time.Time          `json:"timestamp"`
}

// Event definitions for the game domain.
var (
	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"game",
		"RoomCreated",
		"v1",
	)

	RoundStartedV1 = helper.EventDefinition[RoundStartedEvent](
		"game",
		"RoundStarted",
		"v1",
	)

	RoundEndedV1 = helper.EventDefinition[RoundEndedEvent](
		"game",
		"RoundEnded",
		"v1",
	)
)
