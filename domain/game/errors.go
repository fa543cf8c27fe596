package game

import (
	"errors"
	"fmt"
)

var (
	// ErrRoomNotFound indicates the room does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomExists indicates the room was already initialized.
	ErrRoomExists = errors.New("room already exists")
	// ErrNotModerator indicates the caller lacks moderator authority.
	ErrNotModerator = errors.New("only the moderator may do that")
	// ErrNotEnoughPlayers indicates too few connected players to start a round.
	ErrNotEnoughPlayers = errors.New("not enough connected players")
	// ErrRoomFull indicates the room reached its configured player limit.
	ErrRoomFull = errors.New("room is full")
	// ErrRoundActive indicates a round is already in progress.
	ErrRoundActive = errors.New("round already in progress")
	// ErrRoundNotActive indicates no round is in progress.
	ErrRoundNotActive = errors.New("no round in progress")
	// ErrDrawerCannotGuess indicates the current drawer tried to guess.
	ErrDrawerCannotGuess = errors.New("drawer cannot guess")
	// ErrNotDrawer indicates a non-drawer tried to update the drawing.
	ErrNotDrawer = errors.New("only the drawer may update the drawing")
	// ErrUnknownPlayer indicates the named user never joined the room.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrMalformedPayload indicates an unparseable or invalid payload.
	ErrMalformedPayload = errors.New("malformed payload")
)

// Wire codes carry the error taxonomy across the service container boundary,
// where sentinel identity is lost to serialization.
const (
	CodeRoomNotFound      = "room_not_found"
	CodeRoomExists        = "room_exists"
	CodeNotModerator      = "not_moderator"
	CodeNotEnoughPlayers  = "not_enough_players"
	CodeRoomFull          = "room_full"
	CodeRoundActive       = "round_active"
	CodeRoundNotActive    = "round_not_active"
	CodeDrawerCannotGuess = "drawer_cannot_guess"
	CodeNotDrawer         = "not_drawer"
	CodeUnknownPlayer     = "unknown_player"
	CodeMalformed         = "malformed"
)

var codeToErr = map[string]error{
	CodeRoomNotFound:      ErrRoomNotFound,
	CodeRoomExists:        ErrRoomExists,
	CodeNotModerator:      ErrNotModerator,
	CodeNotEnoughPlayers:  ErrNotEnoughPlayers,
	CodeRoomFull:          ErrRoomFull,
	CodeRoundActive:       ErrRoundActive,
	CodeRoundNotActive:    ErrRoundNotActive,
	CodeDrawerCannotGuess: ErrDrawerCannotGuess,
	CodeNotDrawer:         ErrNotDrawer,
	CodeUnknownPlayer:     ErrUnknownPlayer,
	CodeMalformed:         ErrMalformedPayload,
}

// ErrorCode maps err to its wire code, or "" for errors outside the taxonomy.
func ErrorCode(err error) string {
	for code, sentinel := range codeToErr {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}

// ErrorFromCode reconstructs the sentinel error for a wire code. Unknown codes
// produce an opaque error carrying the message.
func ErrorFromCode(code, message string) error {
	if sentinel, ok := codeToErr[code]; ok {
		return sentinel
	}
	if message == "" {
		message = "request failed"
	}
	return fmt.Errorf("%s (code %q)", message, code)
}
