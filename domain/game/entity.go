package game

import (
	"encoding/json"
	"time"
)

// Phase is the lifecycle state of a room. Exactly one phase holds at a time.
type Phase string

const (
	// PhaseLobby means no round is running; settings may change and a round may start.
	PhaseLobby Phase = "lobby"
	// PhaseActive means a round is in progress.
	PhaseActive Phase = "active"
)

// AIPlayerName is the reserved identifier of the simulated AI participant.
const AIPlayerName = "sketchbot"

// Settings holds the per-room game configuration.
type Settings struct {
	GameDuration        int     `json:"game_duration"`         // seconds per round
	MinPlayers          int     `json:"min_players"`
	MaxPlayers          int     `json:"max_players"`
	AIEnabled           bool    `json:"ai_enabled"`
	AIGuessCooldownMS   int     `json:"ai_guess_cooldown_ms"`
	CorrectGuesserScore float64 `json:"correct_guesser_score"`
	CorrectDrawerScore  float64 `json:"correct_drawer_score"`
}

// DefaultSettings returns the settings a freshly created room starts with.
func DefaultSettings() Settings {
	return Settings{
		GameDuration:        60,
		MinPlayers:          2,
		MaxPlayers:          8,
		AIEnabled:           false,
		AIGuessCooldownMS:   5000,
		CorrectGuesserScore: 10,
		CorrectDrawerScore:  5,
	}
}

// Validate checks the settings invariants.
func (s Settings) Validate() error {
	if s.GameDuration <= 0 {
		return ErrMalformedPayload
	}
	if s.MinPlayers < 2 {
		return ErrMalformedPayload
	}
	if s.MaxPlayers < s.MinPlayers {
		return ErrMalformedPayload
	}
	if s.AIGuessCooldownMS < 0 || s.CorrectGuesserScore < 0 || s.CorrectDrawerScore < 0 {
		return ErrMalformedPayload
	}
	return nil
}

// SettingsPatch is a partial settings update; nil fields are left untouched.
type SettingsPatch struct {
	GameDuration        *int     `json:"game_duration,omitempty"`
	MinPlayers          *int     `json:"min_players,omitempty"`
	MaxPlayers          *int     `json:"max_players,omitempty"`
	AIEnabled           *bool    `json:"ai_enabled,omitempty"`
	AIGuessCooldownMS   *int     `json:"ai_guess_cooldown_ms,omitempty"`
	CorrectGuesserScore *float64 `json:"correct_guesser_score,omitempty"`
	CorrectDrawerScore  *float64 `json:"correct_drawer_score,omitempty"`
}

// Merge applies the patch on top of s and returns the result.
func (s Settings) Merge(p SettingsPatch) Settings {
	if p.GameDuration != nil {
		s.GameDuration = *p.GameDuration
	}
	if p.MinPlayers != nil {
		s.MinPlayers = *p.MinPlayers
	}
	if p.MaxPlayers != nil {
		s.MaxPlayers = *p.MaxPlayers
	}
	if p.AIEnabled != nil {
		s.AIEnabled = *p.AIEnabled
	}
	if p.AIGuessCooldownMS != nil {
		s.AIGuessCooldownMS = *p.AIGuessCooldownMS
	}
	if p.CorrectGuesserScore != nil {
		s.CorrectGuesserScore = *p.CorrectGuesserScore
	}
	if p.CorrectDrawerScore != nil {
		s.CorrectDrawerScore = *p.CorrectDrawerScore
	}
	return s
}

// Guess is one submitted guess. The guesses log is append-only within a round.
type Guess struct {
	Player    string    `json:"player"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Correct   bool      `json:"correct"`
}

// RoomData is the authoritative aggregate for one room. It is mutated only by
// the game service, inside that room's serialization window.
type RoomData struct {
	Key           string             `json:"key"`
	Users         []string           `json:"users"` // join order, unique
	Moderator     string             `json:"moderator"`
	Connected     map[string]bool    `json:"connected"`
	Settings      Settings           `json:"settings"`
	Phase         Phase              `json:"phase"`
	TargetWord    string             `json:"target_word,omitempty"`
	CurrentDrawer string             `json:"current_drawer,omitempty"`
	TimeRemaining int                `json:"time_remaining"`
	Guesses       []Guess            `json:"guesses"`
	Scores        map[string]float64 `json:"scores"`
	Drawing       json.RawMessage    `json:"drawing,omitempty"`
	LastAIGuess   time.Time          `json:"last_ai_guess"`
	StatusMessage string             `json:"status_message,omitempty"`
}

// NewRoomData creates the aggregate for a freshly initialized room. The creator
// becomes the moderator and the first user.
func NewRoomData(key, moderator string) *RoomData {
	settings := DefaultSettings()
	return &RoomData{
		Key:           key,
		Users:         []string{moderator},
		Moderator:     moderator,
		Connected:     map[string]bool{moderator: false},
		Settings:      settings,
		Phase:         PhaseLobby,
		TimeRemaining: settings.GameDuration,
		Scores:        map[string]float64{moderator: 0},
	}
}

// HasUser reports whether name has ever joined the room.
func (d *RoomData) HasUser(name string) bool {
	for _, u := range d.Users {
		if u == name {
			return true
		}
	}
	return false
}

// AddUser appends name to the member list if absent. Users only grow; scores
// and connectivity keys are created alongside and never shrink.
func (d *RoomData) AddUser(name string) {
	if d.HasUser(name) {
		return
	}
	d.Users = append(d.Users, name)
	if _, ok := d.Connected[name]; !ok {
		d.Connected[name] = false
	}
	if _, ok := d.Scores[name]; !ok {
		d.Scores[name] = 0
	}
}

// ConnectedUsers returns the currently connected users in join order.
func (d *RoomData) ConnectedUsers() []string {
	var out []string
	for _, u := range d.Users {
		if d.Connected[u] {
			out = append(out, u)
		}
	}
	return out
}

// ConnectedCount returns the number of currently connected users.
func (d *RoomData) ConnectedCount() int {
	n := 0
	for _, u := range d.Users {
		if d.Connected[u] {
			n++
		}
	}
	return n
}

// EarliestConnected returns the earliest-joined connected user, skipping
// exclude. Empty string if nobody qualifies. This is the deterministic
// moderator failover rule.
func (d *RoomData) EarliestConnected(exclude string) string {
	for _, u := range d.Users {
		if u != exclude && d.Connected[u] {
			return u
		}
	}
	return ""
}

// HasCorrectGuess reports whether player has at least one correct guess
// recorded in the current round.
func (d *RoomData) HasCorrectGuess(player string) bool {
	for _, g := range d.Guesses {
		if g.Correct && g.Player == player {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the aggregate. Mutating operations work on a
// clone so a failed persist never leaves a partially applied aggregate behind.
func (d *RoomData) Clone() *RoomData {
	c := *d
	c.Users = append([]string(nil), d.Users...)
	c.Guesses = append([]Guess(nil), d.Guesses...)
	c.Connected = make(map[string]bool, len(d.Connected))
	for k, v := range d.Connected {
		c.Connected[k] = v
	}
	c.Scores = make(map[string]float64, len(d.Scores))
	for k, v := range d.Scores {
		c.Scores[k] = v
	}
	c.Drawing = append(json.RawMessage(nil), d.Drawing...)
	return &c
}

// Snapshot is the client-facing view of a room. TargetWord is present only
// when the snapshot was built for the current drawer.
type Snapshot struct {
	Key           string             `json:"key"`
	Users         []string           `json:"users"`
	Moderator     string             `json:"moderator"`
	Connected     map[string]bool    `json:"connected"`
	Settings      Settings           `json:"settings"`
	Phase         Phase              `json:"phase"`
	TargetWord    string             `json:"target_word,omitempty"`
	CurrentDrawer string             `json:"current_drawer,omitempty"`
	TimeRemaining int                `json:"time_remaining"`
	Guesses       []Guess            `json:"guesses"`
	Scores        map[string]float64 `json:"scores"`
	Drawing       json.RawMessage    `json:"drawing,omitempty"`
	StatusMessage string             `json:"status_message,omitempty"`
}

// SnapshotFor builds the view of the room for requester, redacting the target
// word unless requester is the current drawer.
func (d *RoomData) SnapshotFor(requester string) Snapshot {
	snap := Snapshot{
		Key:           d.Key,
		Users:         append([]string(nil), d.Users...),
		Moderator:     d.Moderator,
		Connected:     make(map[string]bool, len(d.Connected)),
		Settings:      d.Settings,
		Phase:         d.Phase,
		CurrentDrawer: d.CurrentDrawer,
		TimeRemaining: d.TimeRemaining,
		Guesses:       append([]Guess(nil), d.Guesses...),
		Scores:        make(map[string]float64, len(d.Scores)),
		Drawing:       append(json.RawMessage(nil), d.Drawing...),
		StatusMessage: d.StatusMessage,
	}
	for k, v := range d.Connected {
		snap.Connected[k] = v
	}
	for k, v := range d.Scores {
		snap.Scores[k] = v
	}
	if requester != "" && requester == d.CurrentDrawer {
		snap.TargetWord = d.TargetWord
	}
	return snap
}
