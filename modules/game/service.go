package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	domain "github.com/example/draw-guess-demo/domain/game"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(data *domain.RoomData) error
	Load(key string) (*domain.RoomData, error)
	Save(data *domain.RoomData) error
}

// Broadcaster fans committed state changes out to a room's live sessions.
type Broadcaster interface {
	Broadcast(roomKey, kind string, payload any)
	SendToUser(roomKey, userName, kind string, payload any)
	SendTo(sessionID, kind string, payload any)
	UserSessionCount(roomKey, userName string) int
}

// Events receives domain notifications after a mutation has committed.
type Events interface {
	RoomCreated(key, moderator string)
	RoundStarted(key, drawer string, players, duration int)
	RoundEnded(key, word, drawer string, success bool, scores map[string]float64)
}

// errUnchanged aborts an update without persisting or broadcasting anything.
// It is absorbed, never returned to callers.
var errUnchanged = errors.New("no state change")

// roomHandle serializes access to one room. All mutations of the aggregate
// happen while holding mu; data is the last committed aggregate.
type roomHandle struct {
	mu   sync.Mutex
	data *domain.RoomData
}

// outMsg is one queued transport message. Exactly one of the targeting fields
// is set for private sends; both empty means room-wide broadcast.
type outMsg struct {
	kind      string
	payload   any
	toUser    string
	toSession string
}

// outbox collects the messages a mutation wants to send. It is flushed in
// order after the aggregate has been persisted, still inside the room's
// serialization window, so per-room delivery order matches commit order.
type outbox struct {
	msgs []outMsg
}

func (o *outbox) broadcast(kind string, payload any) {
	o.msgs = append(o.msgs, outMsg{kind: kind, payload: payload})
}

func (o *outbox) user(userName, kind string, payload any) {
	o.msgs = append(o.msgs, outMsg{kind: kind, payload: payload, toUser: userName})
}

func (o *outbox) session(sessionID, kind string, payload any) {
	o.msgs = append(o.msgs, outMsg{kind: kind, payload: payload, toSession: sessionID})
}

// Service is the authoritative game engine. Every operation on a room runs
// inside that room's serialization window; different rooms proceed in
// parallel.
type Service struct {
	store Store
	hub   Broadcaster
	words *WordList
	timer *RoundTimer
	sink  Events

	mu    sync.Mutex
	rooms map[string]*roomHandle

	// Seams for tests.
	nowFn     func() time.Time
	randFloat func() float64
	randIntn  func(n int) int
}

// NewService creates the game engine.
func NewService(store Store, hub Broadcaster, words *WordList) *Service {
	s := &Service{
		store:     store,
		hub:       hub,
		words:     words,
		rooms:     make(map[string]*roomHandle),
		nowFn:     time.Now,
		randFloat: rand.Float64,
		randIntn:  rand.Intn,
	}
	s.timer = NewRoundTimer(time.Second, s.handleTick)
	return s
}

// SetEvents installs the post-commit notification sink.
func (s *Service) SetEvents(sink Events) {
	s.sink = sink
}

// Timer exposes the round timer, for lifecycle wiring and health reporting.
func (s *Service) Timer() *RoundTimer {
	return s.timer
}

// Close stops all running countdowns.
func (s *Service) Close() {
	s.timer.StopAll()
}

func (s *Service) handle(key string) *roomHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.rooms[key]
	if !ok {
		h = &roomHandle{}
		s.rooms[key] = h
	}
	return h
}

// update runs fn against a clone of the room aggregate inside the room's
// serialization window. On success the clone is persisted, installed as the
// committed state, and the outbox is flushed in order. On any error the
// committed aggregate is untouched and nothing is sent.
func (s *Service) update(key string, fn func(d *domain.RoomData, out *outbox) error) error {
	h := s.handle(key)
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.data == nil {
		data, err := s.store.Load(key)
		if err != nil {
			return err
		}
		h.data = data
	}

	work := h.data.Clone()
	out := &outbox{}
	if err := fn(work, out); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	if err := s.store.Save(work); err != nil {
		return fmt.Errorf("room %s: persist failed: %w", key, err)
	}
	h.data = work
	s.flush(key, out)
	return nil
}

// view runs fn against the committed aggregate under the room's lock. fn must
// not mutate the aggregate.
func (s *Service) view(key string, fn func(d *domain.RoomData) error) error {
	h := s.handle(key)
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.data == nil {
		data, err := s.store.Load(key)
		if err != nil {
			return err
		}
		h.data = data
	}
	return fn(h.data)
}

func (s *Service) flush(key string, out *outbox) {
	for _, m := range out.msgs {
		switch {
		case m.toSession != "":
			s.hub.SendTo(m.toSession, m.kind, m.payload)
		case m.toUser != "":
			s.hub.SendToUser(key, m.toUser, m.kind, m.payload)
		default:
			s.hub.Broadcast(key, m.kind, m.payload)
		}
	}
}

// Create initializes a room with the creator as moderator and sole member.
func (s *Service) Create(key, moderator string) (domain.Snapshot, error) {
	if key == "" || moderator == "" {
		return domain.Snapshot{}, domain.ErrMalformedPayload
	}

	data := domain.NewRoomData(key, moderator)
	if err := s.store.Create(data); err != nil {
		return domain.Snapshot{}, err
	}

	h := s.handle(key)
	h.mu.Lock()
	if h.data == nil {
		h.data = data
	}
	snap := h.data.SnapshotFor("")
	h.mu.Unlock()

	log.Printf("[game] Room %s created, moderator %s", key, moderator)
	if s.sink != nil {
		s.sink.RoomCreated(key, moderator)
	}
	return snap, nil
}

// Join adds a user to the room's member list. Joining is idempotent; a
// returning member never trips the capacity check.
func (s *Service) Join(key, userName string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.update(key, func(d *domain.RoomData, out *outbox) error {
		if userName == "" {
			return domain.ErrMalformedPayload
		}
		if !d.HasUser(userName) {
			if len(d.Users) >= d.Settings.MaxPlayers {
				return domain.ErrRoomFull
			}
			d.AddUser(userName)
			out.broadcast(domain.EventUserJoined, map[string]any{
				"user":   userName,
				"users":  append([]string(nil), d.Users...),
				"scores": cloneScores(d.Scores),
			})
		}
		snap = d.SnapshotFor(userName)
		return nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// Connect marks a user's session as live. The session receives the full room
// snapshot, then everyone is told about the connection. Unknown users are
// added on the way in, subject to capacity.
func (s *Service) Connect(key, userName, sessionID string) error {
	return s.update(key, func(d *domain.RoomData, out *outbox) error {
		if userName == "" {
			return domain.ErrMalformedPayload
		}
		if !d.HasUser(userName) {
			if len(d.Users) >= d.Settings.MaxPlayers {
				return domain.ErrRoomFull
			}
			d.AddUser(userName)
		}
		d.Connected[userName] = true

		out.session(sessionID, domain.EventInitialize, d.SnapshotFor(userName))
		out.broadcast(domain.EventConnectionStatus, map[string]any{
			"user":      userName,
			"connected": true,
		})
		return nil
	})
}

// Disconnect handles a session going away. Only when the user's last session
// is gone does the room see a disconnect; if the departing user moderated,
// the earliest-joined connected user inherits the role.
func (s *Service) Disconnect(key, userName string) error {
	if s.hub.UserSessionCount(key, userName) > 0 {
		return nil
	}
	return s.update(key, func(d *domain.RoomData, out *outbox) error {
		if !d.Connected[userName] {
			return errUnchanged
		}
		d.Connected[userName] = false
		out.broadcast(domain.EventConnectionStatus, map[string]any{
			"user":      userName,
			"connected": false,
		})

		if userName == d.Moderator {
			if next := d.EarliestConnected(userName); next != "" {
				d.Moderator = next
				out.broadcast(domain.EventNewModerator, map[string]any{
					"moderator": next,
				})
				log.Printf("[game] Room %s: moderator handed from %s to %s", key, userName, next)
			}
		}
		return nil
	})
}

// StartRound begins a round: picks a secret word and a random human drawer,
// resets round state, and starts the countdown. Moderator only.
func (s *Service) StartRound(key, by string) error {
	var (
		drawer   string
		players  int
		duration int
	)
	err := s.update(key, func(d *domain.RoomData, out *outbox) error {
		if d.Phase != domain.PhaseLobby {
			return domain.ErrRoundActive
		}
		if by != d.Moderator {
			return domain.ErrNotModerator
		}
		if d.ConnectedCount() < d.Settings.MinPlayers {
			return domain.ErrNotEnoughPlayers
		}

		var humans []string
		for _, u := range d.ConnectedUsers() {
			if u != domain.AIPlayerName {
				humans = append(humans, u)
			}
		}
		if len(humans) == 0 {
			return domain.ErrNotEnoughPlayers
		}

		d.TargetWord = s.words.Random(s.randIntn)
		d.CurrentDrawer = humans[s.randIntn(len(humans))]
		d.TimeRemaining = d.Settings.GameDuration
		d.Guesses = nil
		d.Drawing = nil
		d.LastAIGuess = time.Time{}
		d.StatusMessage = ""
		for u := range d.Scores {
			d.Scores[u] = 0
		}
		if d.Settings.AIEnabled {
			d.AddUser(domain.AIPlayerName)
			d.Connected[domain.AIPlayerName] = true
		}
		d.Phase = domain.PhaseActive

		drawer = d.CurrentDrawer
		players = d.ConnectedCount()
		duration = d.Settings.GameDuration

		out.broadcast(domain.EventGameStarted, d.SnapshotFor(""))
		out.user(d.CurrentDrawer, domain.EventYouAreDrawing, map[string]any{
			"word": d.TargetWord,
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.timer.Start(key)
	log.Printf("[game] Room %s: round started, drawer %s, %d players", key, drawer, players)
	if s.sink != nil {
		s.sink.RoundStarted(key, drawer, players, duration)
	}
	return nil
}

// Tick advances the countdown by one second. Ticks arriving after the round
// ended are ignored, so a stale timer fire can never corrupt the next round.
func (s *Service) Tick(key string) error {
	var (
		ended *roundOutcome
		stale bool
	)
	err := s.update(key, func(d *domain.RoomData, out *outbox) error {
		if d.Phase != domain.PhaseActive {
			stale = true
			return errUnchanged
		}
		d.TimeRemaining--
		if d.TimeRemaining <= 0 {
			ended = endRound(d, out, false)
			return nil
		}
		out.broadcast(domain.EventTimeUpdate, map[string]any{
			"time_remaining": d.TimeRemaining,
		})
		return nil
	})
	if err != nil {
		return err
	}
	if stale {
		// A tick that raced past the round's end retires its own countdown.
		s.timer.Stop(key)
		return nil
	}
	s.finishRound(key, ended)
	return nil
}

// SubmitGuess records a guess by a room member. Correct guesses score, and
// the round ends early once every eligible guesser has found the word.
func (s *Service) SubmitGuess(key, userName, text string) error {
	var ended *roundOutcome
	err := s.update(key, func(d *domain.RoomData, out *outbox) error {
		if userName == "" || strings.TrimSpace(text) == "" {
			return domain.ErrMalformedPayload
		}
		if !d.HasUser(userName) {
			return domain.ErrUnknownPlayer
		}
		if d.Phase != domain.PhaseActive {
			return domain.ErrRoundNotActive
		}
		if userName == d.CurrentDrawer {
			return domain.ErrDrawerCannotGuess
		}
		ended = s.applyGuess(d, out, userName, text)
		return nil
	})
	if err != nil {
		return err
	}
	s.finishRound(key, ended)
	return nil
}

// applyGuess appends the guess, scores it, and ends the round when the last
// outstanding guesser got it. Shared between human submissions and the AI.
func (s *Service) applyGuess(d *domain.RoomData, out *outbox, player, text string) *roundOutcome {
	correct := strings.EqualFold(strings.TrimSpace(text), d.TargetWord)
	alreadyScored := d.HasCorrectGuess(player)

	d.Guesses = append(d.Guesses, domain.Guess{
		Player:    player,
		Text:      text,
		Timestamp: s.nowFn(),
		Correct:   correct,
	})

	if !correct {
		out.broadcast(domain.EventNewGuess, map[string]any{
			"player": player,
			"text":   text,
		})
		return nil
	}

	if !alreadyScored {
		d.Scores[player] += guesserPoints(d.Settings.CorrectGuesserScore, d.TimeRemaining, d.Settings.GameDuration)
		d.Scores[d.CurrentDrawer] += drawerPoints(
			d.Settings.CorrectDrawerScore,
			d.TimeRemaining,
			d.Settings.GameDuration,
			nonDrawerHumanCount(d),
		)
	}

	if allGuessersDone(d) {
		return endRound(d, out, true)
	}

	out.broadcast(domain.EventCorrectGuess, map[string]any{
		"player": player,
		"scores": cloneScores(d.Scores),
	})
	return nil
}

// UpdateDrawing accepts a canvas update from the current drawer, rebroadcasts
// it, and gives the AI (when enabled and off cooldown) a chance to guess.
func (s *Service) UpdateDrawing(key, userName string, payload json.RawMessage) error {
	var ended *roundOutcome
	err := s.update(key, func(d *domain.RoomData, out *outbox) error {
		if userName == "" || len(payload) == 0 || !json.Valid(payload) {
			return domain.ErrMalformedPayload
		}
		if !d.HasUser(userName) {
			return domain.ErrUnknownPlayer
		}
		if d.Phase != domain.PhaseActive {
			return domain.ErrRoundNotActive
		}
		if userName != d.CurrentDrawer {
			return domain.ErrNotDrawer
		}

		d.Drawing = append(json.RawMessage(nil), payload...)
		out.broadcast(domain.EventDrawingUpdate, map[string]any{
			"artist":  userName,
			"drawing": d.Drawing,
		})

		if d.Settings.AIEnabled && d.Connected[domain.AIPlayerName] {
			ended = s.maybeAIGuess(d, out)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.finishRound(key, ended)
	return nil
}

// UpdateSettings merges a partial settings update. Moderator only; rejected
// while a round is active.
func (s *Service) UpdateSettings(key, by string, patch domain.SettingsPatch) (domain.Settings, error) {
	var merged domain.Settings
	err := s.update(key, func(d *domain.RoomData, out *outbox) error {
		if by != d.Moderator {
			return domain.ErrNotModerator
		}
		if d.Phase != domain.PhaseLobby {
			return domain.ErrRoundActive
		}
		next := d.Settings.Merge(patch)
		if err := next.Validate(); err != nil {
			return err
		}
		d.Settings = next
		d.TimeRemaining = next.GameDuration
		merged = next
		out.broadcast(domain.EventSettingsUpdated, next)
		return nil
	})
	if err != nil {
		return domain.Settings{}, err
	}
	return merged, nil
}

// GetSettings returns the room's current settings.
func (s *Service) GetSettings(key string) (domain.Settings, error) {
	var settings domain.Settings
	err := s.view(key, func(d *domain.RoomData) error {
		settings = d.Settings
		return nil
	})
	if err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

// GetState returns the room snapshot as seen by requester. The target word is
// present only for the current drawer.
func (s *Service) GetState(key, requester string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.view(key, func(d *domain.RoomData) error {
		snap = d.SnapshotFor(requester)
		return nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// roundOutcome captures what finishRound needs after the commit.
type roundOutcome struct {
	word    string
	drawer  string
	success bool
	scores  map[string]float64
}

// endRound transitions active -> lobby inside the serialization window. The
// state reset and the roundEnd broadcast commit atomically, so the round ends
// exactly once no matter whether a guess or a tick got there first.
func endRound(d *domain.RoomData, out *outbox, success bool) *roundOutcome {
	outcome := &roundOutcome{
		word:    d.TargetWord,
		drawer:  d.CurrentDrawer,
		success: success,
		scores:  cloneScores(d.Scores),
	}

	if success {
		d.StatusMessage = fmt.Sprintf("Everyone guessed %q!", d.TargetWord)
	} else {
		d.StatusMessage = fmt.Sprintf("Time's up! The word was %q.", d.TargetWord)
	}
	d.Phase = domain.PhaseLobby
	d.TargetWord = ""
	d.CurrentDrawer = ""
	d.TimeRemaining = d.Settings.GameDuration

	out.broadcast(domain.EventRoundEnd, map[string]any{
		"word":           outcome.word,
		"success":        success,
		"scores":         outcome.scores,
		"status_message": d.StatusMessage,
	})
	return outcome
}

// finishRound runs the post-commit side of a round ending: stopping the
// countdown and emitting the domain event.
func (s *Service) finishRound(key string, outcome *roundOutcome) {
	if outcome == nil {
		return
	}
	s.timer.Stop(key)
	log.Printf("[game] Room %s: round ended (word %q, success=%v)", key, outcome.word, outcome.success)
	if s.sink != nil {
		s.sink.RoundEnded(key, outcome.word, outcome.drawer, outcome.success, outcome.scores)
	}
}

func (s *Service) handleTick(key string) {
	if err := s.Tick(key); err != nil {
		log.Printf("[game] Room %s: tick failed: %v", key, err)
	}
}

// allGuessersDone reports whether every member other than the drawer has a
// correct guess this round. The AI counts as a guesser when it has joined.
func allGuessersDone(d *domain.RoomData) bool {
	for _, u := range d.Users {
		if u == d.CurrentDrawer {
			continue
		}
		if !d.HasCorrectGuess(u) {
			return false
		}
	}
	return true
}

// nonDrawerHumanCount is the denominator of the drawer's score pool: every
// member except the drawer and the AI.
func nonDrawerHumanCount(d *domain.RoomData) int {
	n := 0
	for _, u := range d.Users {
		if u != d.CurrentDrawer && u != domain.AIPlayerName {
			n++
		}
	}
	return n
}

func cloneScores(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for k, v := range scores {
		out[k] = v
	}
	return out
}
