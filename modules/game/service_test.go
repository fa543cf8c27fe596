package game

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/example/draw-guess-demo/domain/game"
)

// memStore is an in-memory Store that round-trips aggregates through JSON,
// the same way the persistent store does.
type memStore struct {
	mu       sync.Mutex
	rooms    map[string][]byte
	failSave bool
}

func newMemStore() *memStore {
	return &memStore{rooms: make(map[string][]byte)}
}

func (s *memStore) Create(d *domain.RoomData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[d.Key]; ok {
		return domain.ErrRoomExists
	}
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	s.rooms[d.Key] = b
	return nil
}

func (s *memStore) Load(key string) (*domain.RoomData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rooms[key]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	var d domain.RoomData
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *memStore) Save(d *domain.RoomData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return fmt.Errorf("disk full")
	}
	if _, ok := s.rooms[d.Key]; !ok {
		return domain.ErrRoomNotFound
	}
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	s.rooms[d.Key] = b
	return nil
}

// sentMsg records one message handed to the hub.
type sentMsg struct {
	scope   string // "broadcast", "user" or "session"
	target  string
	kind    string
	payload any
}

type recordingHub struct {
	mu       sync.Mutex
	sent     []sentMsg
	sessions map[string]int // roomKey+"/"+userName -> live session count
}

func newRecordingHub() *recordingHub {
	return &recordingHub{sessions: make(map[string]int)}
}

func (h *recordingHub) Broadcast(roomKey, kind string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentMsg{scope: "broadcast", target: roomKey, kind: kind, payload: payload})
}

func (h *recordingHub) SendToUser(roomKey, userName, kind string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentMsg{scope: "user", target: userName, kind: kind, payload: payload})
}

func (h *recordingHub) SendTo(sessionID, kind string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentMsg{scope: "session", target: sessionID, kind: kind, payload: payload})
}

func (h *recordingHub) UserSessionCount(roomKey, userName string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[roomKey+"/"+userName]
}

func (h *recordingHub) byKind(kind string) []sentMsg {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []sentMsg
	for _, m := range h.sent {
		if m.kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func (h *recordingHub) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = nil
}

type endedEvent struct {
	key     string
	word    string
	drawer  string
	success bool
	scores  map[string]float64
}

type recordingSink struct {
	mu      sync.Mutex
	created []string
	started []string
	ended   []endedEvent
}

func (s *recordingSink) RoomCreated(key, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, key)
}

func (s *recordingSink) RoundStarted(key, _ string, _, _ int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, key)
}

func (s *recordingSink) RoundEnded(key, word, drawer string, success bool, scores map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = append(s.ended, endedEvent{key: key, word: word, drawer: drawer, success: success, scores: scores})
}

func (s *recordingSink) endedEvents() []endedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]endedEvent(nil), s.ended...)
}

type fixture struct {
	svc   *Service
	store *memStore
	hub   *recordingHub
	sink  *recordingSink
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: newMemStore(),
		hub:   newRecordingHub(),
		sink:  &recordingSink{},
		now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.hub, DefaultWordList())
	f.svc.SetEvents(f.sink)
	f.svc.nowFn = func() time.Time { return f.now }
	f.svc.randIntn = func(int) int { return 0 }
	f.svc.randFloat = func() float64 { return 0.99 }
	t.Cleanup(f.svc.Close)
	return f
}

// newRoom creates room1 with users[0] as moderator and connects everyone in
// order.
func (f *fixture) newRoom(t *testing.T, users ...string) {
	t.Helper()
	_, err := f.svc.Create("room1", users[0])
	require.NoError(t, err)
	for _, u := range users {
		require.NoError(t, f.svc.Connect("room1", u, "sess-"+u))
	}
	f.hub.reset()
}

// startRound begins a round and detaches the wall-clock countdown so tests
// drive ticks by hand.
func (f *fixture) startRound(t *testing.T, by string) {
	t.Helper()
	require.NoError(t, f.svc.StartRound("room1", by))
	f.svc.Timer().Stop("room1")
}

func (f *fixture) tick(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.svc.Tick("room1"))
	}
}

func TestService_CreateRoom(t *testing.T) {
	f := newFixture(t)

	snap, err := f.svc.Create("room1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", snap.Moderator)
	assert.Equal(t, []string{"alice"}, snap.Users)
	assert.Equal(t, domain.PhaseLobby, snap.Phase)
	assert.Equal(t, []string{"room1"}, f.sink.created)

	_, err = f.svc.Create("room1", "bob")
	assert.ErrorIs(t, err, domain.ErrRoomExists)

	_, err = f.svc.Create("room2", "")
	assert.ErrorIs(t, err, domain.ErrMalformedPayload)
}

func TestService_Join(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice")

	snap, err := f.svc.Join("room1", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, snap.Users)
	assert.Len(t, f.hub.byKind(domain.EventUserJoined), 1)

	// Joining again is idempotent and silent.
	f.hub.reset()
	_, err = f.svc.Join("room1", "bob")
	require.NoError(t, err)
	assert.Empty(t, f.hub.byKind(domain.EventUserJoined))

	_, err = f.svc.Join("missing", "bob")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestService_Join_RoomFull(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice")

	two := 2
	_, err := f.svc.UpdateSettings("room1", "alice", domain.SettingsPatch{MaxPlayers: &two})
	require.NoError(t, err)

	_, err = f.svc.Join("room1", "bob")
	require.NoError(t, err)
	_, err = f.svc.Join("room1", "carol")
	assert.ErrorIs(t, err, domain.ErrRoomFull)

	// Existing members never trip the capacity check.
	_, err = f.svc.Join("room1", "alice")
	assert.NoError(t, err)
}

func TestService_Connect(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create("room1", "alice")
	require.NoError(t, err)

	require.NoError(t, f.svc.Connect("room1", "bob", "sess-bob"))

	inits := f.hub.byKind(domain.EventInitialize)
	require.Len(t, inits, 1)
	assert.Equal(t, "session", inits[0].scope)
	assert.Equal(t, "sess-bob", inits[0].target)
	snap, ok := inits[0].payload.(domain.Snapshot)
	require.True(t, ok)
	assert.True(t, snap.Connected["bob"])

	statuses := f.hub.byKind(domain.EventConnectionStatus)
	require.Len(t, statuses, 1)
	assert.Equal(t, "broadcast", statuses[0].scope)

	assert.ErrorIs(t, f.svc.Connect("missing", "bob", "s1"), domain.ErrRoomNotFound)
	assert.ErrorIs(t, f.svc.Connect("room1", "", "s1"), domain.ErrMalformedPayload)
}

func TestService_Disconnect_SessionsRemain(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice", "bob")

	f.hub.sessions["room1/bob"] = 1
	require.NoError(t, f.svc.Disconnect("room1", "bob"))
	assert.Empty(t, f.hub.sent, "disconnect with live sessions left must be silent")

	snap, err := f.svc.GetState("room1", "")
	require.NoError(t, err)
	assert.True(t, snap.Connected["bob"])
}

func TestService_Disconnect_ModeratorFailover(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice", "bob", "carol")

	require.NoError(t, f.svc.Disconnect("room1", "alice"))

	statuses := f.hub.byKind(domain.EventConnectionStatus)
	require.Len(t, statuses, 1)

	handoffs := f.hub.byKind(domain.EventNewModerator)
	require.Len(t, handoffs, 1, "exactly one newModerator broadcast")
	payload := handoffs[0].payload.(map[string]any)
	assert.Equal(t, "bob", payload["moderator"], "earliest-joined connected user inherits")

	// A duplicate disconnect changes nothing and stays silent.
	f.hub.reset()
	require.NoError(t, f.svc.Disconnect("room1", "alice"))
	assert.Empty(t, f.hub.sent)
}

func TestService_Disconnect_LastUserKeepsModerator(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice")

	require.NoError(t, f.svc.Disconnect("room1", "alice"))

	assert.Empty(t, f.hub.byKind(domain.EventNewModerator))
	snap, err := f.svc.GetState("room1", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", snap.Moderator, "no eligible successor leaves the role in place")
}

func TestService_StartRound(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice", "bob", "carol")

	assert.ErrorIs(t, f.svc.StartRound("room1", "bob"), domain.ErrNotModerator)

	f.startRound(t, "alice")

	snap, err := f.svc.GetState("room1", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseActive, snap.Phase)
	assert.Equal(t, "alice", snap.CurrentDrawer)
	assert.Equal(t, 60, snap.TimeRemaining)

	started := f.hub.byKind(domain.EventGameStarted)
	require.Len(t, started, 1)
	publicSnap := started[0].payload.(domain.Snapshot)
	assert.Empty(t, publicSnap.TargetWord, "gameStarted broadcast must not leak the word")

	private := f.hub.byKind(domain.EventYouAreDrawing)
	require.Len(t, private, 1)
	assert.Equal(t, "user", private[0].scope)
	assert.Equal(t, "alice", private[0].target)
	word := private[0].payload.(map[string]any)["word"].(string)
	assert.NotEmpty(t, word)

	assert.Equal(t, []string{"room1"}, f.sink.started)
	assert.ErrorIs(t, f.svc.StartRound("room1", "alice"), domain.ErrRoundActive)
}

func TestService_StartRound_NotEnoughPlayers(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice")

	assert.ErrorIs(t, f.svc.StartRound("room1", "alice"), domain.ErrNotEnoughPlayers)
}

func TestService_StartRound_ResetsScores(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice", "bob")
	f.startRound(t, "alice")
	require.NoError(t, f.svc.SubmitGuess("room1", "bob", "airplane")) // ends the round

	f.hub.reset()
	f.startRound(t, "alice")
	started := f.hub.byKind(domain.EventGameStarted)
	require.Len(t, started, 1)
	snap := started[0].payload.(domain.Snapshot)
	for user, score := range snap.Scores {
		assert.Zero(t, score, "score of %s must reset at round start", user)
	}
}

func TestService_SubmitGuess_ScoringFixture(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice", "bob", "carol")
	f.startRound(t, "alice") // drawer alice, word "airplane"
	f.tick(t, 30)            // halfway through a 60s round

	require.NoError(t, f.svc.SubmitGuess("room1", "bob", "AIRPLANE"))

	snap, err := f.svc.GetState("room1", "")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, snap.Scores["bob"], 1e-9, "10 * 30/60")
	assert.InDelta(t, 1.3, snap.Scores["alice"], 1e-9, "5 * 30/60 / 2, rounded away from zero")

	correct := f.hub.byKind(domain.EventCorrectGuess)
	require.Len(t, correct, 1)
	assert.Equal(t, "bob", correct[0].payload.(map[string]any)["player"])

	// Last outstanding guesser ends the round.
	require.NoError(t, f.svc.SubmitGuess("room1", "carol", "airplane"))

	ends := f.hub.byKind(domain.EventRoundEnd)
	require.Len(t, ends, 1)
	endPayload := ends[0].payload.(map[string]any)
	assert.Equal(t, "airplane", endPayload["word"])
	assert.Equal(t, true, endPayload["success"])

	ended := f.sink.endedEvents()
	require.Len(t, ended, 1)
	assert.True(t, ended[0].success)
	assert.Equal(t, "alice", ended[0].drawer)
	assert.InDelta(t, 2.6, ended[0].scores["alice"], 1e-9)
	assert.InDelta(t, 5.0, ended[0].scores["carol"], 1e-9)

	snap, err = f.svc.GetState("room1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseLobby, snap.Phase)
	assert.Empty(t, snap.CurrentDrawer)
	assert.Equal(t, 60, snap.TimeRemaining, "countdown resets for the next round")
	assert.False(t, f.svc.Timer().Active("room1"))
}

func TestService_SubmitGuess_WrongGuess(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice", "bob")
	f.startRound(t, "alice")
	f.hub.reset()

	require.NoError(t, f.svc.SubmitGuess("room1", "bob", "submarine"))

	guesses := f.hub.byKind(domain.EventNewGuess)
	require.Len(t, guesses, 1)
	assert.Empty(t, f.hub.byKind(domain.EventCorrectGuess))

	snap, err := f.svc.GetState("room1", "")
	require.NoError(t, err)
	assert.Zero(t, snap.Scores["bob"])
	assert.Equal(t, domain.PhaseActive, snap.Phase)
}

func TestService_SubmitGuess_RepeatCorrectScoresOnce(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice", "bob", "carol")
	f.startRound(t, "alice")

	require.NoError(t, f.svc.SubmitGuess("room1", "bob", "airplane"))
	first, err := f.svc.GetState("room1", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.SubmitGuess("room1", "bob", "airplane"))
	second, err := f.svc.GetState("room1", "")
	require.NoError(t, err)

	assert.Equal(t, first.Scores["bob"], second.Scores["bob"])
	assert.Equal(t, first.Scores["alice"], second.Scores["alice"])
}

func TestService_SubmitGuess_Errors(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice", "bob")

	assert.ErrorIs(t, f.svc.SubmitGuess("room1", "bob", "cat"), domain.ErrRoundNotActive)

	f.startRound(t, "alice")
	assert.ErrorIs(t, f.svc.SubmitGuess("room1", "alice", "cat"), domain.ErrDrawerCannotGuess)
	assert.ErrorIs(t, f.svc.SubmitGuess("room1", "mallory", "cat"), domain.ErrUnknownPlayer)
	assert.ErrorIs(t, f.svc.SubmitGuess("room1", "bob", "   "), domain.ErrMalformedPayload)
}

func TestService_Tick_Expiry(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice", "bob")

	three := 3
	_, err := f.svc.UpdateSettings("room1", "alice", domain.SettingsPatch{GameDuration: &three})
	require.NoError(t, err)

	f.startRound(t, "alice")
	f.hub.reset()
	f.tick(t, 3)

	assert.Len(t, f.hub.byKind(domain.EventTimeUpdate), 2, "final tick broadcasts roundEnd, not timeUpdate")
	ends := f.hub.byKind(domain.EventRoundEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, false, ends[0].payload.(map[string]any)["success"])

	ended := f.sink.endedEvents()
	require.Len(t, ended, 1)
	assert.False(t, ended[0].success)

	// Stale ticks after the round ended are inert.
	f.hub.reset()
	f.tick(t, 5)
	assert.Empty(t, f.hub.sent)
	assert.Len(t, f.sink.endedEvents(), 1, "round must end exactly once")
}

func TestService_UpdateSettings(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice", "bob")

	ninety := 90
	_, err := f.svc.UpdateSettings("room1", "bob", domain.SettingsPatch{GameDuration: &ninety})
	assert.ErrorIs(t, err, domain.ErrNotModerator)

	settings, err := f.svc.UpdateSettings("room1", "alice", domain.SettingsPatch{GameDuration: &ninety})
	require.NoError(t, err)
	assert.Equal(t, 90, settings.GameDuration)
	assert.Len(t, f.hub.byKind(domain.EventSettingsUpdated), 1)

	snap, err := f.svc.GetState("room1", "")
	require.NoError(t, err)
	assert.Equal(t, 90, snap.TimeRemaining, "lobby countdown display follows the new duration")

	zero := 0
	_, err = f.svc.UpdateSettings("room1", "alice", domain.SettingsPatch{GameDuration: &zero})
	assert.ErrorIs(t, err, domain.ErrMalformedPayload)

	f.startRound(t, "alice")
	_, err = f.svc.UpdateSettings("room1", "alice", domain.SettingsPatch{GameDuration: &ninety})
	assert.ErrorIs(t, err, domain.ErrRoundActive)
}

func TestService_GetState_Redaction(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice", "bob")
	f.startRound(t, "alice")

	drawerView, err := f.svc.GetState("room1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "airplane", drawerView.TargetWord)

	guesserView, err := f.svc.GetState("room1", "bob")
	require.NoError(t, err)
	assert.Empty(t, guesserView.TargetWord)

	anonView, err := f.svc.GetState("room1", "")
	require.NoError(t, err)
	assert.Empty(t, anonView.TargetWord)
}

func TestService_UpdateDrawing(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice", "bob")

	stroke := json.RawMessage(`{"lines":[[0,0],[4,2]]}`)

	assert.ErrorIs(t, f.svc.UpdateDrawing("room1", "alice", stroke), domain.ErrRoundNotActive)

	f.startRound(t, "alice")
	f.hub.reset()

	assert.ErrorIs(t, f.svc.UpdateDrawing("room1", "bob", stroke), domain.ErrNotDrawer)
	assert.ErrorIs(t, f.svc.UpdateDrawing("room1", "alice", json.RawMessage(`{broken`)), domain.ErrMalformedPayload)
	assert.ErrorIs(t, f.svc.UpdateDrawing("room1", "alice", nil), domain.ErrMalformedPayload)

	require.NoError(t, f.svc.UpdateDrawing("room1", "alice", stroke))
	updates := f.hub.byKind(domain.EventDrawingUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, "alice", updates[0].payload.(map[string]any)["artist"])

	snap, err := f.svc.GetState("room1", "")
	require.NoError(t, err)
	assert.JSONEq(t, string(stroke), string(snap.Drawing))
}

func TestService_PersistFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	f.newRoom(t, "alice", "bob")

	f.store.failSave = true
	err := f.svc.StartRound("room1", "alice")
	require.Error(t, err)
	assert.Empty(t, f.hub.sent, "nothing is broadcast when the commit fails")

	f.store.failSave = false
	snap, err := f.svc.GetState("room1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseLobby, snap.Phase)
	assert.Empty(t, snap.CurrentDrawer)

	// The room recovers once persistence does.
	require.NoError(t, f.svc.StartRound("room1", "alice"))
	f.svc.Timer().Stop("room1")
}

func TestService_ConcurrentGuessesSerialize(t *testing.T) {
	f := newFixture(t)
	users := []string{"alice", "bob", "carol", "dave", "erin"}
	f.newRoom(t, users...)
	f.startRound(t, "alice")

	var wg sync.WaitGroup
	for _, u := range users[1:] {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(user string, n int) {
				defer wg.Done()
				// A mix of wrong guesses and the correct word from every guesser.
				if n == 4 {
					_ = f.svc.SubmitGuess("room1", user, "airplane")
				} else {
					_ = f.svc.SubmitGuess("room1", user, fmt.Sprintf("wrong-%s-%d", user, n))
				}
			}(u, i)
		}
	}
	wg.Wait()

	assert.Len(t, f.sink.endedEvents(), 1, "round ends exactly once under concurrency")
	assert.Len(t, f.hub.byKind(domain.EventRoundEnd), 1)

	snap, err := f.svc.GetState("room1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseLobby, snap.Phase)
	for _, u := range users[1:] {
		assert.Greater(t, snap.Scores[u], 0.0, "every guesser scored exactly their first correct guess")
	}
}
