package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	gonanoid "github.com/jaevor/go-nanoid"

	domain "github.com/example/draw-guess-demo/domain/game"
	"github.com/example/draw-guess-demo/events"
)

// keyAlphabet is lowercase-only so room keys survive being read aloud.
const keyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GameModule owns the game engine and exposes it as request-reply services.
type GameModule struct {
	svc      *Service
	hub      Broadcaster
	storeSrc func() Store
	eventBus mono.EventBus
	newKey   func() string
	wordPath string
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*GameModule)(nil)
	_ mono.ServiceProviderModule = (*GameModule)(nil)
	_ mono.EventBusAwareModule   = (*GameModule)(nil)
	_ mono.EventEmitterModule    = (*GameModule)(nil)
	_ mono.DependentModule       = (*GameModule)(nil)
	_ mono.HealthCheckableModule = (*GameModule)(nil)
	_ Events                     = (*GameModule)(nil)
)

// NewModule creates a new GameModule.
func NewModule() *GameModule {
	return &GameModule{
		wordPath: os.Getenv("GAME_WORDS_PATH"),
	}
}

// Name returns the module name.
func (m *GameModule) Name() string {
	return "game"
}

// Dependencies declares start ordering: the store must be migrated and the
// hub ready before the engine accepts traffic.
func (m *GameModule) Dependencies() []string {
	return []string{"storage", "broadcast"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
// The game module wires its dependencies through SetStoreSource and SetHub
// from main.go instead, so this is a no-op.
func (m *GameModule) SetDependencyServiceContainer(_ string, _ mono.ServiceContainer) {}

// SetStoreSource wires the persistent room store. Deferred behind a func
// because the store only exists once the storage module has started.
func (m *GameModule) SetStoreSource(src func() Store) {
	m.storeSrc = src
}

// SetHub wires the broadcast hub (called from main.go).
func (m *GameModule) SetHub(hub Broadcaster) {
	m.hub = hub
}

// SetEventBus receives the EventBus from the framework.
func (m *GameModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *GameModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RoomCreatedV1.ToBase(),
		events.RoundStartedV1.ToBase(),
		events.RoundEndedV1.ToBase(),
	}
}

// Service returns the game engine. Valid only after Start.
func (m *GameModule) Service() *Service {
	return m.svc
}

// Start builds the word list and the engine.
func (m *GameModule) Start(_ context.Context) error {
	if m.storeSrc == nil {
		return fmt.Errorf("store source dependency not set")
	}
	if m.hub == nil {
		return fmt.Errorf("broadcast hub dependency not set")
	}

	words := DefaultWordList()
	if m.wordPath != "" {
		loaded, err := LoadWordList(m.wordPath)
		if err != nil {
			return fmt.Errorf("failed to load word list %s: %w", m.wordPath, err)
		}
		words = loaded
		log.Printf("[game] Loaded %d words from %s", words.Len(), m.wordPath)
	}

	newKey, err := gonanoid.CustomASCII(keyAlphabet, 8)
	if err != nil {
		return fmt.Errorf("failed to build key generator: %w", err)
	}
	m.newKey = newKey

	m.svc = NewService(m.storeSrc(), m.hub, words)
	m.svc.SetEvents(m)

	log.Printf("[game] Module started - %d words in play", words.Len())
	return nil
}

// Stop cancels every running round countdown.
func (m *GameModule) Stop(_ context.Context) error {
	if m.svc != nil {
		m.svc.Close()
	}
	log.Println("[game] Module stopped")
	return nil
}

// Health returns the health status.
func (m *GameModule) Health(_ context.Context) mono.HealthStatus {
	if m.svc == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "engine not initialized",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"active_rounds": m.svc.Timer().ActiveCount(),
		},
	}
}

// RegisterServices registers request-reply services in the service container.
// The framework prefixes names with "services.game." on the NATS subject.
func (m *GameModule) RegisterServices(container mono.ServiceContainer) error {
	registrations := []struct {
		name string
		fn   func() error
	}{
		{ServiceCreateRoom, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceCreateRoom, json.Unmarshal, json.Marshal, m.createRoom)
		}},
		{ServiceJoinRoom, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceJoinRoom, json.Unmarshal, json.Marshal, m.joinRoom)
		}},
		{ServiceGetSettings, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceGetSettings, json.Unmarshal, json.Marshal, m.getSettings)
		}},
		{ServiceUpdateSettings, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceUpdateSettings, json.Unmarshal, json.Marshal, m.updateSettings)
		}},
		{ServiceStartRound, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceStartRound, json.Unmarshal, json.Marshal, m.startRound)
		}},
		{ServiceSubmitGuess, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceSubmitGuess, json.Unmarshal, json.Marshal, m.submitGuess)
		}},
		{ServiceUpdateDrawing, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceUpdateDrawing, json.Unmarshal, json.Marshal, m.updateDrawing)
		}},
		{ServiceGetState, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceGetState, json.Unmarshal, json.Marshal, m.getState)
		}},
	}
	for _, r := range registrations {
		if err := r.fn(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", r.name, err)
		}
	}

	log.Println("[game] Registered services: services.game.{create-room,join-room,get-settings,update-settings,start-round,submit-guess,update-drawing,get-state}")
	return nil
}

// wireError converts a domain error to its wire form.
func wireError(err error) *ServiceError {
	code := domain.ErrorCode(err)
	if code == "" {
		code = "internal"
	}
	return &ServiceError{Code: code, Message: err.Error()}
}

func (m *GameModule) createRoom(_ context.Context, req CreateRoomRequest, _ *mono.Msg) (RoomResponse, error) {
	key := req.Key
	if key == "" {
		key = m.newKey()
	}
	snap, err := m.svc.Create(key, req.Moderator)
	if err != nil {
		return RoomResponse{Err: wireError(err)}, nil
	}
	return RoomResponse{Room: &snap}, nil
}

func (m *GameModule) joinRoom(_ context.Context, req JoinRoomRequest, _ *mono.Msg) (RoomResponse, error) {
	snap, err := m.svc.Join(req.Key, req.UserName)
	if err != nil {
		return RoomResponse{Err: wireError(err)}, nil
	}
	return RoomResponse{Room: &snap}, nil
}

func (m *GameModule) getSettings(_ context.Context, req GetSettingsRequest, _ *mono.Msg) (SettingsResponse, error) {
	settings, err := m.svc.GetSettings(req.Key)
	if err != nil {
		return SettingsResponse{Err: wireError(err)}, nil
	}
	return SettingsResponse{Settings: &settings}, nil
}

func (m *GameModule) updateSettings(_ context.Context, req UpdateSettingsRequest, _ *mono.Msg) (SettingsResponse, error) {
	settings, err := m.svc.UpdateSettings(req.Key, req.By, req.Patch)
	if err != nil {
		return SettingsResponse{Err: wireError(err)}, nil
	}
	return SettingsResponse{Settings: &settings}, nil
}

func (m *GameModule) startRound(_ context.Context, req StartRoundRequest, _ *mono.Msg) (AckResponse, error) {
	if err := m.svc.StartRound(req.Key, req.By); err != nil {
		return AckResponse{Err: wireError(err)}, nil
	}
	return AckResponse{OK: true}, nil
}

func (m *GameModule) submitGuess(_ context.Context, req SubmitGuessRequest, _ *mono.Msg) (AckResponse, error) {
	if err := m.svc.SubmitGuess(req.Key, req.UserName, req.Text); err != nil {
		return AckResponse{Err: wireError(err)}, nil
	}
	return AckResponse{OK: true}, nil
}

func (m *GameModule) updateDrawing(_ context.Context, req UpdateDrawingRequest, _ *mono.Msg) (AckResponse, error) {
	if err := m.svc.UpdateDrawing(req.Key, req.UserName, req.Payload); err != nil {
		return AckResponse{Err: wireError(err)}, nil
	}
	return AckResponse{OK: true}, nil
}

func (m *GameModule) getState(_ context.Context, req GetStateRequest, _ *mono.Msg) (RoomResponse, error) {
	snap, err := m.svc.GetState(req.Key, req.Requester)
	if err != nil {
		return RoomResponse{Err: wireError(err)}, nil
	}
	return RoomResponse{Room: &snap}, nil
}

// RoomCreated publishes the RoomCreated domain event.
func (m *GameModule) RoomCreated(key, moderator string) {
	if m.eventBus == nil {
		return
	}
	event := events.RoomCreatedEvent{
		RoomKey:   key,
		Moderator: moderator,
		Timestamp: time.Now(),
	}
	if err := events.RoomCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		slog.Warn("Failed to publish RoomCreated event", "error", err)
	}
}

// RoundStarted publishes the RoundStarted domain event.
func (m *GameModule) RoundStarted(key, drawer string, players, duration int) {
	if m.eventBus == nil {
		return
	}
	event := events.RoundStartedEvent{
		RoomKey:   key,
		Drawer:    drawer,
		Players:   players,
		Duration:  duration,
		Timestamp: time.Now(),
	}
	if err := events.RoundStartedV1.Publish(m.eventBus, event, nil); err != nil {
		slog.Warn("Failed to publish RoundStarted event", "error", err)
	}
}

// RoundEnded publishes the RoundEnded domain event.
func (m *GameModule) RoundEnded(key, word, drawer string, success bool, scores map[string]float64) {
	if m.eventBus == nil {
		return
	}
	event := events.RoundEndedEvent{
		RoomKey:   key,
		Word:      word,
		Drawer:    drawer,
		Success:   success,
		Scores:    scores,
		Timestamp: time.Now(),
	}
	if err := events.RoundEndedV1.Publish(m.eventBus, event, nil); err != nil {
		slog.Warn("Failed to publish RoundEnded event", "error", err)
	}
}
