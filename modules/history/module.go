package history

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/draw-guess-demo/events"
)

// defaultKeep is how many round outcomes are retained per room.
const defaultKeep = 50

// RoundOutcome is one finished round as seen by the history log.
type RoundOutcome struct {
	RoomKey   string             `json:"room_key"`
	Word      string             `json:"word"`
	Drawer    string             `json:"drawer"`
	Success   bool               `json:"success"`
	Scores    map[string]float64 `json:"scores"`
	Timestamp time.Time          `json:"timestamp"`
}

// HistoryModule keeps a bounded per-room log of finished rounds, fed by
// RoundEnded events.
type HistoryModule struct {
	keep int

	mu     sync.RWMutex
	rounds map[string][]RoundOutcome
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*HistoryModule)(nil)
	_ mono.EventConsumerModule   = (*HistoryModule)(nil)
	_ mono.HealthCheckableModule = (*HistoryModule)(nil)
)

// NewModule creates a new HistoryModule.
func NewModule() *HistoryModule {
	return &HistoryModule{
		keep:   defaultKeep,
		rounds: make(map[string][]RoundOutcome),
	}
}

// Name returns the module name.
func (m *HistoryModule) Name() string {
	return "history"
}

// RegisterEventConsumers subscribes to round lifecycle events.
func (m *HistoryModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.RoundEndedV1, m.handleRoundEnded, m); err != nil {
		return fmt.Errorf("failed to register RoundEnded consumer: %w", err)
	}

	log.Println("[history] Registered event consumers: RoundEnded")
	return nil
}

func (m *HistoryModule) handleRoundEnded(_ context.Context, event events.RoundEndedEvent, _ *mono.Msg) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := append(m.rounds[event.RoomKey], RoundOutcome{
		RoomKey:   event.RoomKey,
		Word:      event.Word,
		Drawer:    event.Drawer,
		Success:   event.Success,
		Scores:    event.Scores,
		Timestamp: event.Timestamp,
	})
	if len(entries) > m.keep {
		entries = entries[len(entries)-m.keep:]
	}
	m.rounds[event.RoomKey] = entries
	return nil
}

// Recent returns the retained outcomes for a room, most recent last.
func (m *HistoryModule) Recent(roomKey string) []RoundOutcome {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RoundOutcome, len(m.rounds[roomKey]))
	copy(out, m.rounds[roomKey])
	return out
}

// Start initializes the module.
func (m *HistoryModule) Start(_ context.Context) error {
	log.Println("[history] Module started - listening for round events")
	return nil
}

// Stop shuts the module down.
func (m *HistoryModule) Stop(_ context.Context) error {
	log.Println("[history] Module stopped")
	return nil
}

// Health returns the health status.
func (m *HistoryModule) Health(_ context.Context) mono.HealthStatus {
	m.mu.RLock()
	tracked := len(m.rounds)
	m.mu.RUnlock()

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"tracked_rooms": tracked,
		},
	}
}
