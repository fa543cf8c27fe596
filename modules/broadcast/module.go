package broadcast

import (
	"context"
	"log"

	"github.com/go-monolith/mono"
)

// BroadcastModule owns the WebSocket session hub.
type BroadcastModule struct {
	hub *Hub
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*BroadcastModule)(nil)
	_ mono.HealthCheckableModule = (*BroadcastModule)(nil)
)

// NewModule creates a new BroadcastModule.
func NewModule() *BroadcastModule {
	return &BroadcastModule{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Hub returns the session hub.
func (m *BroadcastModule) Hub() *Hub {
	return m.hub
}

// Start initializes the module.
func (m *BroadcastModule) Start(_ context.Context) error {
	log.Println("[broadcast] Module started - session hub ready")
	return nil
}

// Stop closes every live connection.
func (m *BroadcastModule) Stop(_ context.Context) error {
	count := m.hub.SessionCount()
	m.hub.CloseAll()
	log.Printf("[broadcast] Module stopped - %d sessions were connected", count)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_sessions": m.hub.SessionCount(),
		},
	}
}
