package game

import (
	"context"
	"sync"
	"time"
)

// RoundTimer drives the per-room countdown. Each active room owns one ticker
// goroutine; ticks are delivered through the callback, which re-enters the
// game service and serializes against the room there.
type RoundTimer struct {
	interval time.Duration
	tick     func(roomKey string)

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewRoundTimer creates a timer that fires tick every interval per started
// room.
func NewRoundTimer(interval time.Duration, tick func(roomKey string)) *RoundTimer {
	return &RoundTimer{
		interval: interval,
		tick:     tick,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Start launches the countdown goroutine for a room. A previous countdown for
// the same room is cancelled first, so a room never has two tickers.
func (t *RoundTimer) Start(roomKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cancel, ok := t.cancels[roomKey]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancels[roomKey] = cancel
	go t.run(ctx, roomKey)
}

func (t *RoundTimer) run(ctx context.Context, roomKey string) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(roomKey)
		}
	}
}

// Stop cancels the countdown for a room. Safe to call from within a tick
// callback and for rooms with no running countdown.
func (t *RoundTimer) Stop(roomKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cancel, ok := t.cancels[roomKey]; ok {
		cancel()
		delete(t.cancels, roomKey)
	}
}

// Active reports whether a countdown is running for the room.
func (t *RoundTimer) Active(roomKey string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.cancels[roomKey]
	return ok
}

// ActiveCount returns the number of rooms with a running countdown.
func (t *RoundTimer) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cancels)
}

// StopAll cancels every countdown. Called on shutdown.
func (t *RoundTimer) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, cancel := range t.cancels {
		cancel()
		delete(t.cancels, key)
	}
}
