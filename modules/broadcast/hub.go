package broadcast

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the minimal connection surface the hub needs. *websocket.Conn
// satisfies it; tests substitute fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session binds one live connection to a room and a user identity. A user may
// hold several concurrent sessions; liveness is "any session remains".
type Session struct {
	ID       string
	RoomKey  string
	UserName string
	Conn     Conn

	writeMu sync.Mutex
}

func (s *Session) send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.Conn.WriteMessage(websocket.TextMessage, data)
}

// Envelope is the wire frame for every server-to-client message.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Hub is the session registry and broadcast channel. It holds transport state
// only and never mutates room aggregates. Registry entries are rebuilt from
// live connections, never persisted.
type Hub struct {
	sessions map[string]*Session        // sessionID -> session
	rooms    map[string]map[string]bool // roomKey -> set of sessionIDs
	mu       sync.RWMutex
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]bool),
	}
}

// Register adds a session to the registry.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s.ID] = s
	if h.rooms[s.RoomKey] == nil {
		h.rooms[s.RoomKey] = make(map[string]bool)
	}
	h.rooms[s.RoomKey][s.ID] = true
	log.Printf("[broadcast] Session %s (%s) registered in room %s", s.ID, s.UserName, s.RoomKey)
}

// Unregister removes a session and returns it, or nil if unknown.
func (h *Hub) Unregister(sessionID string) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(h.sessions, sessionID)
	if h.rooms[s.RoomKey] != nil {
		delete(h.rooms[s.RoomKey], sessionID)
		if len(h.rooms[s.RoomKey]) == 0 {
			delete(h.rooms, s.RoomKey)
		}
	}
	log.Printf("[broadcast] Session %s (%s) unregistered from room %s", s.ID, s.UserName, s.RoomKey)
	return s
}

// roomSnapshot returns the sessions of a room matching filter (nil matches
// all). Fan-out iterates this snapshot so a failing or departing connection
// cannot abort delivery to the rest.
func (h *Hub) roomSnapshot(roomKey string, filter func(*Session) bool) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids, ok := h.rooms[roomKey]
	if !ok {
		return nil
	}
	out := make([]*Session, 0, len(ids))
	for id := range ids {
		s, ok := h.sessions[id]
		if !ok {
			continue
		}
		if filter == nil || filter(s) {
			out = append(out, s)
		}
	}
	return out
}

func deliver(sessions []*Session, kind string, payload any) {
	if len(sessions) == 0 {
		return
	}
	data, err := json.Marshal(Envelope{Type: kind, Payload: payload})
	if err != nil {
		log.Printf("[broadcast] Failed to marshal %s message: %v", kind, err)
		return
	}
	for _, s := range sessions {
		// A failed send is swallowed; registry cleanup happens only via
		// the connection-close path.
		if err := s.send(data); err != nil {
			log.Printf("[broadcast] Failed to send %s to session %s: %v", kind, s.ID, err)
		}
	}
}

// Broadcast serializes the message once and pushes it to every session of the
// room.
func (h *Hub) Broadcast(roomKey, kind string, payload any) {
	deliver(h.roomSnapshot(roomKey, nil), kind, payload)
}

// SendToUser delivers a private message to every session a user holds in the
// room.
func (h *Hub) SendToUser(roomKey, userName, kind string, payload any) {
	deliver(h.roomSnapshot(roomKey, func(s *Session) bool {
		return s.UserName == userName
	}), kind, payload)
}

// SendTo delivers a message to a single session.
func (h *Hub) SendTo(sessionID, kind string, payload any) {
	h.mu.RLock()
	s, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	deliver([]*Session{s}, kind, payload)
}

// UserSessionCount returns how many live sessions a user holds in a room.
func (h *Hub) UserSessionCount(roomKey, userName string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for id := range h.rooms[roomKey] {
		if s, ok := h.sessions[id]; ok && s.UserName == userName {
			n++
		}
	}
	return n
}

// RoomSessionCount returns the number of sessions in a room.
func (h *Hub) RoomSessionCount(roomKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomKey])
}

// SessionCount returns the total number of registered sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// CloseAll closes every connection and clears the registry.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.sessions {
		_ = s.Conn.Close()
	}
	h.sessions = make(map[string]*Session)
	h.rooms = make(map[string]map[string]bool)
}
