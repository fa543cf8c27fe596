package api

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	domain "github.com/example/draw-guess-demo/domain/game"
	"github.com/example/draw-guess-demo/modules/broadcast"
	"github.com/example/draw-guess-demo/modules/game"
)

// handleWebSocket handles connections at /ws/:key?user=NAME. The session is
// registered with the hub before the engine connects the user, so the
// initialize snapshot lands on this very connection.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	roomKey := c.Params("key")
	userName := c.Query("user")
	svc := m.gameModule.Service()

	sessionID := uuid.New().String()
	sess := &broadcast.Session{
		ID:       sessionID,
		RoomKey:  roomKey,
		UserName: userName,
		Conn:     c,
	}
	m.hub.Register(sess)
	defer func() {
		m.hub.Unregister(sessionID)
		if err := svc.Disconnect(roomKey, userName); err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
			log.Printf("[api] Disconnect of %s from room %s failed: %v", userName, roomKey, err)
		}
		log.Printf("[api] WebSocket session %s (%s) disconnected from room %s", sessionID, userName, roomKey)
	}()

	if err := svc.Connect(roomKey, userName, sessionID); err != nil {
		m.sendWSError(sessionID, err)
		return
	}
	log.Printf("[api] WebSocket session %s (%s) connected to room %s", sessionID, userName, roomKey)

	// Message loop
	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] Session %s closed connection", sessionID)
			} else {
				log.Printf("[api] Read error from session %s: %v", sessionID, err)
			}
			break
		}

		var frame clientFrame
		if err := json.Unmarshal(msgBytes, &frame); err != nil {
			m.sendWSError(sessionID, domain.ErrMalformedPayload)
			continue
		}

		m.dispatchFrame(svc, sess, frame)
	}
}

// dispatchFrame routes one client frame into the engine. Failures go back to
// the offending session only; state changes reach the room through the hub.
func (m *APIModule) dispatchFrame(svc *game.Service, sess *broadcast.Session, frame clientFrame) {
	var err error
	switch frame.Type {
	case domain.ClientUpdateSettings:
		var patch domain.SettingsPatch
		if jsonErr := json.Unmarshal(frame.Payload, &patch); jsonErr != nil {
			err = domain.ErrMalformedPayload
			break
		}
		_, err = svc.UpdateSettings(sess.RoomKey, sess.UserName, patch)

	case domain.ClientStartGame:
		err = svc.StartRound(sess.RoomKey, sess.UserName)

	case domain.ClientSubmitGuess:
		var p guessPayload
		if jsonErr := json.Unmarshal(frame.Payload, &p); jsonErr != nil {
			err = domain.ErrMalformedPayload
			break
		}
		err = svc.SubmitGuess(sess.RoomKey, sess.UserName, p.Text)

	case domain.ClientUpdateDrawing:
		err = svc.UpdateDrawing(sess.RoomKey, sess.UserName, frame.Payload)

	default:
		m.hub.SendTo(sess.ID, domain.EventError, map[string]any{
			"code":    "unknown_type",
			"message": "Unknown message type: " + frame.Type,
		})
		return
	}

	if err != nil {
		m.sendWSError(sess.ID, err)
	}
}

func (m *APIModule) sendWSError(sessionID string, err error) {
	code := domain.ErrorCode(err)
	if code == "" {
		code = "internal"
	}
	m.hub.SendTo(sessionID, domain.EventError, map[string]any{
		"code":    code,
		"message": err.Error(),
	})
}
