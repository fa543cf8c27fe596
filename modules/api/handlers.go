package api

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const maxNameLength = 32

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes() {
	// Health check
	m.app.Get("/health", m.healthHandler)

	// WebSocket endpoint, one connection per room and user
	m.app.Use("/ws/:key", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws/:key", websocket.New(m.handleWebSocket))

	// REST API v1
	api := m.app.Group("/api/v1")

	api.Post("/rooms", m.createRoom)
	api.Post("/rooms/:key/join", m.joinRoom)
	api.Get("/rooms/:key/settings", m.getSettings)
	api.Put("/rooms/:key/settings", m.updateSettings)
	api.Post("/rooms/:key/start", m.startRound)
	api.Post("/rooms/:key/guesses", m.submitGuess)
	api.Put("/rooms/:key/drawing", m.updateDrawing)
	api.Get("/rooms/:key/state", m.getState)
	api.Get("/rooms/:key/rounds", m.getRounds)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":             "api",
			"connected_sessions": m.hub.SessionCount(),
		},
	})
}

// createRoom handles POST /api/v1/rooms.
func (m *APIModule) createRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if req.Moderator == "" || len(req.Moderator) > maxNameLength {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Moderator name is required (max 32 characters)",
		})
	}

	room, err := m.gameAdapter.CreateRoom(c.UserContext(), req.Key, req.Moderator)
	if err != nil {
		return domainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(room)
}

// joinRoom handles POST /api/v1/rooms/:key/join.
func (m *APIModule) joinRoom(c *fiber.Ctx) error {
	var req JoinRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if req.UserName == "" || len(req.UserName) > maxNameLength {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "User name is required (max 32 characters)",
		})
	}

	room, err := m.gameAdapter.JoinRoom(c.UserContext(), c.Params("key"), req.UserName)
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(room)
}

// getSettings handles GET /api/v1/rooms/:key/settings.
func (m *APIModule) getSettings(c *fiber.Ctx) error {
	settings, err := m.gameAdapter.GetSettings(c.UserContext(), c.Params("key"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(settings)
}

// updateSettings handles PUT /api/v1/rooms/:key/settings.
func (m *APIModule) updateSettings(c *fiber.Ctx) error {
	var req UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	settings, err := m.gameAdapter.UpdateSettings(c.UserContext(), c.Params("key"), req.By, req.Settings)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(settings)
}

// startRound handles POST /api/v1/rooms/:key/start.
func (m *APIModule) startRound(c *fiber.Ctx) error {
	var req StartRoundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if err := m.gameAdapter.StartRound(c.UserContext(), c.Params("key"), req.By); err != nil {
		return domainError(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// submitGuess handles POST /api/v1/rooms/:key/guesses.
func (m *APIModule) submitGuess(c *fiber.Ctx) error {
	var req GuessRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if err := m.gameAdapter.SubmitGuess(c.UserContext(), c.Params("key"), req.UserName, req.Text); err != nil {
		return domainError(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// updateDrawing handles PUT /api/v1/rooms/:key/drawing.
func (m *APIModule) updateDrawing(c *fiber.Ctx) error {
	var req DrawingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if err := m.gameAdapter.UpdateDrawing(c.UserContext(), c.Params("key"), req.UserName, req.Payload); err != nil {
		return domainError(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// getState handles GET /api/v1/rooms/:key/state. The requesting user is named
// in the query; only the current drawer sees the target word.
func (m *APIModule) getState(c *fiber.Ctx) error {
	room, err := m.gameAdapter.GetState(c.UserContext(), c.Params("key"), c.Query("user"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(room)
}

// getRounds handles GET /api/v1/rooms/:key/rounds.
func (m *APIModule) getRounds(c *fiber.Ctx) error {
	key := c.Params("key")
	return c.JSON(RoundsResponse{
		RoomKey: key,
		Rounds:  m.history.Recent(key),
	})
}
