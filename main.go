package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/draw-guess-demo/modules/api"
	"github.com/example/draw-guess-demo/modules/broadcast"
	"github.com/example/draw-guess-demo/modules/game"
	"github.com/example/draw-guess-demo/modules/history"
	"github.com/example/draw-guess-demo/modules/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Draw & Guess Demo - Fiber + WebSocket + EventBus ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	storageModule := storage.NewModule()
	broadcastModule := broadcast.NewModule()
	gameModule := game.NewModule()
	historyModule := history.NewModule()
	apiModule := api.NewModule()

	// Wire in-process collaborators that are not exposed via ServiceContainer.
	// The store source is a func because the store exists only after the
	// storage module has started.
	gameModule.SetStoreSource(func() game.Store { return storageModule.Store() })
	gameModule.SetHub(broadcastModule.Hub())
	apiModule.SetHub(broadcastModule.Hub())
	apiModule.SetGame(gameModule)
	apiModule.SetHistory(historyModule)

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - storage: SQLite room persistence
	// - broadcast: WebSocket session hub
	// - game: Authoritative engine (ServiceProviderModule + EventEmitterModule)
	// - history: Round log (EventConsumerModule for RoundEnded)
	// - api: Driving adapter (Fiber HTTP/WebSocket server, depends on game)
	app.Register(storageModule)
	app.Register(broadcastModule)
	app.Register(gameModule)
	app.Register(historyModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	dbPath := os.Getenv("ROOMS_DB_PATH")
	if dbPath == "" {
		dbPath = "rooms.db"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Game engine: per-room serialized state machine")
	log.Printf("  - Persistence: SQLite via GORM (%s)", dbPath)
	log.Println("")
	log.Println("Event-Driven:")
	log.Println("  - RoundEnded events -> history module -> round log")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                      - Health check")
	log.Println("  POST   /api/v1/rooms                - Create a room")
	log.Println("  POST   /api/v1/rooms/:key/join      - Join a room")
	log.Println("  GET    /api/v1/rooms/:key/settings  - Get room settings")
	log.Println("  PUT    /api/v1/rooms/:key/settings  - Update settings (moderator)")
	log.Println("  POST   /api/v1/rooms/:key/start     - Start a round (moderator)")
	log.Println("  POST   /api/v1/rooms/:key/guesses   - Submit a guess")
	log.Println("  PUT    /api/v1/rooms/:key/drawing   - Update the drawing (drawer)")
	log.Println("  GET    /api/v1/rooms/:key/state     - Room snapshot (?user=NAME)")
	log.Println("  GET    /api/v1/rooms/:key/rounds    - Finished round log")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws/:key):", port)
	log.Println("  Connect with: ws://localhost:3000/ws/ROOMKEY?user=yourname")
	log.Println("  Message types: updateSettings, startGame, submitGuess, updateDrawing")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
