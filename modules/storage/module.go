package storage

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StorageModule owns the SQLite-backed persistent room store.
type StorageModule struct {
	db     *gorm.DB
	store  *RoomStore
	dbPath string
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*StorageModule)(nil)
	_ mono.HealthCheckableModule = (*StorageModule)(nil)
)

// NewModule creates a new StorageModule.
func NewModule() *StorageModule {
	dbPath := os.Getenv("ROOMS_DB_PATH")
	if dbPath == "" {
		dbPath = "rooms.db"
	}
	return &StorageModule{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *StorageModule) Name() string {
	return "storage"
}

// Store returns the room store. Valid only after Start.
func (m *StorageModule) Store() *RoomStore {
	return m.store
}

// Start opens the database connection and runs migrations.
func (m *StorageModule) Start(_ context.Context) error {
	log.Printf("[storage] Connecting to SQLite database: %s", m.dbPath)

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := m.db.AutoMigrate(&RoomRecord{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.store = NewRoomStore(m.db)

	log.Println("[storage] Module started successfully")
	return nil
}

// Stop closes the database connection.
func (m *StorageModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	log.Println("[storage] Closing database connection...")

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("[storage] Database connection closed")
	return nil
}

// Health performs a database ping.
func (m *StorageModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}
