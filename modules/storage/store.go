package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/draw-guess-demo/domain/game"
)

// RoomStore is the persistent room store. Callers are expected to hold the
// room's serialization window around any read-modify-write; the store itself
// only guarantees that a single Save is atomic.
type RoomStore struct {
	db *gorm.DB
}

// NewRoomStore creates a store over an open gorm connection.
func NewRoomStore(db *gorm.DB) *RoomStore {
	return &RoomStore{db: db}
}

// Create persists a freshly initialized room. Returns game.ErrRoomExists if
// the key is already taken.
func (s *RoomStore) Create(data *game.RoomData) error {
	blob, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode room %s: %w", data.Key, err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing RoomRecord
		if err := tx.First(&existing, "key = ?", data.Key).Error; err == nil {
			return game.ErrRoomExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&RoomRecord{Key: data.Key, Data: blob}).Error
	})
	if err != nil {
		if errors.Is(err, game.ErrRoomExists) {
			return game.ErrRoomExists
		}
		return fmt.Errorf("failed to create room %s: %w", data.Key, err)
	}
	return nil
}

// Load reads a room aggregate by key. Returns game.ErrRoomNotFound if absent.
func (s *RoomStore) Load(key string) (*game.RoomData, error) {
	var rec RoomRecord
	if err := s.db.First(&rec, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to load room %s: %w", key, err)
	}

	var data game.RoomData
	if err := json.Unmarshal(rec.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode room %s: %w", key, err)
	}
	return &data, nil
}

// Save overwrites the full aggregate for an existing room.
func (s *RoomStore) Save(data *game.RoomData) error {
	blob, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode room %s: %w", data.Key, err)
	}

	result := s.db.Model(&RoomRecord{}).Where("key = ?", data.Key).Update("data", blob)
	if result.Error != nil {
		return fmt.Errorf("failed to save room %s: %w", data.Key, result.Error)
	}
	if result.RowsAffected == 0 {
		return game.ErrRoomNotFound
	}
	return nil
}

// Keys lists all persisted room keys.
func (s *RoomStore) Keys() ([]string, error) {
	var keys []string
	if err := s.db.Model(&RoomRecord{}).Pluck("key", &keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return keys, nil
}
