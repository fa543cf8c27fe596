package storage

import (
	"time"
)

// RoomRecord is the persisted form of a room: one row per room holding the
// full JSON-encoded aggregate. No separate tables for users, guesses or
// scores.
type RoomRecord struct {
	Key       string    `gorm:"primarykey;size:36" json:"key"`
	Data      []byte    `gorm:"not null" json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for RoomRecord.
func (RoomRecord) TableName() string {
	return "rooms"
}
