package models

import (
	"time"

	"github.com/lib/pq" // Необхідний для pq.StringArray
	"gorm.io/gorm"
)

// DefaultPalette is the paint palette a new room starts with.
var DefaultPalette = []string{"red", "orange", "yellow", "green", "blue", "purple", "gray"}

// RoomRecord is the persisted metadata of a room. The live document and the
// member set are held in memory; hexes, lines and units live in their own
// tables below.
type RoomRecord struct {
	RoomID        string `gorm:"primaryKey"`
	Name          string `gorm:"not null"`
	OwnerUsername string
	HasPassword   bool
	PasswordHash  string
	GridCols      int
	GridRows      int
	Palette       pq.StringArray `gorm:"type:text[]"`
	Version       int64          `gorm:"not null;default:1"`
	CreatedAt     time.Time
	LastActivity  time.Time
}

// HexRecord is one painted hex. Storage is sparse: default-colored hexes have
// no row.
type HexRecord struct {
	gorm.Model

	RoomID    string `gorm:"not null;uniqueIndex:idx_room_hex"`
	HexKey    string `gorm:"not null;uniqueIndex:idx_room_hex"`
	FillColor string `gorm:"not null"`
	UpdatedBy string
}

// LineRecord is one measured line. Start/end keys are columns so the erase
// cascade can delete dependent lines with a single query.
type LineRecord struct {
	gorm.Model

	RoomID   string `gorm:"not null;index:idx_room_line"`
	StartKey string `gorm:"not null;index"`
	EndKey   string `gorm:"not null;index"`
	Distance int
	Color    string
	AddedBy  string
}

// UnitRecord is one unit marker.
type UnitRecord struct {
	gorm.Model

	RoomID      string `gorm:"not null;uniqueIndex:idx_room_unit"`
	UnitID      string `gorm:"not null;uniqueIndex:idx_room_unit"`
	Name        string `gorm:"not null"`
	Color       string
	Icon        string
	HexKey      string `gorm:"not null"`
	Description string `gorm:"type:text"`
	GroupedWith string
	CreatedBy   string
	PlacedAt    time.Time
	MovedBy     string
	MovedAt     *time.Time
}
