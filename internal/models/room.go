package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/puzzle-rooms/internal/puzzle"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ConfigJSON stores a puzzle.Config as a JSON column. Wraps
// gorm.io/datatypes.JSON so the column type maps correctly per driver
// (MSSQL has no native json type).
type ConfigJSON struct {
	datatypes.JSON
}

// NewConfigJSON marshals a puzzle.Config into its column form.
func NewConfigJSON(cfg puzzle.Config) (ConfigJSON, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return ConfigJSON{}, err
	}
	return ConfigJSON{JSON: datatypes.JSON(raw)}, nil
}

// Config unmarshals the stored grid geometry.
func (c ConfigJSON) Config() (puzzle.Config, error) {
	var cfg puzzle.Config
	err := json.Unmarshal(c.JSON, &cfg)
	return cfg, err
}

// Value promotes the embedded JSON's Value method.
func (c ConfigJSON) Value() (driver.Value, error) {
	return c.JSON.Value()
}

// Scan promotes the embedded JSON's Scan method.
func (c *ConfigJSON) Scan(value interface{}) error {
	return c.JSON.Scan(value)
}

// GormDBDataType selects the column type for each database driver.
func (ConfigJSON) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}

// Room represents one collaborative puzzle session tied to one image and one
// difficulty. The grid geometry is fixed at creation and never changes.
type Room struct {
	ID           string     `gorm:"type:char(36);primaryKey" json:"id"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	ImageURL     string     `gorm:"size:1024;not null" json:"imageUrl"`
	PuzzleConfig ConfigJSON `gorm:"not null" json:"puzzleConfig"`
	CreatedBy    string     `gorm:"type:char(36);not null;index" json:"createdBy"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// TableName overrides the table name for Room
func (Room) TableName() string {
	return "rooms"
}

// BeforeCreate assigns a UUID identity when none was provided.
func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
