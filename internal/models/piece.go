package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Piece is one movable unit of a room's puzzle grid. The target position is
// derived from the piece index at creation and never changes; the current
// position is overwritten by whichever user last moved the piece.
type Piece struct {
	ID          string    `gorm:"type:char(36);primaryKey" json:"id"`
	RoomID      string    `gorm:"type:char(36);not null;index:idx_room_piece,unique" json:"roomId"`
	PieceIndex  int       `gorm:"not null;index:idx_room_piece,unique" json:"pieceIndex"`
	CurrentX    float64   `gorm:"not null" json:"currentX"`
	CurrentY    float64   `gorm:"not null" json:"currentY"`
	TargetX     float64   `gorm:"not null" json:"targetX"`
	TargetY     float64   `gorm:"not null" json:"targetY"`
	IsPlaced    bool      `gorm:"not null;default:false" json:"isPlaced"`
	Rotation    float64   `gorm:"not null;default:0" json:"rotation"` // reserved, always 0 today
	LastMovedBy string    `gorm:"type:char(36)" json:"lastMovedBy"`   // empty until first move
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName overrides the table name for Piece
func (Piece) TableName() string {
	return "puzzle_pieces"
}

// BeforeCreate assigns a UUID identity when none was provided.
func (p *Piece) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Placed reports the persisted placement flag.
func (p Piece) Placed() bool {
	return p.IsPlaced
}
