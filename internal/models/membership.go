package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomMember records a user's presence in a room. One row per
// (room, user) pair; rejoining flips IsActive back on instead of
// inserting a duplicate.
type RoomMember struct {
	ID       string    `gorm:"type:char(36);primaryKey" json:"id"`
	RoomID   string    `gorm:"type:char(36);not null;index:idx_room_member,unique" json:"roomId"`
	UserID   string    `gorm:"type:char(36);not null;index:idx_room_member,unique" json:"userId"`
	IsActive bool      `gorm:"not null;default:true" json:"isActive"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}

// TableName overrides the table name for RoomMember
func (RoomMember) TableName() string {
	return "room_members"
}

// BeforeCreate assigns a UUID identity when none was provided.
func (m *RoomMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
