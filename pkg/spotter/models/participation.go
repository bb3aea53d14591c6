package models

import "time"

// EventParticipation records that a user joined an event.
// Rows are hard deleted on leave so the (event, user) pair can be joined again.
type EventParticipation struct {
	ID       uint      `gorm:"primarykey" json:"id"`
	EventID  uint      `gorm:"not null;uniqueIndex:idx_event_user" json:"event_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_event_user;index" json:"user_id"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}
