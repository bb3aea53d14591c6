package models

import (
	"time"

	"gorm.io/gorm"
)

// Workout is a single exercise assignment owned by one member
type Workout struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	EventTitle  string         `gorm:"not null" json:"event_title"`
	Sets        int            `gorm:"not null" json:"sets"`
	RepsOrSecs  int            `gorm:"not null" json:"reps_or_secs"`
	RestTime    int            `json:"rest_time"`
	IsCompleted bool           `gorm:"default:false" json:"is_completed"`
}
