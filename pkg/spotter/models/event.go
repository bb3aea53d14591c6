package models

import (
	"time"

	"gorm.io/gorm"
)

// Event represents a scheduled gym event members can join.
// CurrentParticipants only moves through conditional updates and always stays
// within [0, MaxParticipants].
type Event struct {
	ID                  uint           `gorm:"primarykey" json:"id"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
	Title               string         `gorm:"not null" json:"title"`
	Description         string         `json:"description"`
	Date                string         `gorm:"type:varchar(10);not null" json:"date"`
	Time                string         `gorm:"type:varchar(5);not null" json:"time"`
	Location            string         `json:"location"`
	MaxParticipants     int            `gorm:"not null" json:"max_participants"`
	CurrentParticipants int            `gorm:"not null;default:0" json:"current_participants"`
	CreatedByID         uint           `gorm:"not null;index" json:"created_by"`

	// Relationships
	Participations []EventParticipation `gorm:"foreignKey:EventID" json:"participations,omitempty"`
}

// SeatsLeft returns the number of open places.
func (e Event) SeatsLeft() int {
	return e.MaxParticipants - e.CurrentParticipants
}
