package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

// Role represents a user's gym-wide role
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

var roleFolder = cases.Fold()

// ParseRole normalizes a stored or user-supplied role string.
// Comparison is case-insensitive so "ADMIN", "Admin" and "admin" are the same role.
func ParseRole(s string) (Role, bool) {
	folded := roleFolder.String(strings.TrimSpace(s))
	switch folded {
	case string(RoleAdmin):
		return RoleAdmin, true
	case string(RoleMember):
		return RoleMember, true
	}
	return Role(folded), false
}

// User represents a gym member or administrator
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Role         Role           `gorm:"type:varchar(20);default:'member'" json:"role"`

	// Relationships
	Workouts       []Workout            `gorm:"foreignKey:UserID" json:"workouts,omitempty"`
	Participations []EventParticipation `gorm:"foreignKey:UserID" json:"participations,omitempty"`
}
