package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole is the system-wide role of an account
type UserRole string

const (
	RoleUser  UserRole = "user"  // Sees and edits only tasks assigned to them
	RoleAdmin UserRole = "admin" // Sees and edits everything, manages users
)

// UserRoleFromString converts a string to a UserRole
func UserRoleFromString(roleStr string) (UserRole, error) {
	switch strings.ToLower(strings.TrimSpace(roleStr)) {
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return "", errors.New("invalid role type")
	}
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         UserRole  `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BeforeCreate is a GORM hook that assigns an ID when none was set
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
