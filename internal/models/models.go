package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null"             json:"-"`
	IsActive     bool   `gorm:"not null;default:false" json:"isActive"`
	IsVerified   bool   `gorm:"not null;default:false" json:"isVerified"`
	IsAdmin      bool   `gorm:"not null;default:false" json:"isAdmin"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// RefreshSession holds the single persisted refresh credential of a user.
// The unique index on UserID is what turns a second login into a replace
// instead of an append.
type RefreshSession struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Token     string    `gorm:"not null"             json:"token"`
	ExpiresAt time.Time `gorm:"not null"             json:"expires_at"`
}
