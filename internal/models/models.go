package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the authenticated principal. At most one live refresh token
// exists per user; the token value, while live, maps back to exactly
// one user (unique index).
type User struct {
	ID                    string    `gorm:"primaryKey"              json:"id"`
	Username              string    `gorm:"unique;not null"         json:"username"`
	Email                 string    `gorm:"unique;not null"         json:"email"`
	PasswordHash          string    `gorm:"not null"                json:"-"`
	EmailConfirmed        bool      `gorm:"default:false"           json:"email_confirmed"`
	Role                  string    `gorm:"not null"                json:"role"`
	RefreshToken          *string   `gorm:"uniqueIndex"             json:"-"`
	RefreshTokenExpiresAt time.Time `json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
