package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username" validate:"required,min=3,max=50"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

// Credentials is the register and login request body.
type Credentials struct {
	Username string `json:"username" binding:"required" validate:"required,min=3,max=50"`
	Password string `json:"password" binding:"required" validate:"required,min=6,max=72"`
}

// AuthResult is returned by a successful login.
type AuthResult struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}
