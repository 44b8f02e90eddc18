package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// AuthToken is the opaque bearer credential bound 1:1 to a user.
type AuthToken struct {
	Key       string    `gorm:"primaryKey;type:char(40)" json:"key"`
	UserID    uint      `gorm:"uniqueIndex" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// NewAuthTokenKey returns 40 hex characters from crypto/rand.
func NewAuthTokenKey() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
