package models

import (
	"time"
)

// User is an account that owns documents and chat turns.
// Email is stored lowercased and must be unique.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is an opaque bearer token issued at login
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its lifetime
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
