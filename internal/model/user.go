// Package model defines domain entities for the application.
package model

import "time"

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Principal identifies the authenticated caller of a request.
// It is injected into the request context by the auth middleware.
type Principal struct {
	UserID    string
	Username  string
	TokenID   string
	ExpiresAt time.Time
}
