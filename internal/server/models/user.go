// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is the principal record owned by the identity service.
//
// RefreshToken holds the single refresh token currently accepted for the
// user; an empty value means the user is logged out.
type User struct {
	ID           string
	FullName     string
	UserName     string
	Email        string
	PasswordHash []byte
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LoggedIn reports whether a refresh token is currently stored.
func (u *User) LoggedIn() bool {
	return u.RefreshToken != ""
}
