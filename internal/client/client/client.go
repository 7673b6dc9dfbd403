// Package client talks to the Gatekeeper gateway over HTTP on behalf of the
// CLI. It keeps the caller's tokens in a SessionStore and transparently
// rotates them once when an authenticated call comes back 401.
package client

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/client/session"
)

type Client interface {
	Register(ctx context.Context, req RegisterRequest) error
	Login(ctx context.Context, username, password string) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*Profile, error)
	Upload(ctx context.Context, fileType, path string) (string, error)
	FileURL(ctx context.Context, objectName string) (string, error)
	DeleteFile(ctx context.Context, objectName string) error
	Username() string
	LoggedIn() bool
}

// SessionStore persists tokens between CLI runs.
type SessionStore interface {
	Load() (session.Tokens, error)
	Save(session.Tokens) error
	Clear() error
}

type RegisterRequest struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Profile struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
