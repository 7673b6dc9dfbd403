// Package users stores principals together with the single refresh token each
// of them may currently hold.
package users

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// Repository is the principal store consumed by the session service.
//
// Implementations must make SwapRefreshToken a single atomic
// compare-and-set against the stored value: of several concurrent swaps
// presenting the same expected token, at most one may report true.
type Repository interface {
	// Create inserts a new user. Duplicate usernames or emails yield common.ErrConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByID and FindByUsername return common.ErrNotFound for unknown users.
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// SetRefreshToken overwrites whatever token is stored for the user.
	SetRefreshToken(ctx context.Context, id string, token string) error

	// SwapRefreshToken replaces expected with next only if expected is the
	// stored value. It reports whether the swap happened.
	SwapRefreshToken(ctx context.Context, id string, expected string, next string) (bool, error)

	// ClearRefreshToken removes the stored token, logging the user out.
	ClearRefreshToken(ctx context.Context, id string) error
}
