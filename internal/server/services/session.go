// Package services contains server-side business logic. This file implements
// SessionService, which handles registration, login, refresh token rotation
// and logout for the single-session-per-user model.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/gatekeeper/internal/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	bcryptCost = bcrypt.DefaultCost

	hashPassword = func(password []byte) ([]byte, error) {
		return bcrypt.GenerateFromPassword(password, bcryptCost)
	}

	comparePassword = bcrypt.CompareHashAndPassword

	// dummyHash is compared against when the username is unknown, so a miss
	// costs as much as a wrong password.
	dummyHash = sync.OnceValue(func() []byte {
		h, err := bcrypt.GenerateFromPassword([]byte("gatekeeper-no-such-user"), bcryptCost)
		if err != nil {
			panic(err)
		}
		return h
	})
)

// RegisterInput is what a new user submits.
type RegisterInput struct {
	FullName string
	Username string
	Email    string
	Password string
}

// Session is the outcome of a successful registration or login.
type Session struct {
	User   *models.User
	Tokens *token.Pair
}

// SessionService provides authentication operations:
//   - Register: create a user and start its session
//   - Login: verify credentials and replace the stored refresh token
//   - Refresh: rotate the refresh token, rejecting anything but the stored one
//   - Logout: forget the stored refresh token
type SessionService struct {
	users users.Repository
	codec *token.Codec
	log   logging.Logger
}

// NewSessionService wires a SessionService. A nil logger discards output.
func NewSessionService(repo users.Repository, codec *token.Codec, log logging.Logger) *SessionService {
	if log == nil {
		log = logging.Nop{}
	}
	return &SessionService{users: repo, codec: codec, log: log}
}

// RefreshTTL is the lifetime of issued refresh tokens, used for the cookie.
func (s *SessionService) RefreshTTL() time.Duration {
	return s.codec.RefreshTTL()
}

func (in RegisterInput) normalize() RegisterInput {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	return in
}

func (in RegisterInput) validate() error {
	switch {
	case in.FullName == "":
		return fmt.Errorf("%w: full name is required", common.ErrValidation)
	case in.Username == "":
		return fmt.Errorf("%w: username is required", common.ErrValidation)
	case in.Email == "":
		return fmt.Errorf("%w: email is required", common.ErrValidation)
	case in.Password == "":
		return fmt.Errorf("%w: password is required", common.ErrValidation)
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return fmt.Errorf("%w: email is not valid", common.ErrValidation)
	}
	return nil
}

// Register creates a user and its first session in a single write.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: username is already taken", common.ErrConflict)
	}

	taken, err = s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: email is already in use", common.ErrConflict)
	}

	hash, err := hashPassword([]byte(in.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password is too long", common.ErrValidation)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.NewString()
	pair, err := s.codec.IssuePair(token.Principal{ID: id, Username: in.Username})
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	user, err := s.users.Create(ctx, &models.User{
		ID:           id,
		FullName:     in.FullName,
		UserName:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		RefreshToken: pair.RefreshToken,
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return &Session{User: user, Tokens: pair}, nil
}

// Login checks the password and starts a new session, replacing whatever
// refresh token was stored before.
func (s *SessionService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			_ = comparePassword(dummyHash(), []byte(password))
			return nil, fmt.Errorf("%w: invalid username or password", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := comparePassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid username or password", common.ErrUnauthorized)
	}

	pair, err := s.codec.IssuePair(token.Principal{ID: user.ID, Username: user.UserName})
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	user.RefreshToken = pair.RefreshToken

	return &Session{User: user, Tokens: pair}, nil
}

// Refresh exchanges the stored refresh token for a new pair. A token that
// verifies but is not the stored one (already rotated, or the user logged
// out) is rejected, as is the loser of two concurrent refreshes.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is missing", common.ErrUnauthorized)
	}

	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown principal", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(refreshToken)) != 1 {
		s.log.Warn(ctx, "refresh token reuse rejected", "user_id", user.ID, "logged_in", user.LoggedIn())
		return nil, common.ErrRefreshTokenMismatch
	}

	pair, err := s.codec.IssuePair(token.Principal{ID: user.ID, Username: user.UserName})
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	swapped, err := s.users.SwapRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !swapped {
		s.log.Warn(ctx, "concurrent refresh lost rotation", "user_id", user.ID)
		return nil, common.ErrRefreshTokenMismatch
	}

	return pair, nil
}

// Logout clears the stored refresh token. Access tokens already issued stay
// valid until they expire.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: unknown principal", common.ErrUnauthorized)
		}
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// Profile returns the user behind a verified principal id.
func (s *SessionService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
