package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// MemoryRepository keeps users in process memory. It backs local development
// and tests; every method takes the store lock, so SwapRefreshToken is a
// single atomic step.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[string]*models.User
	byUsername map[string]string
	byEmail    map[string]string
	now        func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[string]*models.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		now:        time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[user.ID]; ok {
		return nil, fmt.Errorf("%w: id already in use", common.ErrConflict)
	}
	if _, ok := r.byUsername[user.UserName]; ok {
		return nil, fmt.Errorf("%w: username or email already in use", common.ErrConflict)
	}
	if _, ok := r.byEmail[user.Email]; ok {
		return nil, fmt.Errorf("%w: username or email already in use", common.ErrConflict)
	}

	now := r.now()
	stored := *user
	stored.CreatedAt, stored.UpdatedAt = now, now
	r.byID[stored.ID] = &stored
	r.byUsername[stored.UserName] = stored.ID
	r.byEmail[stored.Email] = stored.ID

	out := stored
	return &out, nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *MemoryRepository) FindByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *MemoryRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUsername[username]
	return ok, nil
}

func (r *MemoryRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *MemoryRepository) SetRefreshToken(_ context.Context, id string, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.RefreshToken = token
	u.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) SwapRefreshToken(_ context.Context, id string, expected string, next string) (bool, error) {
	if expected == "" || next == "" {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || u.RefreshToken != expected {
		return false, nil
	}
	u.RefreshToken = next
	u.UpdatedAt = r.now()
	return true, nil
}

func (r *MemoryRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return r.SetRefreshToken(ctx, id, "")
}
