package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/users"
)

// RepositoryManager vends the principal store and prepares its backing schema.
type RepositoryManager interface {
	RunMigrations(context.Context) error
	Users() users.Repository
	Close() error
}

// New picks a backend: a non-empty DSN selects PostgreSQL, otherwise users are
// kept in memory.
func New(dsn string) (RepositoryManager, error) {
	if dsn == "" {
		return NewMemoryRepositoryManager(), nil
	}
	m, err := OpenPostgres(dsn)
	if err != nil {
		return nil, err
	}
	return m, nil
}
