package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNewPostgresRepositoryManager_ReturnsInterface(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	var m RepositoryManager = NewPostgresRepositoryManager(db)
	if u := m.Users(); u == nil {
		t.Fatal("Users() nil")
	}
	var _ users.Repository = m.Users()
	_, ok := m.Users().(*users.PostgresRepository)
	assert.True(t, ok)
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, got *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if got != db {
			return errors.New("unexpected db")
		}
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestOpenPostgres(t *testing.T) {
	orig := sqlOpen
	defer func() { sqlOpen = orig }()

	db, mock := newDB(t)
	mock.ExpectClose()

	var gotDriver, gotDSN string
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driver, dsn
		return db, nil
	}

	m, err := OpenPostgres("postgres://u:p@localhost/db")
	require.NoError(t, err)
	assert.Equal(t, "pgx", gotDriver)
	assert.Equal(t, "postgres://u:p@localhost/db", gotDSN)
	require.NoError(t, m.Close())
	require.NoError(t, mock.ExpectationsWereMet())

	sqlOpen = func(string, string) (*sql.DB, error) { return nil, errors.New("bad dsn") }
	_, err = OpenPostgres("x")
	require.ErrorContains(t, err, "bad dsn")
}

func TestNew_SelectsBackend(t *testing.T) {
	m, err := New("")
	require.NoError(t, err)
	_, ok := m.(*MemoryRepositoryManager)
	assert.True(t, ok)

	orig := sqlOpen
	defer func() { sqlOpen = orig }()
	db, _ := newDB(t)
	defer db.Close()
	sqlOpen = func(string, string) (*sql.DB, error) { return db, nil }

	m, err = New("postgres://localhost/db")
	require.NoError(t, err)
	_, ok = m.(*PostgresRepositoryManager)
	assert.True(t, ok)
}

func TestMemoryRepositoryManager(t *testing.T) {
	m := NewMemoryRepositoryManager()
	require.NoError(t, m.RunMigrations(context.Background()))
	assert.Same(t, m.Users(), m.Users())
	require.NoError(t, m.Close())
}
