package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "0b6d0c8e-58a4-4c4a-9d0e-3c1f6a8e2b11"

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var userColumns = []string{"id", "full_name", "username", "email", "password_hash", "refresh_token", "created_at", "updated_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*full_name,\s*username,\s*email,\s*password_hash,\s*refresh_token\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+created_at,\s*updated_at\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs(userID, "Alice A", "alice", "alice@example.com", []byte("hash"), "refresh-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u := &models.User{ID: userID, FullName: "Alice A", UserName: "alice", Email: "alice@example.com", PasswordHash: []byte("hash"), RefreshToken: "refresh-1"}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolationIsConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	_, err := repo.Create(context.Background(), &models.User{ID: userID, UserName: "alice"})
	require.ErrorIs(t, err, common.ErrConflict)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{ID: userID, UserName: "alice"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*SELECT\s+id,\s*full_name,\s*username,\s*email,\s*password_hash,\s*refresh_token,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(userID, "Alice A", "alice", "alice@example.com", []byte("hash"), "refresh-1", now, now))

	got, err := repo.FindByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserName)
	assert.Equal(t, "refresh-1", got.RefreshToken)
	assert.True(t, got.LoggedIn())
}

func TestFindByID_NullRefreshToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(userID, "Alice A", "alice", "alice@example.com", []byte("hash"), nil, now, now))

	got, err := repo.FindByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, got.RefreshToken)
	assert.False(t, got.LoggedIn())
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(userID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), userID)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestFindByID_NonUUIDNeverHitsDatabase(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	_, err := repo.FindByID(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUsername_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+users\s+WHERE\s+username\s*=\s*\$1`).
		WithArgs("alice").
		WillReturnError(errors.New("db err"))

	_, err := repo.FindByUsername(context.Background(), "alice")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\)$`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\)$`).
		WithArgs("bob@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	found, err := repo.ExistsByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.ExistsByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetRefreshToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+refresh_token\s*=\s*\$2,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).WithArgs(userID, "refresh-2").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetRefreshToken(context.Background(), userID, "refresh-2"))

	mock.ExpectExec(q).WithArgs(userID, "refresh-3").WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.SetRefreshToken(context.Background(), userID, "refresh-3"), common.ErrNotFound)
}

func TestSwapRefreshToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+refresh_token\s*=\s*\$3,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+AND\s+refresh_token\s*=\s*\$2\s*$`

	mock.ExpectExec(q).WithArgs(userID, "old", "new").WillReturnResult(sqlmock.NewResult(0, 1))
	swapped, err := repo.SwapRefreshToken(context.Background(), userID, "old", "new")
	require.NoError(t, err)
	assert.True(t, swapped)

	mock.ExpectExec(q).WithArgs(userID, "old", "newer").WillReturnResult(sqlmock.NewResult(0, 0))
	swapped, err = repo.SwapRefreshToken(context.Background(), userID, "old", "newer")
	require.NoError(t, err)
	assert.False(t, swapped)

	mock.ExpectExec(q).WithArgs(userID, "old", "x").WillReturnError(errors.New("db err"))
	_, err = repo.SwapRefreshToken(context.Background(), userID, "old", "x")
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRefreshToken_EmptyExpectedNeverMatches(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	swapped, err := repo.SwapRefreshToken(context.Background(), userID, "", "new")
	require.NoError(t, err)
	assert.False(t, swapped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearRefreshToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+refresh_token\s*=\s*NULL,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).WithArgs(userID).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.ClearRefreshToken(context.Background(), userID))

	mock.ExpectExec(q).WithArgs(userID).WillReturnError(errors.New("db err"))
	require.Error(t, repo.ClearRefreshToken(context.Background(), userID))
}
