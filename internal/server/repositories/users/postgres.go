package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

const selectUser = `
		SELECT id, full_name, username, email, password_hash, refresh_token, created_at, updated_at
		FROM users
		`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, full_name, username, email, password_hash, refresh_token)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.FullName, user.UserName, user.Email, user.PasswordHash, nullable(user.RefreshToken)).
		Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: username or email already in use", common.ErrConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, common.ErrNotFound
	}
	return r.findOne(ctx, selectUser+`WHERE id = $1`, id)
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, selectUser+`WHERE username = $1`, username)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg string) (*models.User, error) {
	user := &models.User{}
	var refresh sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.FullName, &user.UserName, &user.Email, &user.PasswordHash,
		&refresh, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.RefreshToken = refresh.String
	return user, nil
}

func (r *PostgresRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *PostgresRepository) exists(ctx context.Context, query string, arg string) (bool, error) {
	var found bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id string, token string) error {
	if !validID(id) {
		return common.ErrNotFound
	}
	query :=
		`UPDATE users SET refresh_token = $2, updated_at = now()
		 WHERE id = $1
		 `
	return r.updateOne(ctx, query, id, nullable(token))
}

// SwapRefreshToken relies on the row lock taken by UPDATE: a concurrent
// swap waits, re-evaluates the WHERE clause against the new value and
// affects no rows.
func (r *PostgresRepository) SwapRefreshToken(ctx context.Context, id string, expected string, next string) (bool, error) {
	if !validID(id) || expected == "" || next == "" {
		return false, nil
	}

	query :=
		`UPDATE users SET refresh_token = $3, updated_at = now()
		 WHERE id = $1 AND refresh_token = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, expected, next)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, id string) error {
	if !validID(id) {
		return common.ErrNotFound
	}
	query :=
		`UPDATE users SET refresh_token = NULL, updated_at = now()
		 WHERE id = $1
		 `
	return r.updateOne(ctx, query, id)
}

func (r *PostgresRepository) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// validID filters out ids that cannot exist; the column is a UUID and any
// other value would only make the server-side cast fail.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
