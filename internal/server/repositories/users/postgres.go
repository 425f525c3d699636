package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/dbx"
	"github.com/zekret/zekret/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts user and fills in its generated fields. A taken email or
// username yields common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, username, password_hash, enabled)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Enabled).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, conflictFor(dbx.ConstraintName(err))
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// Constraint names Postgres assigns to the inline UNIQUE columns of users.
const (
	emailConstraint    = "users_email_key"
	usernameConstraint = "users_username_key"
)

func conflictFor(constraint string) error {
	switch constraint {
	case emailConstraint:
		return common.NewError(common.ErrorConflict, "email already registered")
	case usernameConstraint:
		return common.NewError(common.ErrorConflict, "username already taken")
	default:
		return common.NewError(common.ErrorConflict, "email or username already in use")
	}
}

// FindByEmailOrUsername matches identifier exactly against email or
// username, preferring an email match.
func (r *PostgresRepository) FindByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error) {
	query :=
		`SELECT id, email, username, password_hash, enabled, created_at, updated_at FROM users
		 WHERE email = $1 OR username = $1
		 ORDER BY (email = $1) DESC
		 LIMIT 1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, identifier))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, email, username, password_hash, enabled, created_at, updated_at FROM users
		 WHERE id = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) LockForUpdate(ctx context.Context, id string) error {
	query :=
		`SELECT id FROM users
		 WHERE id = $1
		 FOR UPDATE
		 `

	var locked string
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	query :=
		`UPDATE users SET enabled = $2, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, enabled)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.Enabled, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
