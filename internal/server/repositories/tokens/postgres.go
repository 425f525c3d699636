package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/dbx"
	"github.com/zekret/zekret/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.Token) error {
	query := `
		INSERT INTO tokens (id, access_token, refresh_token, user_id, logged_out, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID, token.AccessToken, token.RefreshToken, token.UserID, token.LoggedOut, token.IssuedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.NewError(common.ErrorConflict, "token already recorded")
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByAccessToken(ctx context.Context, accessToken string) (*models.Token, error) {
	query := `
		SELECT id, access_token, refresh_token, user_id, logged_out, issued_at
		FROM tokens
		WHERE access_token = $1
	`
	return scanToken(r.db.QueryRowContext(ctx, query, accessToken))
}

func (r *PostgresRepository) FindActiveByRefreshToken(ctx context.Context, refreshToken string) (*models.Token, error) {
	query := `
		SELECT id, access_token, refresh_token, user_id, logged_out, issued_at
		FROM tokens
		WHERE refresh_token = $1 AND logged_out = false
		FOR UPDATE
	`
	return scanToken(r.db.QueryRowContext(ctx, query, refreshToken))
}

// InvalidateAllForUser is a single conditional UPDATE so concurrent callers
// never read-then-write the ledger.
func (r *PostgresRepository) InvalidateAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE tokens SET logged_out = true
		WHERE user_id = $1 AND logged_out = false
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func scanToken(row *sql.Row) (*models.Token, error) {
	t := &models.Token{}
	if err := row.Scan(&t.ID, &t.AccessToken, &t.RefreshToken, &t.UserID, &t.LoggedOut, &t.IssuedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}
