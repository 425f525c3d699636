// Package tokens is the session ledger: issued tokens and their logged-out
// state. Rows are never deleted.
package tokens

import (
	"context"

	"github.com/zekret/zekret/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.Token) error
	// FindByAccessToken returns common.ErrorNotFound for unknown tokens.
	FindByAccessToken(ctx context.Context, accessToken string) (*models.Token, error)
	// FindActiveByRefreshToken locks and returns the active session owning
	// refreshToken.
	FindActiveByRefreshToken(ctx context.Context, refreshToken string) (*models.Token, error)
	// InvalidateAllForUser marks every active token of userID as logged out
	// and returns how many were affected. Zero is not an error.
	InvalidateAllForUser(ctx context.Context, userID string) (int64, error)
}
