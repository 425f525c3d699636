// Package users persists user accounts.
package users

import (
	"context"

	"github.com/zekret/zekret/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// LockForUpdate takes a row lock on the user for the rest of the
	// enclosing transaction.
	LockForUpdate(ctx context.Context, id string) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
}
