// Package namespaces persists user-owned namespaces. Every lookup is scoped
// to the owning user; a namespace belonging to someone else is reported as
// not found.
package namespaces

import (
	"context"

	"github.com/zekret/zekret/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, ns *models.Namespace) (*models.Namespace, error)
	FindByZRNAndUser(ctx context.Context, zrn, userID string) (*models.Namespace, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Namespace, error)
	Update(ctx context.Context, ns *models.Namespace) (*models.Namespace, error)
	Delete(ctx context.Context, id, userID string) error
}
