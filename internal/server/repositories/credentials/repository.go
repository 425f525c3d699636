// Package credentials persists user-owned credentials. Reads join the
// owning namespace and the credential type so callers can render ZRNs
// without extra lookups.
package credentials

import (
	"context"

	"github.com/zekret/zekret/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Credential) (*models.Credential, error)
	FindByZRNAndUser(ctx context.Context, zrn, userID string) (*models.Credential, error)
	ListByNamespace(ctx context.Context, namespaceZRN, userID string) ([]*models.Credential, error)
	Update(ctx context.Context, c *models.Credential) (*models.Credential, error)
	Delete(ctx context.Context, id, userID string) error
}
