// Package credentialtypes persists the global credential type catalogue.
package credentialtypes

import (
	"context"

	"github.com/zekret/zekret/internal/server/models"
)

type Repository interface {
	// Upsert inserts ct or renames the existing row with the same ZRN.
	Upsert(ctx context.Context, ct *models.CredentialType) (*models.CredentialType, error)
	FindByZRN(ctx context.Context, zrn string) (*models.CredentialType, error)
	List(ctx context.Context) ([]*models.CredentialType, error)
}
