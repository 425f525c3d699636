package credentialtypes

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

func (r *PostgresRepository) Upsert(ctx context.Context, ct *models.CredentialType) (*models.CredentialType, error) {
	query :=
		`INSERT INTO credential_types (zrn, name)
		 VALUES ($1, $2)
		 ON CONFLICT (zrn) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id
		 `

	if err := r.db.QueryRowContext(ctx, query, ct.ZRN, ct.Name).Scan(&ct.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ct, nil
}

func (r *PostgresRepository) FindByZRN(ctx context.Context, zrn string) (*models.CredentialType, error) {
	query :=
		`SELECT id, zrn, name FROM credential_types
		 WHERE zrn = $1
		 `

	ct := &models.CredentialType{}
	if err := r.db.QueryRowContext(ctx, query, zrn).Scan(&ct.ID, &ct.ZRN, &ct.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.ErrorNotFound, "credential type not found")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ct, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.CredentialType, error) {
	query :=
		`SELECT id, zrn, name FROM credential_types
		 ORDER BY name
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.CredentialType, 0)
	for rows.Next() {
		ct := &models.CredentialType{}
		if err := rows.Scan(&ct.ID, &ct.ZRN, &ct.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
