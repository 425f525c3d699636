package namespaces

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

func (r *PostgresRepository) Create(ctx context.Context, ns *models.Namespace) (*models.Namespace, error) {
	query :=
		`INSERT INTO namespaces (zrn, user_id, name, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, ns.ZRN, ns.UserID, ns.Name, ns.Description).
		Scan(&ns.ID, &ns.CreatedAt, &ns.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.NewError(common.ErrorConflict, "namespace already exists")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ns, nil
}

func (r *PostgresRepository) FindByZRNAndUser(ctx context.Context, zrn, userID string) (*models.Namespace, error) {
	query :=
		`SELECT id, zrn, user_id, name, description, created_at, updated_at FROM namespaces
		 WHERE zrn = $1 AND user_id = $2
		 `

	ns := &models.Namespace{}
	err := r.db.QueryRowContext(ctx, query, zrn, userID).Scan(scanTargets(ns)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.ErrorNotFound, "namespace not found")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ns, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Namespace, error) {
	query :=
		`SELECT id, zrn, user_id, name, description, created_at, updated_at FROM namespaces
		 WHERE user_id = $1
		 ORDER BY created_at, id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Namespace, 0)
	for rows.Next() {
		ns := &models.Namespace{}
		if err := rows.Scan(scanTargets(ns)...); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Update writes name and description of ns, which must belong to ns.UserID.
func (r *PostgresRepository) Update(ctx context.Context, ns *models.Namespace) (*models.Namespace, error) {
	query :=
		`UPDATE namespaces SET name = $3, description = $4, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, ns.ID, ns.UserID, ns.Name, ns.Description).Scan(&ns.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.ErrorNotFound, "namespace not found")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ns, nil
}

// Delete removes the namespace; its credentials go with it by cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) error {
	query :=
		`DELETE FROM namespaces
		 WHERE id = $1 AND user_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.NewError(common.ErrorNotFound, "namespace not found")
	}
	return nil
}

func scanTargets(ns *models.Namespace) []any {
	return []any{&ns.ID, &ns.ZRN, &ns.UserID, &ns.Name, &ns.Description, &ns.CreatedAt, &ns.UpdatedAt}
}
