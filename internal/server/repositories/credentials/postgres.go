package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/dbx"
	"github.com/zekret/zekret/internal/server/models"
)

const selectJoined = `
	SELECT c.id, c.zrn, c.user_id, c.namespace_id, c.credential_type_id,
	       c.title, c.username, c.password, c.ssh_public_key, c.ssh_private_key,
	       c.secret_text, c.file_name, c.file_content, c.file_key, c.notes,
	       c.created_at, c.updated_at,
	       n.zrn, n.name, ct.zrn, ct.name
	FROM credentials c
	JOIN namespaces n ON n.id = c.namespace_id
	JOIN credential_types ct ON ct.id = c.credential_type_id
`

var errNotFound = common.NewError(common.ErrorNotFound, "credential not found")

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	query :=
		`INSERT INTO credentials (zrn, user_id, namespace_id, credential_type_id, title,
		   username, password, ssh_public_key, ssh_private_key, secret_text,
		   file_name, file_content, file_key, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		c.ZRN, c.UserID, c.NamespaceID, c.CredentialTypeID, c.Title,
		c.Username, c.Password, c.SSHPublicKey, c.SSHPrivateKey, c.SecretText,
		c.FileName, c.FileContent, c.FileKey, c.Notes,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.NewError(common.ErrorConflict, "credential already exists")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) FindByZRNAndUser(ctx context.Context, zrn, userID string) (*models.Credential, error) {
	query := selectJoined + `WHERE c.zrn = $1 AND c.user_id = $2`

	rows, err := r.db.QueryContext(ctx, query, zrn, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		return nil, errNotFound
	}
	return scanJoined(rows)
}

func (r *PostgresRepository) ListByNamespace(ctx context.Context, namespaceZRN, userID string) ([]*models.Credential, error) {
	query := selectJoined + `WHERE n.zrn = $1 AND c.user_id = $2 ORDER BY c.created_at, c.id`

	rows, err := r.db.QueryContext(ctx, query, namespaceZRN, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Credential, 0)
	for rows.Next() {
		c, err := scanJoined(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Update rewrites every mutable column of c, which must belong to c.UserID.
func (r *PostgresRepository) Update(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	query :=
		`UPDATE credentials SET
		   namespace_id = $3, credential_type_id = $4, title = $5,
		   username = $6, password = $7, ssh_public_key = $8, ssh_private_key = $9,
		   secret_text = $10, file_name = $11, file_content = $12, file_key = $13,
		   notes = $14, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.UserID, c.NamespaceID, c.CredentialTypeID, c.Title,
		c.Username, c.Password, c.SSHPublicKey, c.SSHPrivateKey,
		c.SecretText, c.FileName, c.FileContent, c.FileKey, c.Notes,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) error {
	query :=
		`DELETE FROM credentials
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
		return errNotFound
	}
	return nil
}

func scanJoined(rows *sql.Rows) (*models.Credential, error) {
	c := &models.Credential{
		Namespace:      &models.Namespace{},
		CredentialType: &models.CredentialType{},
	}
	err := rows.Scan(
		&c.ID, &c.ZRN, &c.UserID, &c.NamespaceID, &c.CredentialTypeID,
		&c.Title, &c.Username, &c.Password, &c.SSHPublicKey, &c.SSHPrivateKey,
		&c.SecretText, &c.FileName, &c.FileContent, &c.FileKey, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt,
		&c.Namespace.ZRN, &c.Namespace.Name, &c.CredentialType.ZRN, &c.CredentialType.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.Namespace.ID = c.NamespaceID
	c.Namespace.UserID = c.UserID
	c.CredentialType.ID = c.CredentialTypeID
	return c, nil
}
