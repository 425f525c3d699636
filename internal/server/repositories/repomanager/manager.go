package repomanager

import (
	"context"
	"database/sql"

	"github.com/zekret/zekret/internal/dbx"
	"github.com/zekret/zekret/internal/server/repositories/credentials"
	"github.com/zekret/zekret/internal/server/repositories/credentialtypes"
	"github.com/zekret/zekret/internal/server/repositories/namespaces"
	"github.com/zekret/zekret/internal/server/repositories/tokens"
	"github.com/zekret/zekret/internal/server/repositories/users"
)

// RepositoryManager binds repositories to a DBTX, so the same service code
// runs against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	RollbackMigration(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Tokens(db dbx.DBTX) tokens.Repository
	Namespaces(db dbx.DBTX) namespaces.Repository
	CredentialTypes(db dbx.DBTX) credentialtypes.Repository
	Credentials(db dbx.DBTX) credentials.Repository
}
