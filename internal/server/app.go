// Package server wires the Zekret server together: database, repositories,
// services and the HTTP and gRPC listeners.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/oops"
	"github.com/zekret/zekret/internal/cryptox"
	"github.com/zekret/zekret/internal/logging"
	"github.com/zekret/zekret/internal/server/auth"
	"github.com/zekret/zekret/internal/server/config"
	"github.com/zekret/zekret/internal/server/database"
	"github.com/zekret/zekret/internal/server/metrics"
	"github.com/zekret/zekret/internal/server/models"
	"github.com/zekret/zekret/internal/server/repositories/repomanager"
	"github.com/zekret/zekret/internal/server/services"
	"github.com/zekret/zekret/internal/server/storage"

	gs "github.com/zekret/zekret/internal/server/grpc"
	hs "github.com/zekret/zekret/internal/server/http"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	repos   repomanager.RepositoryManager
	metrics *metrics.Metrics

	authenticator *auth.Authenticator
	public        *auth.PublicRoutes

	Auth            *services.AuthService
	Users           *services.UserService
	Namespaces      *services.NamespaceService
	CredentialTypes *services.CredentialTypeService
	Credentials     *services.CredentialService
}

// openDB is a test seam for database.Open.
var openDB = database.Open

// newBlobStore returns nil when no bucket is configured, which keeps
// credential file content in the database.
var newBlobStore = func(ctx context.Context, cfg config.S3Config) (storage.BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}
	return storage.NewS3Store(ctx, cfg)
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(ctx, c.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db, repomanager.NewPostgresRepositoryManager())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	public, err := auth.NewPublicRoutes(c.Auth.PublicRoutes)
	if err != nil {
		return nil, oops.In("app").Code("public_routes_invalid").Wrap(err)
	}

	sealer, err := cryptox.NewSealer(c.Crypto.EncryptionKey)
	if err != nil {
		return nil, oops.In("app").Code("sealer_init_failed").Wrap(err)
	}

	blobs, err := newBlobStore(ctx, c.S3)
	if err != nil {
		return nil, oops.In("app").Code("blob_store_init_failed").With("bucket", c.S3.Bucket).Wrap(err)
	}

	m := metrics.New()
	hasher := auth.NewBcryptHasher(c.Auth.BcryptCost)
	issuer := auth.NewTokenIssuer([]byte(c.Auth.SecretKey), c.Auth.Issuer, c.Auth.AccessTokenTTL)

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		repos:   rm,
		metrics: m,

		authenticator: auth.NewAuthenticator(rm.Tokens(db), issuer, m),
		public:        public,

		Auth:            services.NewAuthService(db, rm, hasher, issuer, c.Auth.RefreshTokenTTL, m, logger),
		Users:           services.NewUserService(db, rm, hasher, logger),
		Namespaces:      services.NewNamespaceService(db, rm, logger),
		CredentialTypes: services.NewCredentialTypeService(db, rm, logger),
		Credentials:     services.NewCredentialService(db, rm, sealer, blobs, logger),
	}, nil
}

func (app *App) Close() error {
	return app.db.Close()
}

// Migrate applies all pending migrations.
func (app *App) Migrate(ctx context.Context) error {
	return app.repos.RunMigrations(ctx, app.db)
}

// Rollback reverts the most recent migration.
func (app *App) Rollback(ctx context.Context) error {
	return app.repos.RollbackMigration(ctx, app.db)
}

// Run migrates the schema, seeds credential types and serves HTTP and gRPC
// until ctx is cancelled or either listener fails.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	if err := app.Migrate(ctx); err != nil {
		return err
	}
	if err := app.CredentialTypes.Seed(ctx, app.config.CredentialTypes); err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	httpServer := hs.NewServer(app.config.HTTP, hs.Deps{
		Auth:            app.Auth,
		Users:           app.Users,
		Namespaces:      app.Namespaces,
		Credentials:     app.Credentials,
		CredentialTypes: app.CredentialTypes,
		Authenticator:   app.authenticator,
		Public:          app.public,
		Metrics:         app.metrics,
		DB:              app.db,
	}, app.logger)
	grpcServer := gs.NewGRPCServer(app.config.GRPC.Address, app.logger, app.authenticator, app.public)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	start := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				app.logger.Error(ctx, "server stopped with error", "server", name, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
			cancelFunc()
		}()
	}

	start("http", httpServer.Run)
	start("grpc", grpcServer.Run)

	wg.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")

	return errors.Join(errs...)
}

// RegisterUser creates an enabled account.
func (app *App) RegisterUser(ctx context.Context, email, username, password string) (*models.User, error) {
	return app.Users.Register(ctx, email, username, password)
}

// SetUserEnabled enables or disables an account. Disabling also revokes
// every active session of the user.
func (app *App) SetUserEnabled(ctx context.Context, identifier string, enabled bool) (*models.User, error) {
	u, err := app.Users.SetEnabled(ctx, identifier, enabled)
	if err != nil {
		return nil, err
	}
	if !enabled {
		if err := app.Auth.Logout(ctx, identifier); err != nil {
			return nil, err
		}
	}
	return u, nil
}
