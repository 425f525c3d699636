// Package http exposes the Zekret REST API over gin.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zekret/zekret/internal/logging"
	"github.com/zekret/zekret/internal/server/auth"
	"github.com/zekret/zekret/internal/server/config"
	"github.com/zekret/zekret/internal/server/metrics"
	"github.com/zekret/zekret/internal/server/models"
	"github.com/zekret/zekret/internal/server/services"
)

type AuthService interface {
	Authenticate(ctx context.Context, identifier, password string) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.AuthResult, error)
	Logout(ctx context.Context, identifier string) error
}

type UserService interface {
	Register(ctx context.Context, email, username, password string) (*models.User, error)
	Me(ctx context.Context, userID string) (*models.User, error)
}

type NamespaceService interface {
	List(ctx context.Context, userID string) ([]*models.Namespace, error)
	Get(ctx context.Context, userID, nsZRN string) (*models.Namespace, error)
	Create(ctx context.Context, userID string, in services.NamespaceInput) (*models.Namespace, error)
	Update(ctx context.Context, userID, nsZRN string, in services.NamespaceInput) (*models.Namespace, error)
	Delete(ctx context.Context, userID, nsZRN string) error
}

type CredentialService interface {
	Get(ctx context.Context, userID, credZRN string) (*models.Credential, error)
	ListByNamespace(ctx context.Context, userID, nsZRN string) ([]*models.Credential, error)
	Create(ctx context.Context, userID string, in services.CredentialInput) (*models.Credential, error)
	Update(ctx context.Context, userID, credZRN string, in services.CredentialInput) (*models.Credential, error)
	Delete(ctx context.Context, userID, credZRN string) error
}

type CredentialTypeService interface {
	List(ctx context.Context) ([]*models.CredentialType, error)
	Get(ctx context.Context, ctZRN string) (*models.CredentialType, error)
}

// Pinger reports database readiness. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Auth            AuthService
	Users           UserService
	Namespaces      NamespaceService
	Credentials     CredentialService
	CredentialTypes CredentialTypeService

	Authenticator RequestAuthenticator
	Public        *auth.PublicRoutes
	Metrics       *metrics.Metrics
	DB            Pinger
}

// Server is the HTTP API server.
type Server struct {
	engine          *gin.Engine
	srv             *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration
}

func NewServer(cfg config.HTTPConfig, deps Deps, logger logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(
		RequestID(),
		Logger(logger),
		Recovery(logger),
		Metrics(deps.Metrics),
		Timeout(cfg.RequestTimeout),
		Auth(deps.Authenticator, deps.Public, logger),
	)

	h := &handlers{deps: deps, logger: logger}
	h.register(engine)

	return &Server{
		engine: engine,
		srv: &http.Server{
			Addr:              cfg.Address,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Handler returns the router, for mounting in tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.logger.Info(ctx, "HTTP server listening", "address", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "HTTP server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
