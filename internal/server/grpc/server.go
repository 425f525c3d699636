// Package grpc runs the Zekret gRPC listener. It serves the standard health
// service and authenticates every non-public call with the same bearer
// token check as the HTTP API.
package grpc

import (
	"context"
	"net"

	"github.com/zekret/zekret/internal/logging"
	"github.com/zekret/zekret/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type GRPCServer struct {
	address       string
	authenticator Authenticator
	public        *auth.PublicRoutes
	health        *health.Server
	logger        logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, authenticator Authenticator, public *auth.PublicRoutes) *GRPCServer {
	return &GRPCServer{
		address:       a,
		logger:        l.With("module", "grpc_server"),
		authenticator: authenticator,
		public:        public,
		health:        health.NewServer(),
	}
}

// Health exposes the health registry so callers can flip serving status.
func (s *GRPCServer) Health() *health.Server {
	return s.health
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.loggingInterceptor,
		s.accessTokenInterceptor,
	))
	healthpb.RegisterHealthServer(srv, s.health)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
