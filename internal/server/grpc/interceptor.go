package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/logging"
	"github.com/zekret/zekret/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Authenticator resolves the principal behind an authorization value.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (*auth.Principal, error)
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.public.IsPublic("", info.FullMethod) {
		return handler(ctx, req)
	}

	var authorization string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(strings.ToLower(common.AuthorizationHeader)); len(values) > 0 {
			authorization = values[0]
		}
	}

	p, err := s.authenticator.Authenticate(ctx, authorization)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return handler(auth.WithPrincipal(ctx, p), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "grpc call",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"latency", time.Since(start))
	return resp, err
}

// toStatus maps a domain error to a gRPC status. Internal details are
// logged and never returned.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var code codes.Code
	switch common.KindOf(err) {
	case common.ErrorUnauthorized:
		code = codes.Unauthenticated
	case common.ErrorNotFound:
		code = codes.NotFound
	case common.ErrorConflict:
		code = codes.AlreadyExists
	case common.ErrorBadRequest:
		code = codes.InvalidArgument
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			return status.Error(codes.DeadlineExceeded, "request timed out, retry later")
		}
		if errors.Is(err, context.Canceled) {
			return status.Error(codes.Canceled, "request canceled")
		}
		logging.LogError(ctx, s.logger, "grpc request failed", err)
		code = codes.Internal
	}
	return status.Error(code, common.PublicMessage(err))
}
