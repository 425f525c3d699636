package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/logging"
	"github.com/zekret/zekret/internal/server/auth"
	"github.com/zekret/zekret/internal/server/metrics"
)

const requestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestIDFrom returns the id assigned to the request by RequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(requestIDHeader, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey{}, requestID))

		c.Next()
	}
}

func Logger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
			"status", status,
			"latency", time.Since(start),
			"request_id", c.Writer.Header().Get(requestIDHeader),
		}

		switch {
		case status >= 500:
			log.Error(c.Request.Context(), "http request", args...)
		case status >= 400:
			log.Warn(c.Request.Context(), "http request", args...)
		default:
			log.Info(c.Request.Context(), "http request", args...)
		}
	}
}

func Recovery(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(c.Request.Context(), "panic recovered",
					"error", r,
					"request_id", c.Writer.Header().Get(requestIDHeader))
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{
					Status:  http.StatusInternalServerError,
					Error:   http.StatusText(http.StatusInternalServerError),
					Message: common.PublicMessage(common.ErrorInternal),
					Path:    c.Request.URL.Path,
				})
			}
		}()
		c.Next()
	}
}

// Metrics records request counts and latency labelled by the matched route
// template, never the raw path.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// Timeout bounds the request context. A zero duration leaves it unbounded.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestAuthenticator resolves the principal behind an Authorization header.
type RequestAuthenticator interface {
	Authenticate(ctx context.Context, authorization string) (*auth.Principal, error)
}

// Auth rejects requests to non-public routes that do not carry a valid,
// active bearer token. On success the principal is bound to the request
// context.
func Auth(authenticator RequestAuthenticator, public *auth.PublicRoutes, log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if public.IsPublic(c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}

		p, err := authenticator.Authenticate(c.Request.Context(), c.GetHeader(common.AuthorizationHeader))
		if err != nil {
			abortWithError(c, log, err)
			return
		}

		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// principal returns the authenticated caller. Routes behind Auth always
// have one; a missing principal is answered with 401.
func principal(c *gin.Context, log logging.Logger) (*auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(c.Request.Context())
	if !ok {
		abortWithError(c, log, common.ErrMissingToken)
		return nil, false
	}
	return p, true
}
