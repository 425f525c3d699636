package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"
	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/server/metrics"
	"github.com/zekret/zekret/internal/server/models"
)

// TokenFinder looks up stored sessions by access token.
type TokenFinder interface {
	FindByAccessToken(ctx context.Context, accessToken string) (*models.Token, error)
}

// TokenVerifier checks a token's signature and expiry.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Authenticator validates bearer tokens for protected requests. Revocation
// state comes from the token store, expiry and integrity from the token.
type Authenticator struct {
	tokens   TokenFinder
	verifier TokenVerifier
	metrics  *metrics.Metrics
}

func NewAuthenticator(tokens TokenFinder, verifier TokenVerifier, m *metrics.Metrics) *Authenticator {
	return &Authenticator{tokens: tokens, verifier: verifier, metrics: m}
}

// Authenticate resolves the principal behind an Authorization header value.
// Rejections unwrap to common.ErrorUnauthorized; store failures do not.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (*Principal, error) {
	token, ok := ParseBearer(authorization)
	if !ok {
		return nil, a.reject("missing_token", common.ErrMissingToken)
	}

	rec, err := a.tokens.FindByAccessToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, a.reject("unknown_token", common.ErrInvalidToken)
		}
		return nil, oops.In("auth").Code("token_lookup_failed").Wrap(err)
	}
	if rec.LoggedOut {
		return nil, a.reject("logged_out", common.ErrLoggedOutToken)
	}

	claims, err := a.verifier.Verify(token)
	if err != nil {
		return nil, a.reject(rejectReason(err), err)
	}

	return &Principal{UserID: rec.UserID, Subject: claims.Subject, TokenID: rec.ID}, nil
}

func (a *Authenticator) reject(reason string, err error) error {
	a.metrics.AuthRejected(reason)
	return err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		return "expired"
	case errors.Is(err, common.ErrTokenSignature):
		return "bad_signature"
	case errors.Is(err, common.ErrTokenMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}

// ParseBearer extracts the token from "Bearer <token>". The scheme is
// matched case-insensitively.
func ParseBearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
