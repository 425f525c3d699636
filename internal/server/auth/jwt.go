// Package auth issues and verifies access tokens, hashes passwords and
// authenticates bearer tokens on incoming requests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/server/models"
)

// GroupUser is the only group granted to authenticated principals.
const GroupUser = "user"

// Claims carried by an access token. Subject is the user's email.
type Claims struct {
	jwt.RegisteredClaims
	Groups []string `json:"groups"`
}

// TokenIssuer signs and verifies HS256 access tokens with a fixed key.
// It holds no mutable state and is safe for concurrent use.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret []byte, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed access token for u.
func (i *TokenIssuer) Issue(u *models.User) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			// Two logins within the same second must still yield distinct tokens.
			ID: ulid.Make().String(),
		},
		Groups: []string{GroupUser},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", common.ErrorInternal, err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of token and returns its
// claims. Failures wrap ErrTokenExpired, ErrTokenSignature, ErrTokenMalformed
// or ErrInvalidToken.
func (i *TokenIssuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", jwt.ErrTokenSignatureInvalid, t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", common.ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %v", common.ErrTokenSignature, err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
		default:
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
		}
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
