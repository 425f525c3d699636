package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/server/models"
)

var alice = &models.User{ID: "u-1", Email: "alice@example.com", Username: "alice", Enabled: true}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	iss := NewTokenIssuer([]byte("super-secret"), "zekret", time.Hour)

	tok, err := iss.Issue(alice)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("expected three dot-separated segments, got %q", tok)
	}

	claims, err := iss.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Subject != alice.Email {
		t.Fatalf("subject mismatch: got %q want %q", claims.Subject, alice.Email)
	}
	if claims.Issuer != "zekret" {
		t.Fatalf("issuer mismatch: got %q", claims.Issuer)
	}
	if len(claims.Groups) != 1 || claims.Groups[0] != GroupUser {
		t.Fatalf("unexpected groups: %v", claims.Groups)
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Before(time.Now()) {
		t.Fatalf("unexpected expiry: %v", claims.ExpiresAt)
	}
}

func TestIssue_DistinctTokensSameInstant(t *testing.T) {
	t.Parallel()

	iss := NewTokenIssuer([]byte("k"), "zekret", time.Hour)
	fixed := time.Unix(1_700_000_000, 0)
	iss.now = func() time.Time { return fixed }

	a, err := iss.Issue(alice)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	b, err := iss.Issue(alice)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if a == b {
		t.Fatal("tokens issued at the same instant must differ")
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	iss := NewTokenIssuer([]byte("secret"), "zekret", -1*time.Second)

	tok, err := iss.Issue(alice)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = iss.Verify(tok)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expired token must be unauthorized, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenIssuer([]byte("right-secret"), "zekret", time.Hour).Issue(alice)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = NewTokenIssuer([]byte("wrong-secret"), "zekret", time.Hour).Verify(tok)
	if !errors.Is(err, common.ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer([]byte("k"), "zekret", time.Hour).Verify("not.a.jwt")
	if !errors.Is(err, common.ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenIssuer([]byte("k"), "someone-else", time.Hour).Issue(alice)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = NewTokenIssuer([]byte("k"), "zekret", time.Hour).Verify(tok)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "zekret",
			Subject:   alice.Email,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Groups: []string{GroupUser},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	_, err = NewTokenIssuer([]byte("k"), "zekret", time.Hour).Verify(tok)
	if err == nil {
		t.Fatal("unsigned token must be rejected")
	}
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
