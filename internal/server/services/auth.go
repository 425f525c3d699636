// Package services contains server-side business logic. Every service is
// bound to a *sql.DB and a RepositoryManager; writes that must be atomic run
// through dbx.WithTx with repositories rebound to the transaction.
package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/dbx"
	"github.com/zekret/zekret/internal/logging"
	"github.com/zekret/zekret/internal/server/auth"
	"github.com/zekret/zekret/internal/server/metrics"
	"github.com/zekret/zekret/internal/server/models"
	"github.com/zekret/zekret/internal/server/repositories/repomanager"
)

// refreshTokenBytes is the entropy of a refresh token before hex encoding.
const refreshTokenBytes = 32

// dummyPassword is hashed once and verified against when the identifier
// does not resolve, so unknown users cost the same as known ones.
const dummyPassword = "zekret-timing-equalizer"

var ErrUserNotFound = common.NewError(common.ErrorNotFound, "user not found")

// TokenSigner issues signed access tokens.
type TokenSigner interface {
	Issue(u *models.User) (string, error)
}

// AuthResult is returned by a successful login or refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	Message      string
}

// AuthService authenticates users and maintains the single-active-session
// policy: issuing a session revokes every other active session of the user
// in the same transaction.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	signer      TokenSigner
	refreshTTL  time.Duration
	metrics     *metrics.Metrics
	logger      logging.Logger
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher, signer TokenSigner,
	refreshTTL time.Duration, mt *metrics.Metrics, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		signer:      signer,
		refreshTTL:  refreshTTL,
		metrics:     mt,
		logger:      logger,
		now:         time.Now,
	}
}

// Authenticate resolves identifier (email or username, exact match), checks
// the password and opens a new session.
//
// The password is verified before branching on the account state, against a
// dummy hash when the user does not exist, so neither a disabled account nor
// an unknown identifier answers faster than a wrong password.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*AuthResult, error) {
	user, err := s.repomanager.Users(s.db).FindByEmailOrUsername(ctx, identifier)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.metrics.LoginAttempt(metrics.LoginError)
		return nil, oops.In("auth").Code("user_lookup_failed").Wrap(err)
	}

	hash := s.fallbackHash()
	if user != nil {
		hash = user.PasswordHash
	}
	matched, verifyErr := s.hasher.Verify(password, hash)

	switch {
	case user == nil:
		s.metrics.LoginAttempt(metrics.LoginNotFound)
		return nil, ErrUserNotFound
	case !user.Enabled:
		s.metrics.LoginAttempt(metrics.LoginDisabled)
		return nil, common.ErrAccountDisabled
	case verifyErr != nil:
		s.metrics.LoginAttempt(metrics.LoginError)
		return nil, oops.In("auth").Code("password_verify_failed").With("user_id", user.ID).Wrap(verifyErr)
	case !matched:
		s.metrics.LoginAttempt(metrics.LoginBadPassword)
		return nil, common.ErrInvalidCredentials
	}

	res, err := s.openSession(ctx, user, "")
	if err != nil {
		s.metrics.LoginAttempt(metrics.LoginError)
		return nil, err
	}
	s.metrics.LoginAttempt(metrics.LoginSuccess)
	s.logger.Info(ctx, "login succeeded", "user_id", user.ID)
	res.Message = "Login successful"
	return res, nil
}

// Refresh rotates a refresh token: the session owning it is revoked together
// with every other active session of its user, and a new pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		s.metrics.LoginAttempt(metrics.RefreshRejected)
		return nil, common.ErrInvalidToken
	}

	rec, err := s.repomanager.Tokens(s.db).FindActiveByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.LoginAttempt(metrics.RefreshRejected)
			return nil, common.ErrInvalidToken
		}
		return nil, oops.In("auth").Code("refresh_lookup_failed").Wrap(err)
	}
	if !s.now().Before(rec.IssuedAt.Add(s.refreshTTL)) {
		s.metrics.LoginAttempt(metrics.RefreshRejected)
		return nil, common.ErrRefreshTokenExpired
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, rec.UserID)
	if err != nil {
		return nil, oops.In("auth").Code("user_lookup_failed").With("user_id", rec.UserID).Wrap(err)
	}
	if !user.Enabled {
		s.metrics.LoginAttempt(metrics.RefreshRejected)
		return nil, common.ErrAccountDisabled
	}

	res, err := s.openSession(ctx, user, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.metrics.LoginAttempt(metrics.RefreshRejected)
		}
		return nil, err
	}
	s.metrics.LoginAttempt(metrics.RefreshSuccess)
	res.Message = "Token refreshed"
	return res, nil
}

// Logout revokes every active session of the user identified by identifier.
// A user without active sessions logs out successfully.
func (s *AuthService) Logout(ctx context.Context, identifier string) error {
	user, err := s.repomanager.Users(s.db).FindByEmailOrUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrUserNotFound
		}
		return oops.In("auth").Code("user_lookup_failed").Wrap(err)
	}

	var revoked int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockForUpdate(ctx, user.ID); err != nil {
			return err
		}
		n, err := s.repomanager.Tokens(tx).InvalidateAllForUser(ctx, user.ID)
		revoked = n
		return err
	})
	if err != nil {
		return oops.In("auth").Code("logout_failed").With("user_id", user.ID).Wrap(err)
	}

	s.metrics.LoginAttempt(metrics.LogoutSuccess)
	s.logger.Info(ctx, "logout", "user_id", user.ID, "revoked", revoked)
	return nil
}

// openSession issues a new token pair for user and, in one transaction,
// revokes all of the user's active sessions and records the new one. When
// rotating is non-empty the refresh token must still be active once the user
// row is locked, so a refresh token can be redeemed only once.
func (s *AuthService) openSession(ctx context.Context, user *models.User, rotating string) (*AuthResult, error) {
	access, err := s.signer.Issue(user)
	if err != nil {
		return nil, oops.In("auth").Code("token_sign_failed").With("user_id", user.ID).Wrap(err)
	}
	refresh, err := common.MakeRandHexString(refreshTokenBytes)
	if err != nil {
		return nil, oops.In("auth").Code("refresh_token_failed").Wrap(err)
	}

	token := &models.Token{
		ID:           ulid.Make().String(),
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       user.ID,
		IssuedAt:     s.now().UTC(),
	}

	var revoked int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockForUpdate(ctx, user.ID); err != nil {
			return err
		}
		tokens := s.repomanager.Tokens(tx)
		if rotating != "" {
			if _, err := tokens.FindActiveByRefreshToken(ctx, rotating); err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return common.ErrInvalidToken
				}
				return err
			}
		}
		n, err := tokens.InvalidateAllForUser(ctx, user.ID)
		if err != nil {
			return err
		}
		revoked = n
		return tokens.Create(ctx, token)
	})
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, err
		}
		return nil, oops.In("auth").Code("session_persist_failed").With("user_id", user.ID).Wrap(err)
	}

	s.logger.Debug(ctx, "session opened", "user_id", user.ID, "token_id", token.ID, "revoked", revoked)
	return &AuthResult{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) fallbackHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Warn(context.Background(), "dummy hash unavailable", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
