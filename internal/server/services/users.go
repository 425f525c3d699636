package services

import (
	"context"
	"database/sql"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/logging"
	"github.com/zekret/zekret/internal/server/auth"
	"github.com/zekret/zekret/internal/server/models"
	"github.com/zekret/zekret/internal/server/repositories/repomanager"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 20
	minPasswordLen = 6
)

// UserService registers accounts and reads profiles.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher, logger logging.Logger) *UserService {
	return &UserService{db: db, repomanager: m, hasher: hasher, logger: logger}
}

// Register creates an enabled user. Email and username are stored exactly as
// given; a taken email or username yields common.ErrorConflict.
func (s *UserService) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	if err := validateRegistration(email, username, password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.In("users").Code("hash_failed").Wrap(err)
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Enabled:      true,
	})
	if err != nil {
		return nil, oops.In("users").Code("create_failed").With("username", username).Wrap(err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, oops.In("users").Code("get_failed").With("user_id", userID).Wrap(err)
	}
	return u, nil
}

// SetEnabled enables or disables the account identified by identifier.
// Disabling does not revoke sessions by itself; callers pair it with
// AuthService.Logout.
func (s *UserService) SetEnabled(ctx context.Context, identifier string, enabled bool) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	u, err := repo.FindByEmailOrUsername(ctx, identifier)
	if err != nil {
		return nil, oops.In("users").Code("lookup_failed").Wrap(err)
	}
	if err := repo.SetEnabled(ctx, u.ID, enabled); err != nil {
		return nil, oops.In("users").Code("set_enabled_failed").With("user_id", u.ID).Wrap(err)
	}
	u.Enabled = enabled
	s.logger.Info(ctx, "user enabled state changed", "user_id", u.ID, "enabled", enabled)
	return u, nil
}

func validateRegistration(email, username, password string) error {
	if email == "" {
		return common.NewError(common.ErrorBadRequest, "email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return common.NewError(common.ErrorBadRequest, "email must be a valid address")
	}
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return common.Errorf(common.ErrorBadRequest, "username must be between %d and %d characters", minUsernameLen, maxUsernameLen)
	}
	// Usernames and emails share one login field.
	if strings.ContainsAny(username, "@ \t\n") {
		return common.NewError(common.ErrorBadRequest, "username must not contain '@' or whitespace")
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return common.Errorf(common.ErrorBadRequest, "password must be at least %d characters", minPasswordLen)
	}
	if len(password) > auth.MaxPasswordBytes {
		return common.Errorf(common.ErrorBadRequest, "password must be at most %d bytes", auth.MaxPasswordBytes)
	}
	return nil
}
