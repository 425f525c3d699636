package http

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/logging"
	"github.com/zekret/zekret/internal/server/auth"
	"github.com/zekret/zekret/internal/server/config"
	"github.com/zekret/zekret/internal/server/metrics"
	"github.com/zekret/zekret/internal/server/models"
	"github.com/zekret/zekret/internal/server/services"
)

var errBoom = errors.New("boom")

var alice = &auth.Principal{UserID: "u-alice", Subject: "alice@example.com", TokenID: "t-1"}

type fakeAuthenticator struct {
	principals map[string]*auth.Principal
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, header string) (*auth.Principal, error) {
	tok, ok := auth.ParseBearer(header)
	if !ok {
		return nil, common.ErrMissingToken
	}
	p, ok := f.principals[tok]
	if !ok {
		return nil, common.ErrInvalidToken
	}
	return p, nil
}

type fakeAuth struct {
	result      *services.AuthResult
	err         error
	gotID       string
	gotPassword string
	gotRefresh  string
	loggedOut   string
}

func (f *fakeAuth) Authenticate(_ context.Context, identifier, password string) (*services.AuthResult, error) {
	f.gotID, f.gotPassword = identifier, password
	return f.result, f.err
}

func (f *fakeAuth) Refresh(_ context.Context, refreshToken string) (*services.AuthResult, error) {
	f.gotRefresh = refreshToken
	return f.result, f.err
}

func (f *fakeAuth) Logout(_ context.Context, identifier string) error {
	f.loggedOut = identifier
	return f.err
}

type fakeUsers struct {
	user *models.User
	err  error
}

func (f *fakeUsers) Register(_ context.Context, email, username, _ string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{Email: email, Username: username, Enabled: true, CreatedAt: time.Unix(0, 0).UTC()}, nil
}

func (f *fakeUsers) Me(_ context.Context, userID string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.user == nil || f.user.ID != userID {
		return nil, common.NewError(common.ErrorNotFound, "user not found")
	}
	return f.user, nil
}

type fakeNamespaces struct {
	byZRN map[string]*models.Namespace
	err   error
}

func (f *fakeNamespaces) owned(userID, nsZRN string) (*models.Namespace, error) {
	n, ok := f.byZRN[nsZRN]
	if !ok || n.UserID != userID {
		return nil, common.NewError(common.ErrorNotFound, "namespace not found")
	}
	return n, nil
}

func (f *fakeNamespaces) List(_ context.Context, userID string) ([]*models.Namespace, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Namespace
	for _, n := range f.byZRN {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNamespaces) Get(_ context.Context, userID, nsZRN string) (*models.Namespace, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.owned(userID, nsZRN)
}

func (f *fakeNamespaces) Create(_ context.Context, userID string, in services.NamespaceInput) (*models.Namespace, error) {
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, common.NewError(common.ErrorBadRequest, "name is required")
	}
	n := &models.Namespace{ZRN: "zrn:zekret:namespace:20250101:new", UserID: userID, Name: in.Name, Description: in.Description}
	f.byZRN[n.ZRN] = n
	return n, nil
}

func (f *fakeNamespaces) Update(_ context.Context, userID, nsZRN string, in services.NamespaceInput) (*models.Namespace, error) {
	n, err := f.owned(userID, nsZRN)
	if err != nil {
		return nil, err
	}
	n.Name, n.Description = in.Name, in.Description
	return n, nil
}

func (f *fakeNamespaces) Delete(_ context.Context, userID, nsZRN string) error {
	if _, err := f.owned(userID, nsZRN); err != nil {
		return err
	}
	delete(f.byZRN, nsZRN)
	return nil
}

type fakeCredentials struct {
	byZRN   map[string]*models.Credential
	gotNS   string
	created services.CredentialInput
	err     error
}

func (f *fakeCredentials) owned(userID, credZRN string) (*models.Credential, error) {
	c, ok := f.byZRN[credZRN]
	if !ok || c.UserID != userID {
		return nil, common.NewError(common.ErrorNotFound, "credential not found")
	}
	return c, nil
}

func (f *fakeCredentials) Get(_ context.Context, userID, credZRN string) (*models.Credential, error) {
	return f.owned(userID, credZRN)
}

func (f *fakeCredentials) ListByNamespace(_ context.Context, userID, nsZRN string) ([]*models.Credential, error) {
	f.gotNS = nsZRN
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Credential
	for _, c := range f.byZRN {
		if c.UserID == userID && c.Namespace != nil && c.Namespace.ZRN == nsZRN {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCredentials) Create(_ context.Context, userID string, in services.CredentialInput) (*models.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = in
	c := &models.Credential{
		ZRN:            "zrn:zekret:credential:20250101:new",
		UserID:         userID,
		Title:          in.Title,
		Password:       in.Password,
		CredentialType: &models.CredentialType{ZRN: in.CredentialTypeZRN, Name: "Username/Password"},
		Namespace:      &models.Namespace{ZRN: in.NamespaceZRN, Name: "work"},
	}
	f.byZRN[c.ZRN] = c
	return c, nil
}

func (f *fakeCredentials) Update(_ context.Context, userID, credZRN string, in services.CredentialInput) (*models.Credential, error) {
	c, err := f.owned(userID, credZRN)
	if err != nil {
		return nil, err
	}
	c.Title = in.Title
	return c, nil
}

func (f *fakeCredentials) Delete(_ context.Context, userID, credZRN string) error {
	if _, err := f.owned(userID, credZRN); err != nil {
		return err
	}
	delete(f.byZRN, credZRN)
	return nil
}

type fakeCredentialTypes struct {
	list []*models.CredentialType
}

func (f *fakeCredentialTypes) List(context.Context) ([]*models.CredentialType, error) {
	return f.list, nil
}

func (f *fakeCredentialTypes) Get(_ context.Context, ctZRN string) (*models.CredentialType, error) {
	for _, ct := range f.list {
		if ct.ZRN == ctZRN {
			return ct, nil
		}
	}
	return nil, common.NewError(common.ErrorNotFound, "credential type not found")
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type fixture struct {
	srv     *Server
	auth    *fakeAuth
	users   *fakeUsers
	ns      *fakeNamespaces
	creds   *fakeCredentials
	types   *fakeCredentialTypes
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithDB(t, fakePinger{})
}

func newFixtureWithDB(t *testing.T, db Pinger) *fixture {
	t.Helper()

	public, err := auth.NewPublicRoutes(config.DefaultPublicRoutes)
	require.NoError(t, err)

	f := &fixture{
		auth:  &fakeAuth{},
		users: &fakeUsers{},
		ns:    &fakeNamespaces{byZRN: map[string]*models.Namespace{}},
		creds: &fakeCredentials{byZRN: map[string]*models.Credential{}},
		types: &fakeCredentialTypes{list: []*models.CredentialType{
			{ZRN: "zrn:zekret:credtype:20250101:username_password", Name: "Username/Password"},
		}},
		metrics: metrics.New(),
	}

	f.srv = NewServer(config.HTTPConfig{
		Address:         "127.0.0.1:0",
		ShutdownTimeout: time.Second,
		RequestTimeout:  time.Second,
	}, Deps{
		Auth:            f.auth,
		Users:           f.users,
		Namespaces:      f.ns,
		Credentials:     f.creds,
		CredentialTypes: f.types,
		Authenticator:   &fakeAuthenticator{principals: map[string]*auth.Principal{"alice-token": alice}},
		Public:          public,
		Metrics:         f.metrics,
		DB:              db,
	}, logging.Nop{})

	return f
}
