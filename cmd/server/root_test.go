package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/logging"
	"github.com/zekret/zekret/internal/server/config"
	"github.com/zekret/zekret/internal/server/models"
)

type fakeApp struct {
	cfg        *config.Config
	migrated   bool
	rolledBack bool
	closed     bool
	ran        bool
	migrateErr error

	registered []string
	enabled    map[string]bool
}

func (f *fakeApp) Run(context.Context) error { f.ran = true; return nil }

func (f *fakeApp) Migrate(context.Context) error {
	f.migrated = true
	return f.migrateErr
}

func (f *fakeApp) Rollback(context.Context) error { f.rolledBack = true; return nil }

func (f *fakeApp) Close() error { f.closed = true; return nil }

func (f *fakeApp) RegisterUser(_ context.Context, email, username, password string) (*models.User, error) {
	if len(password) < 6 {
		return nil, common.NewError(common.ErrorBadRequest, "password must be at least 6 characters")
	}
	f.registered = append(f.registered, email+"/"+username+"/"+password)
	return &models.User{Email: email, Username: username, Enabled: true}, nil
}

func (f *fakeApp) SetUserEnabled(_ context.Context, identifier string, enabled bool) (*models.User, error) {
	if identifier == "ghost" {
		return nil, common.NewError(common.ErrorNotFound, "user not found")
	}
	if f.enabled == nil {
		f.enabled = map[string]bool{}
	}
	f.enabled[identifier] = enabled
	return &models.User{Username: identifier, Enabled: enabled}, nil
}

func execute(t *testing.T, stdin string, args ...string) (*fakeApp, string, error) {
	t.Helper()

	fa := &fakeApp{}
	orig := newApp
	t.Cleanup(func() {
		newApp = orig
		configFile = ""
	})
	newApp = func(_ context.Context, c *config.Config, _ logging.Logger) (appRunner, error) {
		fa.cfg = c
		return fa, nil
	}

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()
	return fa, out.String(), err
}

func TestMigrateUp(t *testing.T) {
	fa, out, err := execute(t, "", "migrate", "up")
	require.NoError(t, err)
	assert.True(t, fa.migrated)
	assert.True(t, fa.closed)
	assert.Contains(t, out, "Migrations completed successfully")
}

func TestMigrateUp_Failure(t *testing.T) {
	fa := &fakeApp{migrateErr: errors.New("dirty schema")}
	orig := newApp
	t.Cleanup(func() { newApp = orig })
	newApp = func(context.Context, *config.Config, logging.Logger) (appRunner, error) { return fa, nil }

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"migrate", "up"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dirty schema")
	assert.True(t, fa.closed)
}

func TestMigrateDown(t *testing.T) {
	fa, _, err := execute(t, "", "migrate", "down")
	require.NoError(t, err)
	assert.True(t, fa.rolledBack)
}

func TestFlagsReachConfig(t *testing.T) {
	fa, _, err := execute(t, "", "--http.address", "127.0.0.1:9999", "--auth.bcrypt_cost", "4", "migrate", "up")
	require.NoError(t, err)
	require.NotNil(t, fa.cfg)
	assert.Equal(t, "127.0.0.1:9999", fa.cfg.HTTP.Address)
	assert.Equal(t, 4, fa.cfg.Auth.BcryptCost)
	assert.Equal(t, config.DefaultPublicRoutes, fa.cfg.Auth.PublicRoutes)
}

func TestInvalidConfigIsRejected(t *testing.T) {
	fa, _, err := execute(t, "", "--auth.secret_key", "", "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.secret_key")
	assert.False(t, fa.migrated)
}

func TestUserCreate_ReadsPasswordFromStdin(t *testing.T) {
	fa, out, err := execute(t, "hunter22\n", "user", "create", "--email", "bob@example.com", "--username", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob@example.com/bob/hunter22"}, fa.registered)
	assert.Contains(t, out, "User bob (bob@example.com) created")
}

func TestUserCreate_RequiresFlags(t *testing.T) {
	_, _, err := execute(t, "hunter22\n", "user", "create", "--email", "bob@example.com")
	require.Error(t, err)
}

func TestUserCreate_ValidationError(t *testing.T) {
	_, _, err := execute(t, "123\n", "user", "create", "--email", "bob@example.com", "--username", "bob")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrorBadRequest))
}

func TestUserDisableEnable(t *testing.T) {
	fa, out, err := execute(t, "", "user", "disable", "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"alice": false}, fa.enabled)
	assert.Contains(t, out, "User alice is now disabled")

	fa, out, err = execute(t, "", "user", "enable", "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"alice": true}, fa.enabled)
	assert.Contains(t, out, "User alice is now enabled")
}

func TestUserDisable_UnknownUser(t *testing.T) {
	_, _, err := execute(t, "", "user", "disable", "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestServe_RunsApp(t *testing.T) {
	origOut := logOutput
	t.Cleanup(func() { logOutput = origOut })
	logOutput = &bytes.Buffer{}

	fa, _, err := execute(t, "", "serve")
	require.NoError(t, err)
	assert.True(t, fa.ran)
	assert.True(t, fa.closed)
}
