//go:build integration

package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/logging"
	"github.com/zekret/zekret/internal/server/config"
	"github.com/zekret/zekret/internal/server/services"
)

func startPostgresContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("zekret"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func newIntegrationApp(t *testing.T) *App {
	t.Helper()
	ctx := context.Background()

	c := testConfig()
	c.Database.DSN = startPostgresContainer(t)
	c.CredentialTypes = []config.CredentialTypeSeed{{ZRN: "username_password", Name: "Username/Password"}}

	app, err := NewApp(ctx, c, logging.Nop{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NoError(t, app.Migrate(ctx))
	require.NoError(t, app.CredentialTypes.Seed(ctx, c.CredentialTypes))
	return app
}

func activeTokens(t *testing.T, app *App, userID string) int {
	t.Helper()
	var n int
	err := app.db.QueryRowContext(context.Background(),
		`SELECT count(*) FROM tokens WHERE user_id = $1 AND logged_out = false`, userID).Scan(&n)
	require.NoError(t, err)
	return n
}

func bearer(tok string) string { return "Bearer " + tok }

func TestIntegration_SingleActiveSession(t *testing.T) {
	ctx := context.Background()
	app := newIntegrationApp(t)

	alice, err := app.RegisterUser(ctx, "alice@example.com", "alice", "s3cret!")
	require.NoError(t, err)

	t1, err := app.Auth.Authenticate(ctx, "alice@example.com", "s3cret!")
	require.NoError(t, err)
	p, err := app.authenticator.Authenticate(ctx, bearer(t1.AccessToken))
	require.NoError(t, err)
	assert.Equal(t, alice.ID, p.UserID)

	t2, err := app.Auth.Authenticate(ctx, "alice", "s3cret!")
	require.NoError(t, err)

	_, err = app.authenticator.Authenticate(ctx, bearer(t1.AccessToken))
	assert.ErrorIs(t, err, common.ErrLoggedOutToken)
	_, err = app.authenticator.Authenticate(ctx, bearer(t2.AccessToken))
	require.NoError(t, err)
	assert.Equal(t, 1, activeTokens(t, app, alice.ID))

	require.NoError(t, app.Auth.Logout(ctx, "alice"))
	_, err = app.authenticator.Authenticate(ctx, bearer(t2.AccessToken))
	assert.ErrorIs(t, err, common.ErrLoggedOutToken)
	assert.Equal(t, 0, activeTokens(t, app, alice.ID))

	require.NoError(t, app.Auth.Logout(ctx, "alice"))
}

func TestIntegration_ConcurrentLoginsLeaveOneActive(t *testing.T) {
	ctx := context.Background()
	app := newIntegrationApp(t)

	bob, err := app.RegisterUser(ctx, "bob@example.com", "bob", "hunter22")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := app.Auth.Authenticate(ctx, "bob", "hunter22")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, activeTokens(t, app, bob.ID))
}

func TestIntegration_RefreshRotation(t *testing.T) {
	ctx := context.Background()
	app := newIntegrationApp(t)

	_, err := app.RegisterUser(ctx, "carol@example.com", "carol", "pa55word")
	require.NoError(t, err)

	first, err := app.Auth.Authenticate(ctx, "carol", "pa55word")
	require.NoError(t, err)

	second, err := app.Auth.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = app.Auth.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = app.authenticator.Authenticate(ctx, bearer(first.AccessToken))
	assert.ErrorIs(t, err, common.ErrLoggedOutToken)
}

func TestIntegration_DisabledUserIsLockedOut(t *testing.T) {
	ctx := context.Background()
	app := newIntegrationApp(t)

	dave, err := app.RegisterUser(ctx, "dave@example.com", "dave", "letmein")
	require.NoError(t, err)
	tok, err := app.Auth.Authenticate(ctx, "dave", "letmein")
	require.NoError(t, err)

	_, err = app.SetUserEnabled(ctx, "dave", false)
	require.NoError(t, err)

	_, err = app.authenticator.Authenticate(ctx, bearer(tok.AccessToken))
	assert.ErrorIs(t, err, common.ErrLoggedOutToken)
	_, err = app.Auth.Authenticate(ctx, "dave", "letmein")
	assert.ErrorIs(t, err, common.ErrAccountDisabled)
	assert.Equal(t, 0, activeTokens(t, app, dave.ID))
}

func TestIntegration_CredentialsAreOwnedAndSealed(t *testing.T) {
	ctx := context.Background()
	app := newIntegrationApp(t)

	erin, err := app.RegisterUser(ctx, "erin@example.com", "erin", "secret1")
	require.NoError(t, err)
	frank, err := app.RegisterUser(ctx, "frank@example.com", "frank", "secret2")
	require.NoError(t, err)

	ns, err := app.Namespaces.Create(ctx, erin.ID, services.NamespaceInput{Name: "work", Description: "work accounts"})
	require.NoError(t, err)

	cred, err := app.Credentials.Create(ctx, erin.ID, services.CredentialInput{
		Title:             "github",
		Username:          "erin",
		Password:          "gh-pass",
		CredentialTypeZRN: "username_password",
		NamespaceZRN:      ns.ZRN,
	})
	require.NoError(t, err)
	assert.Equal(t, "gh-pass", cred.Password)

	var stored string
	require.NoError(t, app.db.QueryRowContext(ctx, `SELECT password FROM credentials WHERE zrn = $1`, cred.ZRN).Scan(&stored))
	assert.NotEqual(t, "gh-pass", stored)

	got, err := app.Credentials.Get(ctx, erin.ID, cred.ZRN)
	require.NoError(t, err)
	assert.Equal(t, "gh-pass", got.Password)

	_, err = app.Credentials.Get(ctx, frank.ID, cred.ZRN)
	assert.True(t, errors.Is(err, common.ErrorNotFound), fmt.Sprintf("got %v", err))
	_, err = app.Namespaces.Get(ctx, frank.ID, ns.ZRN)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, app.Namespaces.Delete(ctx, erin.ID, ns.ZRN))
	_, err = app.Credentials.Get(ctx, erin.ID, cred.ZRN)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
