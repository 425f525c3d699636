package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/dbx"
	"github.com/zekret/zekret/internal/server/models"
	"github.com/zekret/zekret/internal/server/repositories/credentials"
	"github.com/zekret/zekret/internal/server/repositories/credentialtypes"
	"github.com/zekret/zekret/internal/server/repositories/namespaces"
	"github.com/zekret/zekret/internal/server/repositories/tokens"
	"github.com/zekret/zekret/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// --- users ---

type fakeUsersRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	findErr error
	lockErr error
	locks   int
}

func newFakeUsers(us ...*models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byID: map[string]*models.User{}}
	for _, u := range us {
		r.byID[u.ID] = u
	}
	return r
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email || existing.Username == u.Username {
			return nil, common.NewError(common.ErrorConflict, "email or username already in use")
		}
	}
	u.ID = "u-" + u.Username
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsersRepo) FindByEmailOrUsername(_ context.Context, identifier string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var byUsername *models.User
	for _, u := range f.byID {
		if u.Email == identifier {
			return u, nil
		}
		if u.Username == identifier {
			byUsername = u
		}
	}
	if byUsername != nil {
		return byUsername, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) LockForUpdate(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locks++
	if f.lockErr != nil {
		return f.lockErr
	}
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (f *fakeUsersRepo) SetEnabled(_ context.Context, id string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Enabled = enabled
	return nil
}

// --- tokens ---

type fakeTokensRepo struct {
	mu        sync.Mutex
	rows      []*models.Token
	createErr error
	writes    int
}

func (f *fakeTokensRepo) Create(_ context.Context, t *models.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.createErr != nil {
		return f.createErr
	}
	cp := *t
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeTokensRepo) FindByAccessToken(_ context.Context, access string) (*models.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.AccessToken == access {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTokensRepo) FindActiveByRefreshToken(_ context.Context, refresh string) (*models.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.RefreshToken == refresh && !r.LoggedOut {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTokensRepo) InvalidateAllForUser(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	var n int64
	for _, r := range f.rows {
		if r.UserID == userID && !r.LoggedOut {
			r.LoggedOut = true
			n++
		}
	}
	return n, nil
}

func (f *fakeTokensRepo) active(userID string) []*models.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Token
	for _, r := range f.rows {
		if r.UserID == userID && !r.LoggedOut {
			out = append(out, r)
		}
	}
	return out
}

// --- namespaces ---

type fakeNamespacesRepo struct {
	rows map[string]*models.Namespace // by zrn
	err  error
}

func newFakeNamespaces(ns ...*models.Namespace) *fakeNamespacesRepo {
	r := &fakeNamespacesRepo{rows: map[string]*models.Namespace{}}
	for _, n := range ns {
		r.rows[n.ZRN] = n
	}
	return r
}

func (f *fakeNamespacesRepo) Create(_ context.Context, ns *models.Namespace) (*models.Namespace, error) {
	if f.err != nil {
		return nil, f.err
	}
	ns.ID = "ns-" + ns.Name
	f.rows[ns.ZRN] = ns
	return ns, nil
}

func (f *fakeNamespacesRepo) FindByZRNAndUser(_ context.Context, zrn, userID string) (*models.Namespace, error) {
	if f.err != nil {
		return nil, f.err
	}
	ns, ok := f.rows[zrn]
	if !ok || ns.UserID != userID {
		return nil, common.NewError(common.ErrorNotFound, "namespace not found")
	}
	return ns, nil
}

func (f *fakeNamespacesRepo) ListByUser(_ context.Context, userID string) ([]*models.Namespace, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*models.Namespace, 0)
	for _, ns := range f.rows {
		if ns.UserID == userID {
			out = append(out, ns)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeNamespacesRepo) Update(_ context.Context, ns *models.Namespace) (*models.Namespace, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.rows[ns.ZRN] = ns
	return ns, nil
}

func (f *fakeNamespacesRepo) Delete(_ context.Context, id, userID string) error {
	for zrn, ns := range f.rows {
		if ns.ID == id && ns.UserID == userID {
			delete(f.rows, zrn)
			return nil
		}
	}
	return common.NewError(common.ErrorNotFound, "namespace not found")
}

// --- credential types ---

type fakeCredentialTypesRepo struct {
	rows map[string]*models.CredentialType
	err  error
}

func newFakeCredentialTypes(cts ...*models.CredentialType) *fakeCredentialTypesRepo {
	r := &fakeCredentialTypesRepo{rows: map[string]*models.CredentialType{}}
	for _, ct := range cts {
		r.rows[ct.ZRN] = ct
	}
	return r
}

func (f *fakeCredentialTypesRepo) Upsert(_ context.Context, ct *models.CredentialType) (*models.CredentialType, error) {
	if f.err != nil {
		return nil, f.err
	}
	if existing, ok := f.rows[ct.ZRN]; ok {
		existing.Name = ct.Name
		return existing, nil
	}
	ct.ID = "ct-" + ct.ZRN
	f.rows[ct.ZRN] = ct
	return ct, nil
}

func (f *fakeCredentialTypesRepo) FindByZRN(_ context.Context, zrn string) (*models.CredentialType, error) {
	ct, ok := f.rows[zrn]
	if !ok {
		return nil, common.NewError(common.ErrorNotFound, "credential type not found")
	}
	return ct, nil
}

func (f *fakeCredentialTypesRepo) List(context.Context) ([]*models.CredentialType, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*models.CredentialType, 0, len(f.rows))
	for _, ct := range f.rows {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- credentials ---

type fakeCredentialsRepo struct {
	rows map[string]*models.Credential // by zrn
	err  error
}

func newFakeCredentials() *fakeCredentialsRepo {
	return &fakeCredentialsRepo{rows: map[string]*models.Credential{}}
}

func (f *fakeCredentialsRepo) Create(_ context.Context, c *models.Credential) (*models.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *c
	cp.ID = "c-" + c.Title
	f.rows[c.ZRN] = &cp
	c.ID = cp.ID
	return c, nil
}

func (f *fakeCredentialsRepo) FindByZRNAndUser(_ context.Context, zrn, userID string) (*models.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.rows[zrn]
	if !ok || c.UserID != userID {
		return nil, common.NewError(common.ErrorNotFound, "credential not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCredentialsRepo) ListByNamespace(_ context.Context, nsZRN, userID string) ([]*models.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*models.Credential, 0)
	for _, c := range f.rows {
		if c.UserID == userID && c.Namespace != nil && c.Namespace.ZRN == nsZRN {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (f *fakeCredentialsRepo) Update(_ context.Context, c *models.Credential) (*models.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *c
	f.rows[c.ZRN] = &cp
	return c, nil
}

func (f *fakeCredentialsRepo) Delete(_ context.Context, id, userID string) error {
	for zrn, c := range f.rows {
		if c.ID == id && c.UserID == userID {
			delete(f.rows, zrn)
			return nil
		}
	}
	return common.NewError(common.ErrorNotFound, "credential not found")
}

// --- manager ---

type fakeRepoManager struct {
	u  *fakeUsersRepo
	t  *fakeTokensRepo
	ns *fakeNamespacesRepo
	ct *fakeCredentialTypesRepo
	c  *fakeCredentialsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error     { return nil }
func (m *fakeRepoManager) RollbackMigration(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                  { return m.u }
func (m *fakeRepoManager) Tokens(dbx.DBTX) tokens.Repository                { return m.t }
func (m *fakeRepoManager) Namespaces(dbx.DBTX) namespaces.Repository        { return m.ns }
func (m *fakeRepoManager) CredentialTypes(dbx.DBTX) credentialtypes.Repository {
	return m.ct
}
func (m *fakeRepoManager) Credentials(dbx.DBTX) credentials.Repository { return m.c }
