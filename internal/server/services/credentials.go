package services

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/logging"
	"github.com/zekret/zekret/internal/server/models"
	"github.com/zekret/zekret/internal/server/repositories/repomanager"
	"github.com/zekret/zekret/internal/server/storage"
	"github.com/zekret/zekret/internal/zrn"
)

const maxCredentialTitleLen = 255

// Sealer encrypts secret fields at rest. *cryptox.Sealer satisfies it.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
	SealBytes(plaintext []byte) ([]byte, error)
	OpenBytes(sealed []byte) ([]byte, error)
}

// CredentialInput carries the user-editable credential fields.
type CredentialInput struct {
	Title         string
	Username      string
	Password      string
	SSHPublicKey  string
	SSHPrivateKey string
	SecretText    string
	FileName      string
	FileContent   string
	Notes         string

	CredentialTypeZRN string
	NamespaceZRN      string
}

// CredentialService manages credentials on behalf of their owner. Password,
// SSH private key, secret text and file content are sealed before they are
// stored; file content goes to the blob store when one is configured.
type CredentialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sealer      Sealer
	blobs       storage.BlobStore
	logger      logging.Logger
}

// NewCredentialService builds the service. blobs may be nil, in which case
// file content is kept in the database.
func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, sealer Sealer, blobs storage.BlobStore, logger logging.Logger) *CredentialService {
	return &CredentialService{db: db, repomanager: m, sealer: sealer, blobs: blobs, logger: logger}
}

func (s *CredentialService) Get(ctx context.Context, userID, credZRN string) (*models.Credential, error) {
	c, err := s.repomanager.Credentials(s.db).FindByZRNAndUser(ctx, credZRN, userID)
	if err != nil {
		return nil, oops.In("credentials").Code("get_failed").With("zrn", credZRN).Wrap(err)
	}
	if err := s.unseal(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListByNamespace returns the caller's credentials in the namespace. A
// namespace the caller does not own is reported as not found.
func (s *CredentialService) ListByNamespace(ctx context.Context, userID, nsZRN string) ([]*models.Credential, error) {
	if _, err := s.repomanager.Namespaces(s.db).FindByZRNAndUser(ctx, nsZRN, userID); err != nil {
		return nil, oops.In("credentials").Code("namespace_lookup_failed").With("zrn", nsZRN).Wrap(err)
	}
	list, err := s.repomanager.Credentials(s.db).ListByNamespace(ctx, nsZRN, userID)
	if err != nil {
		return nil, oops.In("credentials").Code("list_failed").With("namespace", nsZRN).Wrap(err)
	}
	for _, c := range list {
		if err := s.unseal(ctx, c); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (s *CredentialService) Create(ctx context.Context, userID string, in CredentialInput) (*models.Credential, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ct, ns, err := s.resolve(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	id, err := zrn.Generate(zrn.Credential)
	if err != nil {
		return nil, oops.In("credentials").Code("zrn_failed").Wrap(err)
	}

	c := &models.Credential{ZRN: id, UserID: userID}
	applyInput(c, in, ct, ns)

	stored, err := s.seal(ctx, c)
	if err != nil {
		return nil, err
	}
	created, err := s.repomanager.Credentials(s.db).Create(ctx, stored)
	if err != nil {
		s.discardBlob(ctx, stored.FileKey)
		return nil, oops.In("credentials").Code("create_failed").With("user_id", userID).Wrap(err)
	}

	c.ID, c.CreatedAt, c.UpdatedAt, c.FileKey = created.ID, created.CreatedAt, created.UpdatedAt, created.FileKey
	s.logger.Info(ctx, "credential created", "zrn", c.ZRN, "user_id", userID)
	return c, nil
}

// Update replaces every editable field. The namespace may move only to
// another namespace the caller owns.
func (s *CredentialService) Update(ctx context.Context, userID, credZRN string, in CredentialInput) (*models.Credential, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	repo := s.repomanager.Credentials(s.db)
	existing, err := repo.FindByZRNAndUser(ctx, credZRN, userID)
	if err != nil {
		return nil, oops.In("credentials").Code("get_failed").With("zrn", credZRN).Wrap(err)
	}
	ct, ns, err := s.resolve(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	c := &models.Credential{
		ID:        existing.ID,
		ZRN:       existing.ZRN,
		UserID:    userID,
		CreatedAt: existing.CreatedAt,
	}
	applyInput(c, in, ct, ns)

	stored, err := s.seal(ctx, c)
	if err != nil {
		return nil, err
	}
	updated, err := repo.Update(ctx, stored)
	if err != nil {
		s.discardBlob(ctx, stored.FileKey)
		return nil, oops.In("credentials").Code("update_failed").With("zrn", credZRN).Wrap(err)
	}
	s.discardBlob(ctx, existing.FileKey)

	c.UpdatedAt, c.FileKey = updated.UpdatedAt, stored.FileKey
	return c, nil
}

func (s *CredentialService) Delete(ctx context.Context, userID, credZRN string) error {
	repo := s.repomanager.Credentials(s.db)
	c, err := repo.FindByZRNAndUser(ctx, credZRN, userID)
	if err != nil {
		return oops.In("credentials").Code("get_failed").With("zrn", credZRN).Wrap(err)
	}
	if err := repo.Delete(ctx, c.ID, userID); err != nil {
		return oops.In("credentials").Code("delete_failed").With("zrn", credZRN).Wrap(err)
	}
	s.discardBlob(ctx, c.FileKey)
	s.logger.Info(ctx, "credential deleted", "zrn", credZRN, "user_id", userID)
	return nil
}

func (s *CredentialService) resolve(ctx context.Context, userID string, in CredentialInput) (*models.CredentialType, *models.Namespace, error) {
	ct, err := s.repomanager.CredentialTypes(s.db).FindByZRN(ctx, in.CredentialTypeZRN)
	if err != nil {
		return nil, nil, oops.In("credentials").Code("credential_type_lookup_failed").With("zrn", in.CredentialTypeZRN).Wrap(err)
	}
	ns, err := s.repomanager.Namespaces(s.db).FindByZRNAndUser(ctx, in.NamespaceZRN, userID)
	if err != nil {
		return nil, nil, oops.In("credentials").Code("namespace_lookup_failed").With("zrn", in.NamespaceZRN).Wrap(err)
	}
	return ct, ns, nil
}

// seal returns a copy of c ready for storage. When a blob store is
// configured the sealed file content is uploaded and only its key is kept.
func (s *CredentialService) seal(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	out := *c
	var err error
	for _, f := range []*string{&out.Password, &out.SSHPrivateKey, &out.SecretText} {
		if *f, err = s.sealer.Seal(*f); err != nil {
			return nil, oops.In("credentials").Code("seal_failed").Wrap(err)
		}
	}

	out.FileKey = ""
	if c.FileContent == "" {
		return &out, nil
	}
	if s.blobs == nil {
		if out.FileContent, err = s.sealer.Seal(c.FileContent); err != nil {
			return nil, oops.In("credentials").Code("seal_failed").Wrap(err)
		}
		return &out, nil
	}

	sealed, err := s.sealer.SealBytes([]byte(c.FileContent))
	if err != nil {
		return nil, oops.In("credentials").Code("seal_failed").Wrap(err)
	}
	key := storage.NewKey(c.UserID)
	if err := s.blobs.Put(ctx, key, sealed); err != nil {
		return nil, oops.In("credentials").Code("blob_put_failed").With("key", key).Wrap(err)
	}
	out.FileKey = key
	out.FileContent = ""
	return &out, nil
}

func (s *CredentialService) unseal(ctx context.Context, c *models.Credential) error {
	var err error
	for _, f := range []*string{&c.Password, &c.SSHPrivateKey, &c.SecretText, &c.FileContent} {
		if *f, err = s.sealer.Open(*f); err != nil {
			return oops.In("credentials").Code("unseal_failed").With("zrn", c.ZRN).Wrap(err)
		}
	}
	if c.FileKey == "" {
		return nil
	}
	if s.blobs == nil {
		return oops.In("credentials").Code("blob_store_missing").With("zrn", c.ZRN).Errorf("file content stored in object storage but no store is configured")
	}
	sealed, err := s.blobs.Get(ctx, c.FileKey)
	if err != nil {
		return oops.In("credentials").Code("blob_get_failed").With("key", c.FileKey).Wrap(err)
	}
	content, err := s.sealer.OpenBytes(sealed)
	if err != nil {
		return oops.In("credentials").Code("unseal_failed").With("key", c.FileKey).Wrap(err)
	}
	c.FileContent = string(content)
	return nil
}

func (s *CredentialService) discardBlob(ctx context.Context, key string) {
	if key == "" || s.blobs == nil {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		logging.LogError(ctx, s.logger, "orphaned credential file", oops.With("key", key).Wrap(err))
	}
}

func applyInput(c *models.Credential, in CredentialInput, ct *models.CredentialType, ns *models.Namespace) {
	c.NamespaceID = ns.ID
	c.CredentialTypeID = ct.ID
	c.Namespace = ns
	c.CredentialType = ct
	c.Title = strings.TrimSpace(in.Title)
	c.Username = in.Username
	c.Password = in.Password
	c.SSHPublicKey = in.SSHPublicKey
	c.SSHPrivateKey = in.SSHPrivateKey
	c.SecretText = in.SecretText
	c.FileName = in.FileName
	c.FileContent = in.FileContent
	c.Notes = in.Notes
}

func (in CredentialInput) validate() error {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return common.NewError(common.ErrorBadRequest, "title is required")
	case utf8.RuneCountInString(title) > maxCredentialTitleLen:
		return common.Errorf(common.ErrorBadRequest, "title must be at most %d characters", maxCredentialTitleLen)
	case in.CredentialTypeZRN == "":
		return common.NewError(common.ErrorBadRequest, "credential type zrn is required")
	case in.NamespaceZRN == "":
		return common.NewError(common.ErrorBadRequest, "namespace zrn is required")
	}
	return nil
}
