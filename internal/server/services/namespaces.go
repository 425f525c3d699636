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
	"github.com/zekret/zekret/internal/zrn"
)

const (
	maxNamespaceNameLen        = 100
	maxNamespaceDescriptionLen = 255
)

// NamespaceInput carries the user-editable namespace fields.
type NamespaceInput struct {
	Name        string
	Description string
}

// NamespaceService manages namespaces on behalf of their owner. A namespace
// owned by someone else is indistinguishable from a missing one.
type NamespaceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewNamespaceService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *NamespaceService {
	return &NamespaceService{db: db, repomanager: m, logger: logger}
}

func (s *NamespaceService) List(ctx context.Context, userID string) ([]*models.Namespace, error) {
	list, err := s.repomanager.Namespaces(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, oops.In("namespaces").Code("list_failed").With("user_id", userID).Wrap(err)
	}
	return list, nil
}

func (s *NamespaceService) Get(ctx context.Context, userID, nsZRN string) (*models.Namespace, error) {
	ns, err := s.repomanager.Namespaces(s.db).FindByZRNAndUser(ctx, nsZRN, userID)
	if err != nil {
		return nil, oops.In("namespaces").Code("get_failed").With("zrn", nsZRN).Wrap(err)
	}
	return ns, nil
}

func (s *NamespaceService) Create(ctx context.Context, userID string, in NamespaceInput) (*models.Namespace, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	id, err := zrn.Generate(zrn.Namespace)
	if err != nil {
		return nil, oops.In("namespaces").Code("zrn_failed").Wrap(err)
	}

	ns, err := s.repomanager.Namespaces(s.db).Create(ctx, &models.Namespace{
		ZRN:         id,
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	})
	if err != nil {
		return nil, oops.In("namespaces").Code("create_failed").With("user_id", userID).Wrap(err)
	}
	s.logger.Info(ctx, "namespace created", "zrn", ns.ZRN, "user_id", userID)
	return ns, nil
}

func (s *NamespaceService) Update(ctx context.Context, userID, nsZRN string, in NamespaceInput) (*models.Namespace, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	repo := s.repomanager.Namespaces(s.db)
	ns, err := repo.FindByZRNAndUser(ctx, nsZRN, userID)
	if err != nil {
		return nil, oops.In("namespaces").Code("get_failed").With("zrn", nsZRN).Wrap(err)
	}

	ns.Name = strings.TrimSpace(in.Name)
	ns.Description = strings.TrimSpace(in.Description)
	updated, err := repo.Update(ctx, ns)
	if err != nil {
		return nil, oops.In("namespaces").Code("update_failed").With("zrn", nsZRN).Wrap(err)
	}
	return updated, nil
}

// Delete removes the namespace together with its credentials.
func (s *NamespaceService) Delete(ctx context.Context, userID, nsZRN string) error {
	repo := s.repomanager.Namespaces(s.db)
	ns, err := repo.FindByZRNAndUser(ctx, nsZRN, userID)
	if err != nil {
		return oops.In("namespaces").Code("get_failed").With("zrn", nsZRN).Wrap(err)
	}
	if err := repo.Delete(ctx, ns.ID, userID); err != nil {
		return oops.In("namespaces").Code("delete_failed").With("zrn", nsZRN).Wrap(err)
	}
	s.logger.Info(ctx, "namespace deleted", "zrn", nsZRN, "user_id", userID)
	return nil
}

func (in NamespaceInput) validate() error {
	name := strings.TrimSpace(in.Name)
	desc := strings.TrimSpace(in.Description)
	switch {
	case name == "":
		return common.NewError(common.ErrorBadRequest, "name is required")
	case utf8.RuneCountInString(name) > maxNamespaceNameLen:
		return common.Errorf(common.ErrorBadRequest, "name must be at most %d characters", maxNamespaceNameLen)
	case desc == "":
		return common.NewError(common.ErrorBadRequest, "description is required")
	case utf8.RuneCountInString(desc) > maxNamespaceDescriptionLen:
		return common.Errorf(common.ErrorBadRequest, "description must be at most %d characters", maxNamespaceDescriptionLen)
	}
	return nil
}
