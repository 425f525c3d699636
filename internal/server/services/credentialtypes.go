package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/samber/oops"
	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/dbx"
	"github.com/zekret/zekret/internal/logging"
	"github.com/zekret/zekret/internal/server/config"
	"github.com/zekret/zekret/internal/server/models"
	"github.com/zekret/zekret/internal/server/repositories/repomanager"
	"github.com/zekret/zekret/internal/zrn"
)

// CredentialTypeService exposes the global credential type catalogue.
type CredentialTypeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewCredentialTypeService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *CredentialTypeService {
	return &CredentialTypeService{db: db, repomanager: m, logger: logger}
}

// Seed upserts seeds in one transaction. Every seed must carry a slug or a
// credtype ZRN and a name; nothing is written if any seed is invalid.
func (s *CredentialTypeService) Seed(ctx context.Context, seeds []config.CredentialTypeSeed) error {
	var errs []error
	for _, seed := range seeds {
		if err := validateSeed(seed); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.CredentialTypes(tx)
		for _, seed := range seeds {
			if _, err := repo.Upsert(ctx, &models.CredentialType{ZRN: seed.ZRN, Name: seed.Name}); err != nil {
				return oops.With("zrn", seed.ZRN).Wrap(err)
			}
		}
		return nil
	})
	if err != nil {
		return oops.In("credential_types").Code("seed_failed").Wrap(err)
	}

	s.logger.Info(ctx, "credential types seeded", "count", len(seeds))
	return nil
}

func (s *CredentialTypeService) List(ctx context.Context) ([]*models.CredentialType, error) {
	list, err := s.repomanager.CredentialTypes(s.db).List(ctx)
	if err != nil {
		return nil, oops.In("credential_types").Code("list_failed").Wrap(err)
	}
	return list, nil
}

func (s *CredentialTypeService) Get(ctx context.Context, ctZRN string) (*models.CredentialType, error) {
	if !isCredentialTypeZRN(ctZRN) {
		return nil, common.NewError(common.ErrorNotFound, "credential type not found")
	}
	ct, err := s.repomanager.CredentialTypes(s.db).FindByZRN(ctx, ctZRN)
	if err != nil {
		return nil, oops.In("credential_types").Code("get_failed").With("zrn", ctZRN).Wrap(err)
	}
	return ct, nil
}

func validateSeed(seed config.CredentialTypeSeed) error {
	if !isCredentialTypeZRN(seed.ZRN) {
		return common.Errorf(common.ErrorBadRequest, "credential type %q: zrn must be a slug or a credtype zrn", seed.ZRN)
	}
	if seed.Name == "" {
		return common.Errorf(common.ErrorBadRequest, "credential type %q: name is required", seed.ZRN)
	}
	return nil
}

func isCredentialTypeZRN(s string) bool {
	rt, ok := zrn.ExtractResourceType(s)
	return ok && rt == zrn.CredentialType
}
