package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
)

type batchStore interface {
	List(ctx context.Context) ([]models.Batch, error)
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	Create(ctx context.Context, batch *models.Batch) error
	Update(ctx context.Context, batch *models.Batch) error
	Delete(ctx context.Context, id string) error
}

// BatchRequest describes a registration batch payload.
type BatchRequest struct {
	Name     string `json:"name" validate:"required"`
	StartsAt string `json:"starts_at" validate:"required,datetime=2006-01-02"`
	EndsAt   string `json:"ends_at" validate:"required,datetime=2006-01-02"`
}

// BatchService manages registration batches. The current batch is whatever
// the settings record points at, batch dates are informational.
type BatchService struct {
	repo      batchStore
	settings  settingsReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBatchService constructs BatchService.
func NewBatchService(repo batchStore, settings settingsReader, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{repo: repo, settings: settings, validator: validate, logger: logger}
}

// List returns every batch.
func (s *BatchService) List(ctx context.Context) ([]models.Batch, error) {
	batches, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
	}
	return batches, nil
}

// Current returns the batch the settings record designates as active.
func (s *BatchService) Current(ctx context.Context) (*models.Batch, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration settings")
	}
	batch, err := s.repo.FindByID(ctx, settings.CurrentBatchID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "gelombang pendaftaran tidak ditemukan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	return batch, nil
}

// Create adds a new batch.
func (s *BatchService) Create(ctx context.Context, req BatchRequest, actor *models.JWTClaims) (*models.Batch, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	batch, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	batch.ID = uuid.NewString()
	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
	}
	return batch, nil
}

// Update mutates an existing batch.
func (s *BatchService) Update(ctx context.Context, id string, req BatchRequest, actor *models.JWTClaims) (*models.Batch, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "gelombang pendaftaran tidak ditemukan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	batch, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	batch.ID = id
	if err := s.repo.Update(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update batch")
	}
	return batch, nil
}

// Delete removes a batch. The batch pointed at by the settings record cannot
// be removed.
func (s *BatchService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration settings")
	}
	if settings.CurrentBatchID == id {
		return appErrors.Clone(appErrors.ErrConflict, "gelombang yang sedang aktif tidak dapat dihapus")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete batch")
	}
	return nil
}

func (s *BatchService) requireAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	return nil
}

func (s *BatchService) fromRequest(req BatchRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	startsAt, err := time.Parse("2006-01-02", req.StartsAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tanggal mulai tidak valid")
	}
	endsAt, err := time.Parse("2006-01-02", req.EndsAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tanggal berakhir tidak valid")
	}
	if !endsAt.After(startsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tanggal berakhir harus setelah tanggal mulai")
	}
	return &models.Batch{Name: req.Name, StartsAt: startsAt, EndsAt: endsAt}, nil
}
