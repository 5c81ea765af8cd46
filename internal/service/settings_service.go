package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/cendekia-fest/kompetisi-api/internal/dto"
	"github.com/cendekia-fest/kompetisi-api/internal/models"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
)

type settingsStore interface {
	Get(ctx context.Context) (*models.RegistrationSettings, error)
	Update(ctx context.Context, settings *models.RegistrationSettings) error
}

// SettingsService manages the single registration settings record: the
// global open/closed switch and the current batch pointer.
type SettingsService struct {
	repo    settingsStore
	batches batchReader
	audit   auditLogger
	logger  *zap.Logger
}

// NewSettingsService constructs SettingsService.
func NewSettingsService(repo settingsStore, batches batchReader, audit auditLogger, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, batches: batches, audit: audit, logger: logger}
}

// Get returns the current settings record.
func (s *SettingsService) Get(ctx context.Context) (*models.RegistrationSettings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration settings")
	}
	return settings, nil
}

// Update mutates the settings record, recording who changed it and when.
// Nil request fields keep their stored value.
func (s *SettingsService) Update(ctx context.Context, req dto.UpdateSettingsRequest, actor *models.JWTClaims) (*models.RegistrationSettings, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration settings")
	}
	old, _ := json.Marshal(settings)
	if req.RegistrationClosed != nil {
		settings.RegistrationClosed = *req.RegistrationClosed
	}
	if req.CurrentBatchID != nil {
		if _, err := s.batches.FindByID(ctx, *req.CurrentBatchID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "gelombang pendaftaran tidak ditemukan")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
		}
		settings.CurrentBatchID = *req.CurrentBatchID
	}
	settings.UpdatedBy = &actor.UserID
	settings.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration settings")
	}
	updated, _ := json.Marshal(settings)
	if s.audit != nil {
		log := &models.AuditLog{
			UserID:    &actor.UserID,
			Action:    models.AuditActionSettingsUpdate,
			Resource:  "registration_settings",
			OldValues: old,
			NewValues: updated,
			IPAddress: "system",
			UserAgent: "settings-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to create settings audit", zap.Error(err))
		}
	}
	return settings, nil
}
