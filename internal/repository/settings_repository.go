package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
)

// SettingsRepository persists the single registration settings record.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get loads the settings row. The table holds exactly one row with id 1.
func (r *SettingsRepository) Get(ctx context.Context) (*models.RegistrationSettings, error) {
	const query = `SELECT id, registration_closed, current_batch_id, updated_by, updated_at
        FROM registration_settings WHERE id = 1`
	var settings models.RegistrationSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Update overwrites the settings record, stamping the acting admin.
func (r *SettingsRepository) Update(ctx context.Context, settings *models.RegistrationSettings) error {
	settings.ID = 1
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO registration_settings (id, registration_closed, current_batch_id, updated_by, updated_at)
        VALUES (:id, :registration_closed, :current_batch_id, :updated_by, :updated_at)
        ON CONFLICT (id)
        DO UPDATE SET registration_closed = EXCLUDED.registration_closed,
                      current_batch_id = EXCLUDED.current_batch_id,
                      updated_by = EXCLUDED.updated_by,
                      updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("update registration settings: %w", err)
	}
	return nil
}
