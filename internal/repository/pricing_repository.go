package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
)

// PricingRepository handles persistence of the pricing table.
type PricingRepository struct {
	db *sqlx.DB
}

// NewPricingRepository constructs the repository.
func NewPricingRepository(db *sqlx.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

// Find returns the entry for a (competition, batch, level) triple.
func (r *PricingRepository) Find(ctx context.Context, competitionID, batchID string, level models.EducationLevel) (*models.PricingEntry, error) {
	const query = `SELECT id, competition_id, batch_id, level, amount, created_at, updated_at
        FROM pricing_entries WHERE competition_id = $1 AND batch_id = $2 AND level = $3`
	var entry models.PricingEntry
	if err := r.db.GetContext(ctx, &entry, query, competitionID, batchID, level); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns pricing entries filtered by the provided criteria.
func (r *PricingRepository) List(ctx context.Context, filter models.PricingFilter) ([]models.PricingEntry, error) {
	base := `SELECT id, competition_id, batch_id, level, amount, created_at, updated_at FROM pricing_entries`
	var conditions []string
	var args []interface{}

	if filter.CompetitionID != "" {
		conditions = append(conditions, fmt.Sprintf("competition_id = $%d", len(args)+1))
		args = append(args, filter.CompetitionID)
	}
	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}

	query := base
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY competition_id, batch_id, level"

	var entries []models.PricingEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list pricing entries: %w", err)
	}
	return entries, nil
}

// Upsert inserts or updates the amount for a (competition, batch, level) key.
func (r *PricingRepository) Upsert(ctx context.Context, entry *models.PricingEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	const query = `INSERT INTO pricing_entries (id, competition_id, batch_id, level, amount, created_at, updated_at)
        VALUES (:id, :competition_id, :batch_id, :level, :amount, :created_at, :updated_at)
        ON CONFLICT (competition_id, batch_id, level)
        DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("upsert pricing entry: %w", err)
	}
	return nil
}

// Delete removes a pricing entry.
func (r *PricingRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pricing_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete pricing entry: %w", err)
	}
	return nil
}
