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

// CompetitionRepository handles persistence of the competition catalog.
type CompetitionRepository struct {
	db *sqlx.DB
}

// NewCompetitionRepository constructs the repository.
func NewCompetitionRepository(db *sqlx.DB) *CompetitionRepository {
	return &CompetitionRepository{db: db}
}

// List returns competitions filtered by the provided criteria.
func (r *CompetitionRepository) List(ctx context.Context, filter models.CompetitionFilter) ([]models.Competition, error) {
	base := `SELECT id, title, category, description, is_team, max_team_size, active, created_at, updated_at
        FROM competitions`
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.IsTeam != nil {
		conditions = append(conditions, fmt.Sprintf("is_team = $%d", len(args)+1))
		args = append(args, *filter.IsTeam)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR category ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	query := base
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY title ASC"

	var competitions []models.Competition
	if err := r.db.SelectContext(ctx, &competitions, query, args...); err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}
	return competitions, nil
}

// FindByID returns a competition by its ID.
func (r *CompetitionRepository) FindByID(ctx context.Context, id string) (*models.Competition, error) {
	const query = `SELECT id, title, category, description, is_team, max_team_size, active, created_at, updated_at
        FROM competitions WHERE id = $1`
	var competition models.Competition
	if err := r.db.GetContext(ctx, &competition, query, id); err != nil {
		return nil, err
	}
	return &competition, nil
}

// Create persists a new competition.
func (r *CompetitionRepository) Create(ctx context.Context, competition *models.Competition) error {
	if competition.ID == "" {
		competition.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	competition.CreatedAt = now
	competition.UpdatedAt = now
	const query = `INSERT INTO competitions (id, title, category, description, is_team, max_team_size, active, created_at, updated_at)
        VALUES (:id, :title, :category, :description, :is_team, :max_team_size, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, competition); err != nil {
		return fmt.Errorf("create competition: %w", err)
	}
	return nil
}

// Update overwrites mutable competition fields.
func (r *CompetitionRepository) Update(ctx context.Context, competition *models.Competition) error {
	competition.UpdatedAt = time.Now().UTC()
	const query = `UPDATE competitions SET title = :title, category = :category, description = :description,
        is_team = :is_team, max_team_size = :max_team_size, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, competition); err != nil {
		return fmt.Errorf("update competition: %w", err)
	}
	return nil
}

// Delete removes a competition from the catalog.
func (r *CompetitionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM competitions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete competition: %w", err)
	}
	return nil
}
