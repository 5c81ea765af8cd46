package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
)

// TeamMemberRepository handles persistence of team roster rows.
type TeamMemberRepository struct {
	db *sqlx.DB
}

// NewTeamMemberRepository constructs the repository.
func NewTeamMemberRepository(db *sqlx.DB) *TeamMemberRepository {
	return &TeamMemberRepository{db: db}
}

// ListByRegistration returns roster rows ordered with the leader first.
func (r *TeamMemberRepository) ListByRegistration(ctx context.Context, registrationID string) ([]models.TeamMember, error) {
	const query = `SELECT id, registration_id, name, email, phone, school, grade,
        id_document_type, id_document_number, address, birth_date, gender, role, created_at
        FROM team_members WHERE registration_id = $1
        ORDER BY CASE role WHEN 'LEADER' THEN 0 ELSE 1 END, created_at ASC`
	var members []models.TeamMember
	if err := r.db.SelectContext(ctx, &members, query, registrationID); err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return members, nil
}

// FindLeader returns the member marked leader for a registration.
func (r *TeamMemberRepository) FindLeader(ctx context.Context, registrationID string) (*models.TeamMember, error) {
	const query = `SELECT id, registration_id, name, email, phone, school, grade,
        id_document_type, id_document_number, address, birth_date, gender, role, created_at
        FROM team_members WHERE registration_id = $1 AND role = $2 LIMIT 1`
	var member models.TeamMember
	if err := r.db.GetContext(ctx, &member, query, registrationID, models.TeamRoleLeader); err != nil {
		return nil, err
	}
	return &member, nil
}

// Replace swaps the full roster for a registration in one transaction:
// existing rows are deleted, the new set is inserted, and the parent
// registration's completion flag is set. Re-submission replaces wholesale.
func (r *TeamMemberRepository) Replace(ctx context.Context, registrationID string, members []models.TeamMember) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roster tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE registration_id = $1`, registrationID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear team members: %w", err)
	}

	const insert = `INSERT INTO team_members (id, registration_id, name, email, phone, school, grade,
        id_document_type, id_document_number, address, birth_date, gender, role, created_at)
        VALUES (:id, :registration_id, :name, :email, :phone, :school, :grade,
        :id_document_type, :id_document_number, :address, :birth_date, :gender, :role, :created_at)`
	now := time.Now().UTC()
	for i := range members {
		members[i].RegistrationID = registrationID
		if members[i].ID == "" {
			members[i].ID = uuid.NewString()
		}
		if members[i].CreatedAt.IsZero() {
			members[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insert, members[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert team member: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE registrations SET team_data_complete = TRUE WHERE id = $1`, registrationID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("mark team data complete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster tx: %w", err)
	}
	return nil
}

// DeleteByRegistration removes all roster rows for a registration.
func (r *TeamMemberRepository) DeleteByRegistration(ctx context.Context, registrationID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM team_members WHERE registration_id = $1`, registrationID); err != nil {
		return fmt.Errorf("delete team members: %w", err)
	}
	return nil
}
