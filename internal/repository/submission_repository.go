package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
)

// SubmissionRepository handles persistence of post-approval submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create persists a submission record.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.UploadedAt.IsZero() {
		submission.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO submissions (id, registration_id, type, file_path, mime_type, size_bytes, uploaded_at)
        VALUES (:id, :registration_id, :type, :file_path, :mime_type, :size_bytes, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// FindByRegistrationAndType returns the submission of a given type, if any.
func (r *SubmissionRepository) FindByRegistrationAndType(ctx context.Context, registrationID string, submissionType models.SubmissionType) (*models.Submission, error) {
	const query = `SELECT id, registration_id, type, file_path, mime_type, size_bytes, uploaded_at
        FROM submissions WHERE registration_id = $1 AND type = $2`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, registrationID, submissionType); err != nil {
		return nil, err
	}
	return &submission, nil
}

// ListByRegistration returns all submissions for a registration.
func (r *SubmissionRepository) ListByRegistration(ctx context.Context, registrationID string) ([]models.Submission, error) {
	const query = `SELECT id, registration_id, type, file_path, mime_type, size_bytes, uploaded_at
        FROM submissions WHERE registration_id = $1 ORDER BY uploaded_at DESC`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, registrationID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// Delete removes a submission record.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return nil
}
