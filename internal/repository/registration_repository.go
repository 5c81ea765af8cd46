package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
)

// ErrActiveClaimExists is returned when the partial unique index on active
// claims rejects an insert or update. The index backstops the application
// level check so two concurrent requests cannot both acquire a claim.
var ErrActiveClaimExists = errors.New("active claim already exists for user")

const registrationColumns = `id, user_id, competition_id, batch_id, status, created_at, expires_at,
        payment_proof, payment_submitted_at, is_team, team_data_complete, admin_notes`

// RegistrationRepository handles persistence of registrations.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create persists a new registration row.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}
	if reg.Status == "" {
		reg.Status = models.RegistrationStatusPending
	}
	const query = `INSERT INTO registrations (id, user_id, competition_id, batch_id, status, created_at, expires_at,
        payment_proof, payment_submitted_at, is_team, team_data_complete, admin_notes)
        VALUES (:id, :user_id, :competition_id, :batch_id, :status, :created_at, :expires_at,
        :payment_proof, :payment_submitted_at, :is_team, :team_data_complete, :admin_notes)`
	if _, err := r.db.NamedExecContext(ctx, query, reg); err != nil {
		if isUniqueViolation(err) {
			return ErrActiveClaimExists
		}
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// FindByID returns a registration by its ID.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations WHERE id = $1`, registrationColumns)
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, id); err != nil {
		return nil, err
	}
	return &reg, nil
}

// FindDetailByID returns a registration with catalog and owner info.
func (r *RegistrationRepository) FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	const query = `SELECT r.id, r.user_id, r.competition_id, r.batch_id, r.status, r.created_at, r.expires_at,
        r.payment_proof, r.payment_submitted_at, r.is_team, r.team_data_complete, r.admin_notes,
        c.title AS competition_title, c.is_team AS competition_is_team, b.name AS batch_name,
        u.full_name AS participant_name, u.email AS participant_email
        FROM registrations r
        LEFT JOIN competitions c ON c.id = r.competition_id
        LEFT JOIN batches b ON b.id = r.batch_id
        LEFT JOIN users u ON u.id = r.user_id
        WHERE r.id = $1`
	var detail models.RegistrationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByUser returns a user's registrations, excluding provisional holds that
// have already expired at the given instant. Expiry is enforced here at read
// time; the sweep deletes the rows separately.
func (r *RegistrationRepository) ListByUser(ctx context.Context, userID string, now time.Time) ([]models.RegistrationDetail, error) {
	const query = `SELECT r.id, r.user_id, r.competition_id, r.batch_id, r.status, r.created_at, r.expires_at,
        r.payment_proof, r.payment_submitted_at, r.is_team, r.team_data_complete, r.admin_notes,
        c.title AS competition_title, c.is_team AS competition_is_team, b.name AS batch_name,
        u.full_name AS participant_name, u.email AS participant_email
        FROM registrations r
        LEFT JOIN competitions c ON c.id = r.competition_id
        LEFT JOIN batches b ON b.id = r.batch_id
        LEFT JOIN users u ON u.id = r.user_id
        WHERE r.user_id = $1
        AND NOT (r.status = $2 AND r.payment_proof IS NULL AND r.expires_at < $3)
        ORDER BY r.created_at DESC`
	var regs []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &regs, query, userID, models.RegistrationStatusPending, now); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// HasActiveClaim reports whether the user holds an approved registration or a
// pending one with payment proof, across all competitions.
func (r *RegistrationRepository) HasActiveClaim(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT 1 FROM registrations
        WHERE user_id = $1 AND (status = $2 OR (status = $3 AND payment_proof IS NOT NULL))
        LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID,
		models.RegistrationStatusApproved, models.RegistrationStatusPending); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check active claim: %w", err)
	}
	return true, nil
}

// FindProvisionalByUserAndCompetition returns the user's unpaid pending hold
// for the given competition, expired or not, so the caller can decide between
// continuing it and replacing it.
func (r *RegistrationRepository) FindProvisionalByUserAndCompetition(ctx context.Context, userID, competitionID string) (*models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations
        WHERE user_id = $1 AND competition_id = $2 AND status = $3 AND payment_proof IS NULL
        LIMIT 1`, registrationColumns)
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, userID, competitionID, models.RegistrationStatusPending); err != nil {
		return nil, err
	}
	return &reg, nil
}

// AttachPaymentProof records the proof file and clears the expiry hold.
func (r *RegistrationRepository) AttachPaymentProof(ctx context.Context, id, filePath string, submittedAt time.Time) error {
	const query = `UPDATE registrations
        SET payment_proof = $2, payment_submitted_at = $3, expires_at = NULL
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, filePath, submittedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrActiveClaimExists
		}
		return fmt.Errorf("attach payment proof: %w", err)
	}
	return nil
}

// ResetForReupload replaces the proof after a rejection: status returns to
// pending and admin notes are cleared.
func (r *RegistrationRepository) ResetForReupload(ctx context.Context, id, filePath string, submittedAt time.Time) error {
	const query = `UPDATE registrations
        SET payment_proof = $2, payment_submitted_at = $3, status = $4, admin_notes = NULL
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, filePath, submittedAt, models.RegistrationStatusPending); err != nil {
		return fmt.Errorf("reset registration for reupload: %w", err)
	}
	return nil
}

// UpdateStatusBulk applies an admin status change to the given IDs and
// returns how many rows were touched.
func (r *RegistrationRepository) UpdateStatusBulk(ctx context.Context, ids []string, status models.RegistrationStatus, notes *string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []interface{}{status, notes}
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
		args = append(args, id)
	}
	query := fmt.Sprintf(`UPDATE registrations SET status = $1, admin_notes = $2 WHERE id IN (%s)`,
		strings.Join(placeholders, ","))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrActiveClaimExists
		}
		return 0, fmt.Errorf("bulk update registration status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk update registration status: %w", err)
	}
	return affected, nil
}

// SetTeamDataComplete flips the roster completion flag.
func (r *RegistrationRepository) SetTeamDataComplete(ctx context.Context, id string, complete bool) error {
	const query = `UPDATE registrations SET team_data_complete = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, complete); err != nil {
		return fmt.Errorf("set team data complete: %w", err)
	}
	return nil
}

// Delete removes a registration; team members cascade at the schema level.
func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM registrations WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	return nil
}

// DeleteExpired reclaims provisional holds past their expiry and returns the
// proof-less rows removed. Used by both the lazy read path and the sweep.
func (r *RegistrationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM registrations
        WHERE status = $1 AND payment_proof IS NULL AND expires_at < $2`
	res, err := r.db.ExecContext(ctx, query, models.RegistrationStatusPending, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired registrations: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired registrations: %w", err)
	}
	return affected, nil
}

// List returns registrations for the admin views, filtered and paginated.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error) {
	base := `FROM registrations r
LEFT JOIN competitions c ON c.id = r.competition_id
LEFT JOIN batches b ON b.id = r.batch_id
LEFT JOIN users u ON u.id = r.user_id`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.CompetitionID != "" {
		conditions = append(conditions, fmt.Sprintf("r.competition_id = $%d", len(args)+1))
		args = append(args, filter.CompetitionID)
	}
	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("r.batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.PaidOnly {
		conditions = append(conditions, "r.payment_proof IS NOT NULL")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":       "r.created_at",
		"payment_at":       "r.payment_submitted_at",
		"participant_name": "u.full_name",
		"competition":      "c.title",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "r.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT r.id, r.user_id, r.competition_id, r.batch_id, r.status, r.created_at, r.expires_at,
        r.payment_proof, r.payment_submitted_at, r.is_team, r.team_data_complete, r.admin_notes,
        c.title AS competition_title, c.is_team AS competition_is_team, b.name AS batch_name,
        u.full_name AS participant_name, u.email AS participant_email
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var regs []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &regs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}
	return regs, total, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
