package dto

import (
	"time"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
)

// CreateRegistrationRequest starts a registration claim for a competition.
type CreateRegistrationRequest struct {
	CompetitionID string `json:"competition_id" validate:"required"`
}

// UpdateStatusRequest applies one status to a batch of registrations.
type UpdateStatusRequest struct {
	IDs        []string                  `json:"ids" validate:"required,min=1,dive,required"`
	Status     models.RegistrationStatus `json:"status" validate:"required"`
	AdminNotes *string                   `json:"admin_notes,omitempty"`
}

// UpdateStatusResponse reports how many rows the bulk update touched.
type UpdateStatusResponse struct {
	Updated int64                     `json:"updated"`
	Status  models.RegistrationStatus `json:"status"`
}

// PaymentDetails is the payment summary shown before proof upload. It is
// cached per registration and invalidated on roster re-submission.
type PaymentDetails struct {
	RegistrationID   string                `json:"registration_id"`
	CompetitionTitle string                `json:"competition_title"`
	BatchName        string                `json:"batch_name"`
	Level            models.EducationLevel `json:"level"`
	CategoryLabel    string                `json:"category_label"`
	Amount           int64                 `json:"amount"`
	IsTeam           bool                  `json:"is_team"`
	ExpiresAt        *time.Time            `json:"expires_at,omitempty"`
	TeamMembers      []models.TeamMember   `json:"team_members,omitempty"`
}
