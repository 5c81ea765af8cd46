package models

import "time"

// RegistrationStatus is the administered lifecycle state of a registration.
// A PENDING registration is further split by PaymentProof: without proof it
// is a provisional hold subject to expiry, with proof it awaits admin review.
type RegistrationStatus string

const (
	RegistrationStatusPending  RegistrationStatus = "PENDING"
	RegistrationStatusApproved RegistrationStatus = "APPROVED"
	RegistrationStatusRejected RegistrationStatus = "REJECTED"
)

// Valid reports whether s is one of the three known statuses.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusApproved, RegistrationStatusRejected:
		return true
	}
	return false
}

// Registration represents one user's claim on one competition slot.
type Registration struct {
	ID                 string             `db:"id" json:"id"`
	UserID             string             `db:"user_id" json:"user_id"`
	CompetitionID      string             `db:"competition_id" json:"competition_id"`
	BatchID            string             `db:"batch_id" json:"batch_id"`
	Status             RegistrationStatus `db:"status" json:"status"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	ExpiresAt          *time.Time         `db:"expires_at" json:"expires_at,omitempty"`
	PaymentProof       *string            `db:"payment_proof" json:"payment_proof,omitempty"`
	PaymentSubmittedAt *time.Time         `db:"payment_submitted_at" json:"payment_submitted_at,omitempty"`
	IsTeam             bool               `db:"is_team" json:"is_team"`
	TeamDataComplete   bool               `db:"team_data_complete" json:"team_data_complete"`
	AdminNotes         *string            `db:"admin_notes" json:"admin_notes,omitempty"`
}

// HasPaymentProof reports whether a proof file has been attached.
func (r *Registration) HasPaymentProof() bool {
	return r.PaymentProof != nil && *r.PaymentProof != ""
}

// IsProvisional reports whether the registration is an unpaid pending hold,
// the only state subject to expiry and cancellation.
func (r *Registration) IsProvisional() bool {
	return r.Status == RegistrationStatusPending && !r.HasPaymentProof()
}

// Expired reports whether a provisional hold has outlived its reservation
// window at the given instant. Registrations with proof never expire.
func (r *Registration) Expired(now time.Time) bool {
	return r.IsProvisional() && r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// RegistrationDetail enriches Registration with catalog and owner info.
type RegistrationDetail struct {
	Registration
	CompetitionTitle  string `db:"competition_title" json:"competition_title"`
	CompetitionIsTeam bool   `db:"competition_is_team" json:"competition_is_team"`
	BatchName         string `db:"batch_name" json:"batch_name"`
	ParticipantName   string `db:"participant_name" json:"participant_name"`
	ParticipantEmail  string `db:"participant_email" json:"participant_email"`
}

// RegistrationFilter provides filters for admin listings.
type RegistrationFilter struct {
	UserID        string
	CompetitionID string
	BatchID       string
	Status        RegistrationStatus
	// PaidOnly restricts results to registrations with a payment proof.
	PaidOnly  bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
