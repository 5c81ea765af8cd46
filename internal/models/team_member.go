package models

import "time"

// TeamMemberRole distinguishes the designated leader from ordinary members.
// Exactly one leader exists per team, assigned to the first submitted member.
type TeamMemberRole string

const (
	TeamRoleLeader TeamMemberRole = "LEADER"
	TeamRoleMember TeamMemberRole = "MEMBER"
)

// TeamMember is one participant within a team registration. Rows are replaced
// wholesale on roster re-submission, never updated field-by-field.
type TeamMember struct {
	ID               string         `db:"id" json:"id"`
	RegistrationID   string         `db:"registration_id" json:"registration_id"`
	Name             string         `db:"name" json:"name"`
	Email            string         `db:"email" json:"email"`
	Phone            string         `db:"phone" json:"phone"`
	School           string         `db:"school" json:"school"`
	Grade            string         `db:"grade" json:"grade"`
	IDDocumentType   string         `db:"id_document_type" json:"id_document_type"`
	IDDocumentNumber string         `db:"id_document_number" json:"id_document_number"`
	Address          string         `db:"address" json:"address"`
	BirthDate        time.Time      `db:"birth_date" json:"birth_date"`
	Gender           string         `db:"gender" json:"gender"`
	Role             TeamMemberRole `db:"role" json:"role"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}
