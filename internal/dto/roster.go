package dto

// TeamMemberInput is a single roster row in a submission. Roles are assigned
// server-side, the first row always becomes the leader.
type TeamMemberInput struct {
	Name             string `json:"name" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	Phone            string `json:"phone" validate:"required"`
	School           string `json:"school" validate:"required"`
	Grade            string `json:"grade" validate:"required"`
	IDDocumentType   string `json:"id_document_type" validate:"required"`
	IDDocumentNumber string `json:"id_document_number" validate:"required"`
	Address          string `json:"address" validate:"required"`
	BirthDate        string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Gender           string `json:"gender" validate:"required,oneof=L P"`
}

// SubmitRosterRequest replaces the entire roster of a team registration.
type SubmitRosterRequest struct {
	Members []TeamMemberInput `json:"members" validate:"required,min=1,dive"`
}
