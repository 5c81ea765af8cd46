package models

import "time"

// SubmissionType distinguishes the later-phase artifacts tied to an approved
// registration.
type SubmissionType string

const (
	SubmissionTypeWork        SubmissionType = "WORK"
	SubmissionTypeDeclaration SubmissionType = "DECLARATION"
)

// Submission is a work product or declaration document uploaded after a
// registration has been approved.
type Submission struct {
	ID             string         `db:"id" json:"id"`
	RegistrationID string         `db:"registration_id" json:"registration_id"`
	Type           SubmissionType `db:"type" json:"type"`
	FilePath       string         `db:"file_path" json:"file_path"`
	MimeType       string         `db:"mime_type" json:"mime_type"`
	SizeBytes      int64          `db:"size_bytes" json:"size_bytes"`
	UploadedAt     time.Time      `db:"uploaded_at" json:"uploaded_at"`
}
