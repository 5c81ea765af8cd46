package models

import "time"

// PricingEntry maps (competition, batch, education level) to the amount owed
// in rupiah. Missing entries are a hard stop at checkout, never a zero price.
type PricingEntry struct {
	ID            string         `db:"id" json:"id"`
	CompetitionID string         `db:"competition_id" json:"competition_id"`
	BatchID       string         `db:"batch_id" json:"batch_id"`
	Level         EducationLevel `db:"level" json:"level"`
	Amount        int64          `db:"amount" json:"amount"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// PricingFilter provides filters for listing pricing entries.
type PricingFilter struct {
	CompetitionID string
	BatchID       string
	Level         EducationLevel
}
