package models

import "time"

// RegistrationSettings is the administered configuration record gating every
// registration attempt: the closed switch and the current batch pointer.
// It is loaded per request and passed into the engine, with the last writer
// recorded for accountability.
type RegistrationSettings struct {
	ID                 int       `db:"id" json:"-"`
	RegistrationClosed bool      `db:"registration_closed" json:"registration_closed"`
	CurrentBatchID     string    `db:"current_batch_id" json:"current_batch_id"`
	UpdatedBy          *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}
