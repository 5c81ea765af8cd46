package dto

// UpdateSettingsRequest mutates the registration settings record. Nil fields
// keep their stored value.
type UpdateSettingsRequest struct {
	RegistrationClosed *bool   `json:"registration_closed,omitempty"`
	CurrentBatchID     *string `json:"current_batch_id,omitempty"`
}
