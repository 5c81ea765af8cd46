package models

import "time"

// Competition is a catalog entry participants can register for.
type Competition struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Category    string    `db:"category" json:"category"`
	Description string    `db:"description" json:"description"`
	IsTeam      bool      `db:"is_team" json:"is_team"`
	MaxTeamSize int       `db:"max_team_size" json:"max_team_size"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CompetitionFilter provides filters for listing competitions.
type CompetitionFilter struct {
	Active *bool
	IsTeam *bool
	Search string
}
