package models

import "time"

// EliminationType is the tournament format chosen in the bracket settings.
type EliminationType string

const (
	EliminationSingle EliminationType = "single"
	EliminationDouble EliminationType = "double"
)

// BracketSettings mirrors the bracket generation dialog. With AutoCalculate the
// round counts are derived from the team count and the explicit values are ignored.
type BracketSettings struct {
	BracketType   EliminationType `json:"bracket_type" db:"bracket_type"`
	AutoCalculate bool            `json:"auto_calculate" db:"auto_calculate"`
	UpperRounds   int             `json:"upper_rounds" db:"upper_rounds"`
	LowerRounds   int             `json:"lower_rounds" db:"lower_rounds"`
	HasGrandFinal bool            `json:"has_grand_final" db:"has_grand_final"`
}

func DefaultBracketSettings() BracketSettings {
	return BracketSettings{
		BracketType:   EliminationDouble,
		AutoCalculate: true,
		HasGrandFinal: true,
	}
}

type RegistrationSettings struct {
	IsOpen    bool       `json:"is_open" db:"is_open"`
	ClosesAt  *time.Time `json:"closes_at,omitempty" db:"closes_at"`
	UpdatedBy string     `json:"updated_by" db:"updated_by"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}
