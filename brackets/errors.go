package brackets

import "errors"

// Error texts double as the stable codes returned to API clients.
var (
	ErrInvalidTeamCount   = errors.New("invalid_team_count")
	ErrInvalidRoundCount  = errors.New("invalid_round_count")
	ErrInvalidBracketType = errors.New("invalid_bracket_type")

	ErrInvalidScore       = errors.New("invalid_score")
	ErrTiedScore          = errors.New("tied_score_not_allowed")
	ErrMatchNotReady      = errors.New("match_not_ready")
	ErrMatchNotFound      = errors.New("match_not_found")
	ErrMatchAlreadyPlayed = errors.New("match_already_played")
	ErrMatchNotSwappable  = errors.New("match_not_swappable")

	// ErrDownstreamSlotNotPlaceholder means the stored bracket is corrupted; the
	// whole operation must be abandoned.
	ErrDownstreamSlotNotPlaceholder = errors.New("downstream_slot_not_a_placeholder")
)
