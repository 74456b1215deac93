package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrTeamNameRequired      = errors.New("team name is required")
	ErrCaptainRequired       = errors.New("captain name and telegram are required")
	ErrMembersRequired       = errors.New("at least one team member is required")
	ErrInvalidTeamStatus     = errors.New("invalid team status")
	ErrInvalidMatchStatus    = errors.New("match status can only be set to upcoming or live")
	ErrRegistrationClosed    = errors.New("team registration is closed")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrBulkTeamsEmpty        = errors.New("bulk create needs at least one team")
	ErrInvalidRegistrationAt = errors.New("registration deadline must be in the future")

	// Ошибки конфликтов
	ErrTeamInBracket   = errors.New("team is already placed in the bracket")
	ErrBracketBusy     = errors.New("bracket is being modified by another request, try again")
	ErrAdminNameTaken  = errors.New("admin username is already taken")
	ErrAuthCodeExhaust = errors.New("could not generate a unique team code")

	// Ошибки аутентификации и авторизации
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidAuthCode    = errors.New("team code is not valid")

	// Ошибки, специфичные для сущностей
	ErrTeamNotFound = errors.New("team not found")
)
