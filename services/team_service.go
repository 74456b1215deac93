package services

import (
	"context"
	"crypto/rand"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/Dosada05/team-registration/metrics"
	"github.com/Dosada05/team-registration/models"
	"github.com/Dosada05/team-registration/repositories"
)

const (
	authCodeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	authCodeMaxAttempts = 5
	maxTeamNameLength   = 100
)

type RegisterTeamInput struct {
	Name            string `json:"team_name"`
	CaptainName     string `json:"captain_name"`
	CaptainTelegram string `json:"captain_telegram"`
	MembersInfo     string `json:"members_info"`
}

type UpdateTeamInput struct {
	Name            *string `json:"team_name"`
	CaptainName     *string `json:"captain_name"`
	CaptainTelegram *string `json:"captain_telegram"`
	MembersInfo     *string `json:"members_info"`
}

type SetTeamStatusInput struct {
	Status  models.TeamStatus `json:"status"`
	Comment *string           `json:"admin_comment"`
}

type TeamService interface {
	// Register creates a pending team. The returned team carries its edit code
	// formatted as REG-XXXX-XXXX; it is shown only once.
	Register(ctx context.Context, input RegisterTeamInput) (*models.Team, error)
	GetByCode(ctx context.Context, code string) (*models.Team, error)
	UpdateByCode(ctx context.Context, code string, input UpdateTeamInput) (*models.Team, error)
	DeleteByCode(ctx context.Context, code string) error

	List(ctx context.Context, status *models.TeamStatus, withPrivate bool) ([]*models.Team, error)
	SetStatus(ctx context.Context, teamID int, input SetTeamStatusInput) (*models.Team, error)
	Delete(ctx context.Context, teamID int) error
	BulkCreate(ctx context.Context, names []string) ([]*models.Team, error)
	ClearTeams(ctx context.Context) (int64, error)
	ExportCSV(ctx context.Context, w io.Writer) (int, error)
}

type teamService struct {
	repo         repositories.TeamRepository
	registration RegistrationService
	locker       Locker
	recorder     *metrics.Recorder
	logger       *slog.Logger
	newCode      func() (string, error)
}

func NewTeamService(
	repo repositories.TeamRepository,
	registration RegistrationService,
	locker Locker,
	recorder *metrics.Recorder,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		repo:         repo,
		registration: registration,
		locker:       locker,
		recorder:     recorder,
		logger:       logger,
		newCode:      generateAuthCode,
	}
}

func (s *teamService) Register(ctx context.Context, input RegisterTeamInput) (*models.Team, error) {
	if err := s.requireOpen(ctx); err != nil {
		s.recorder.Registration("closed")
		return nil, err
	}

	team := &models.Team{
		Name:            strings.TrimSpace(input.Name),
		CaptainName:     strings.TrimSpace(input.CaptainName),
		CaptainTelegram: strings.TrimSpace(input.CaptainTelegram),
		MembersInfo:     strings.TrimSpace(input.MembersInfo),
		Status:          models.TeamStatusPending,
	}
	team.MembersCount = models.CountMembers(team.MembersInfo)
	if err := validateTeam(team); err != nil {
		s.recorder.Registration("invalid")
		return nil, err
	}

	for attempt := 1; attempt <= authCodeMaxAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate team code: %w", err)
		}
		team.AuthCode = code

		err = s.repo.Create(ctx, team)
		if err == nil {
			s.recorder.Registration("created")
			s.logger.InfoContext(ctx, "team registered",
				slog.Int("team_id", team.ID),
				slog.String("team_name", team.Name),
			)
			team.AuthCode = models.FormatAuthCode(team.AuthCode)
			return team, nil
		}
		if !errors.Is(err, repositories.ErrTeamAuthCodeConflict) {
			return nil, fmt.Errorf("failed to create team: %w", err)
		}
		s.logger.WarnContext(ctx, "team code collision, retrying", slog.Int("attempt", attempt))
	}
	return nil, ErrAuthCodeExhaust
}

func (s *teamService) GetByCode(ctx context.Context, code string) (*models.Team, error) {
	normalized := models.NormalizeAuthCode(code)
	if len(normalized) != models.AuthCodeLength {
		return nil, ErrInvalidAuthCode
	}
	team, err := s.repo.GetByAuthCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrInvalidAuthCode
		}
		return nil, fmt.Errorf("failed to find team by code: %w", err)
	}
	team.AuthCode = models.FormatAuthCode(team.AuthCode)
	return team, nil
}

func (s *teamService) UpdateByCode(ctx context.Context, code string, input UpdateTeamInput) (*models.Team, error) {
	if err := s.requireOpen(ctx); err != nil {
		return nil, err
	}
	team, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	upd := repositories.TeamUpdate{
		Name:            trimmed(input.Name),
		CaptainName:     trimmed(input.CaptainName),
		CaptainTelegram: trimmed(input.CaptainTelegram),
		MembersInfo:     trimmed(input.MembersInfo),
	}
	// validate the merged result, not just the changed fields
	merged := *team
	if upd.Name != nil {
		merged.Name = *upd.Name
	}
	if upd.CaptainName != nil {
		merged.CaptainName = *upd.CaptainName
	}
	if upd.CaptainTelegram != nil {
		merged.CaptainTelegram = *upd.CaptainTelegram
	}
	if upd.MembersInfo != nil {
		merged.MembersInfo = *upd.MembersInfo
		merged.MembersCount = models.CountMembers(merged.MembersInfo)
	}
	if err := validateTeam(&merged); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, team.ID, upd)
	if err != nil {
		return nil, handleTeamRepoError(err, team.ID)
	}
	updated.AuthCode = models.FormatAuthCode(updated.AuthCode)
	return updated, nil
}

func (s *teamService) DeleteByCode(ctx context.Context, code string) error {
	if err := s.requireOpen(ctx); err != nil {
		return err
	}
	team, err := s.GetByCode(ctx, code)
	if err != nil {
		return err
	}

	unlock, err := s.locker.Lock(ctx, bracketLockKey)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.repo.Delete(ctx, team.ID); err != nil {
		return handleTeamRepoError(err, team.ID)
	}
	s.logger.InfoContext(ctx, "team withdrawn by captain", slog.Int("team_id", team.ID))
	return nil
}

// List returns teams in registration order. Without withPrivate only approved
// teams are listed and edit codes are stripped.
func (s *teamService) List(ctx context.Context, status *models.TeamStatus, withPrivate bool) ([]*models.Team, error) {
	if status != nil && !status.Valid() {
		return nil, ErrInvalidTeamStatus
	}
	filter := repositories.ListTeamsFilter{Status: status}
	if !withPrivate {
		approved := models.TeamStatusApproved
		filter.Status = &approved
	}

	teams, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	for _, t := range teams {
		if withPrivate {
			t.AuthCode = models.FormatAuthCode(t.AuthCode)
		} else {
			t.AuthCode = ""
		}
	}
	return teams, nil
}

// SetStatus moderates a team. A team seated in the bracket must stay approved.
func (s *teamService) SetStatus(ctx context.Context, teamID int, input SetTeamStatusInput) (*models.Team, error) {
	if !input.Status.Valid() {
		return nil, ErrInvalidTeamStatus
	}
	comment := trimmed(input.Comment)
	if comment != nil && *comment == "" {
		comment = nil
	}

	unlock, err := s.locker.Lock(ctx, bracketLockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	team, err := s.repo.UpdateStatus(ctx, teamID, input.Status, comment)
	if err != nil {
		return nil, handleTeamRepoError(err, teamID)
	}
	s.logger.InfoContext(ctx, "team status changed",
		slog.Int("team_id", teamID),
		slog.String("status", string(input.Status)),
	)
	team.AuthCode = models.FormatAuthCode(team.AuthCode)
	return team, nil
}

// Delete removes a team that is not placed in the bracket. It holds the bracket
// lock so a concurrent generation cannot seat the team being removed.
func (s *teamService) Delete(ctx context.Context, teamID int) error {
	unlock, err := s.locker.Lock(ctx, bracketLockKey)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.repo.Delete(ctx, teamID); err != nil {
		return handleTeamRepoError(err, teamID)
	}
	s.logger.InfoContext(ctx, "team deleted by admin", slog.Int("team_id", teamID))
	return nil
}

// BulkCreate adds approved placeholder teams by name, ignoring blank names.
func (s *teamService) BulkCreate(ctx context.Context, names []string) ([]*models.Team, error) {
	teams := make([]*models.Team, 0, len(names))
	used := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if len([]rune(name)) > maxTeamNameLength {
			return nil, fmt.Errorf("%w: team name %q is longer than %d characters", ErrValidationFailed, name, maxTeamNameLength)
		}
		code, err := s.uniqueCode(used)
		if err != nil {
			return nil, err
		}
		teams = append(teams, &models.Team{
			Name:        name,
			CaptainName: "TBD",
			AuthCode:    code,
			Status:      models.TeamStatusApproved,
		})
	}
	if len(teams) == 0 {
		return nil, ErrBulkTeamsEmpty
	}

	if err := s.repo.CreateBatch(ctx, teams); err != nil {
		if errors.Is(err, repositories.ErrTeamAuthCodeConflict) {
			return nil, ErrAuthCodeExhaust
		}
		return nil, fmt.Errorf("failed to create %d teams: %w", len(teams), err)
	}
	s.logger.InfoContext(ctx, "teams bulk created", slog.Int("count", len(teams)))
	for _, t := range teams {
		t.AuthCode = models.FormatAuthCode(t.AuthCode)
	}
	return teams, nil
}

// ClearTeams removes every team. The bracket goes with them, so it runs under
// the bracket lock.
func (s *teamService) ClearTeams(ctx context.Context) (int64, error) {
	unlock, err := s.locker.Lock(ctx, bracketLockKey)
	if err != nil {
		return 0, err
	}
	defer unlock()

	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete teams: %w", err)
	}
	s.logger.WarnContext(ctx, "all teams deleted", slog.Int64("count", n))
	return n, nil
}

var csvHeader = []string{"Team Name", "Captain Name", "Captain Telegram", "Status", "Created At", "Members Info"}

// ExportCSV writes every team in registration order and returns the row count.
func (s *teamService) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	teams, err := s.repo.List(ctx, repositories.ListTeamsFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to list teams: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, err
	}
	for _, t := range teams {
		row := []string{
			t.Name,
			t.CaptainName,
			t.CaptainTelegram,
			string(t.Status),
			t.CreatedAt.UTC().Format(time.RFC3339),
			flattenMembers(t.MembersInfo),
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to write csv: %w", err)
	}
	return len(teams), nil
}

func (s *teamService) requireOpen(ctx context.Context) error {
	open, err := s.registration.IsOpen(ctx)
	if err != nil {
		return err
	}
	if !open {
		return ErrRegistrationClosed
	}
	return nil
}

func (s *teamService) uniqueCode(used map[string]bool) (string, error) {
	for attempt := 0; attempt < authCodeMaxAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate team code: %w", err)
		}
		if !used[code] {
			used[code] = true
			return code, nil
		}
	}
	return "", ErrAuthCodeExhaust
}

func validateTeam(t *models.Team) error {
	if t.Name == "" {
		return ErrTeamNameRequired
	}
	if len([]rune(t.Name)) > maxTeamNameLength {
		return fmt.Errorf("%w: team name is longer than %d characters", ErrValidationFailed, maxTeamNameLength)
	}
	if t.CaptainName == "" || t.CaptainTelegram == "" {
		return ErrCaptainRequired
	}
	if t.MembersCount == 0 {
		return ErrMembersRequired
	}
	return nil
}

func handleTeamRepoError(err error, teamID int) error {
	switch {
	case errors.Is(err, repositories.ErrTeamNotFound):
		return fmt.Errorf("%w: id %d", ErrTeamNotFound, teamID)
	case errors.Is(err, repositories.ErrTeamInBracket):
		return fmt.Errorf("%w: team %d", ErrTeamInBracket, teamID)
	default:
		return fmt.Errorf("team %d: %w", teamID, err)
	}
}

func generateAuthCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(authCodeAlphabet)))
	for i := 0; i < models.AuthCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(authCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func flattenMembers(info string) string {
	lines := make([]string, 0)
	for _, line := range strings.Split(info, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, strings.ReplaceAll(line, ",", ";"))
		}
	}
	return strings.Join(lines, " | ")
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
