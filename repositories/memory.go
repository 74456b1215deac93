package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/team-registration/models"
)

// MemoryStore keeps every table in memory behind one lock. It serves the CLI and
// tests; each accessor returns a view implementing one repository interface.
type MemoryStore struct {
	mu           sync.RWMutex
	teams        map[int]*models.Team
	matches      map[int]*models.Match
	admins       map[string]*models.AdminUser
	settings     *models.BracketSettings
	registration *models.RegistrationSettings
	nextTeamID   int
	nextMatchID  int
	nextAdminID  int
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teams:        make(map[int]*models.Team),
		matches:      make(map[int]*models.Match),
		admins:       make(map[string]*models.AdminUser),
		registration: &models.RegistrationSettings{IsOpen: true},
		now:          time.Now,
	}
}

func (s *MemoryStore) Teams() TeamRepository                { return memoryTeams{s} }
func (s *MemoryStore) Bracket() BracketRepository           { return memoryBracket{s} }
func (s *MemoryStore) Registration() RegistrationRepository { return memoryRegistration{s} }
func (s *MemoryStore) Admins() AdminRepository              { return memoryAdmins{s} }

func cloneTeam(t *models.Team) *models.Team {
	c := *t
	if t.AdminComment != nil {
		comment := *t.AdminComment
		c.AdminComment = &comment
	}
	return &c
}

type memoryTeams struct{ s *MemoryStore }

func (r memoryTeams) insert(t *models.Team) error {
	for _, existing := range r.s.teams {
		if existing.AuthCode == t.AuthCode {
			return ErrTeamAuthCodeConflict
		}
	}
	r.s.nextTeamID++
	t.ID = r.s.nextTeamID
	// strictly increasing so registration order survives equal clock readings
	t.CreatedAt = r.s.now().Add(time.Duration(t.ID) * time.Nanosecond)
	r.s.teams[t.ID] = cloneTeam(t)
	return nil
}

func (r memoryTeams) Create(_ context.Context, t *models.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insert(t)
}

func (r memoryTeams) CreateBatch(_ context.Context, teams []*models.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := make(map[string]bool, len(teams))
	for _, t := range teams {
		if seen[t.AuthCode] {
			return ErrTeamAuthCodeConflict
		}
		seen[t.AuthCode] = true
		for _, existing := range r.s.teams {
			if existing.AuthCode == t.AuthCode {
				return ErrTeamAuthCodeConflict
			}
		}
	}
	for _, t := range teams {
		if err := r.insert(t); err != nil {
			return err
		}
	}
	return nil
}

func (r memoryTeams) GetByID(_ context.Context, id int) (*models.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	return cloneTeam(t), nil
}

func (r memoryTeams) GetByAuthCode(_ context.Context, code string) (*models.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.teams {
		if t.AuthCode == code {
			return cloneTeam(t), nil
		}
	}
	return nil, ErrTeamNotFound
}

func (r memoryTeams) List(_ context.Context, filter ListTeamsFilter) ([]*models.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.listTeams(filter), nil
}

func (s *MemoryStore) listTeams(filter ListTeamsFilter) []*models.Team {
	teams := make([]*models.Team, 0, len(s.teams))
	for _, t := range s.teams {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		teams = append(teams, cloneTeam(t))
	}
	sort.Slice(teams, func(i, j int) bool {
		if !teams[i].CreatedAt.Equal(teams[j].CreatedAt) {
			return teams[i].CreatedAt.Before(teams[j].CreatedAt)
		}
		return teams[i].ID < teams[j].ID
	})
	return teams
}

func (r memoryTeams) Update(_ context.Context, id int, upd TeamUpdate) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	if upd.Name != nil {
		t.Name = *upd.Name
	}
	if upd.CaptainName != nil {
		t.CaptainName = *upd.CaptainName
	}
	if upd.CaptainTelegram != nil {
		t.CaptainTelegram = *upd.CaptainTelegram
	}
	if upd.MembersInfo != nil {
		t.MembersInfo = *upd.MembersInfo
		t.MembersCount = models.CountMembers(*upd.MembersInfo)
	}
	return cloneTeam(t), nil
}

func (r memoryTeams) UpdateStatus(_ context.Context, id int, status models.TeamStatus, comment *string) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	if status != models.TeamStatusApproved && r.s.placed(id) {
		return nil, ErrTeamInBracket
	}
	t.Status = status
	t.AdminComment = nil
	if comment != nil {
		c := *comment
		t.AdminComment = &c
	}
	return cloneTeam(t), nil
}

func (r memoryTeams) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.teams[id]; !ok {
		return ErrTeamNotFound
	}
	if r.s.placed(id) {
		return ErrTeamInBracket
	}
	delete(r.s.teams, id)
	return nil
}

func (s *MemoryStore) placed(teamID int) bool {
	for _, m := range s.matches {
		for _, slot := range []models.Slot{m.Slot1, m.Slot2} {
			if slot.TeamID != nil && *slot.TeamID == teamID {
				return true
			}
		}
	}
	return false
}

func (r memoryTeams) DeleteAll(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := int64(len(r.s.teams))
	r.s.teams = make(map[int]*models.Team)
	r.s.matches = make(map[int]*models.Match)
	return n, nil
}

type memoryBracket struct{ s *MemoryStore }

func (r memoryBracket) ListTeams(_ context.Context) ([]*models.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	approved := models.TeamStatusApproved
	return r.s.listTeams(ListTeamsFilter{Status: &approved}), nil
}

func (r memoryBracket) ListMatches(_ context.Context) ([]*models.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matches := make([]*models.Match, 0, len(r.s.matches))
	for _, m := range r.s.matches {
		matches = append(matches, m.Clone())
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Number < matches[j].Number })
	return matches, nil
}

func (r memoryBracket) GetMatch(_ context.Context, id int) (*models.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (r memoryBracket) ReplaceMatches(_ context.Context, matches []*models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.checkMatches(matches); err != nil {
		return err
	}
	r.s.storeMatches(matches)
	return nil
}

func (r memoryBracket) ReplaceBracket(_ context.Context, settings models.BracketSettings, matches []*models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.checkMatches(matches); err != nil {
		return err
	}
	r.s.settings = &settings
	r.s.storeMatches(matches)
	return nil
}

// checkMatches enforces the constraints the matches table has in PostgreSQL.
func (s *MemoryStore) checkMatches(matches []*models.Match) error {
	seen := make(map[int]bool, len(matches))
	for _, m := range matches {
		if seen[m.Number] {
			return ErrMatchNumberConflict
		}
		seen[m.Number] = true
		for _, slot := range []models.Slot{m.Slot1, m.Slot2} {
			if slot.TeamID == nil {
				continue
			}
			if _, ok := s.teams[*slot.TeamID]; !ok {
				return ErrMatchTeamReferenceFailed
			}
		}
	}
	return nil
}

func (s *MemoryStore) storeMatches(matches []*models.Match) {
	s.matches = make(map[int]*models.Match, len(matches))
	now := s.now()
	for _, m := range matches {
		s.nextMatchID++
		m.ID = s.nextMatchID
		m.CreatedAt = now
		s.matches[m.ID] = m.Clone()
	}
}

func (r memoryBracket) UpdateMatches(_ context.Context, matches []*models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	byNumber := make(map[int]*models.Match, len(r.s.matches))
	for _, m := range r.s.matches {
		byNumber[m.Number] = m
	}
	for _, m := range matches {
		if _, ok := byNumber[m.Number]; !ok {
			return ErrMatchNotFound
		}
	}
	for _, m := range matches {
		stored := byNumber[m.Number]
		c := m.Clone()
		c.ID = stored.ID
		c.CreatedAt = stored.CreatedAt
		c.ScheduledTime = stored.ScheduledTime
		c.WinnerTo, c.LoserTo = stored.WinnerTo, stored.LoserTo
		r.s.matches[c.ID] = c
	}
	return nil
}

func (r memoryBracket) UpdateMatch(_ context.Context, id int, patch MatchPatch) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if patch.Status != nil {
		m.Status = *patch.Status
	}
	switch {
	case patch.ClearSchedule:
		m.ScheduledTime = nil
	case patch.ScheduledTime != nil:
		t := *patch.ScheduledTime
		m.ScheduledTime = &t
	}
	return m.Clone(), nil
}

func (r memoryBracket) GetBracketSettings(_ context.Context) (*models.BracketSettings, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if r.s.settings == nil {
		return nil, ErrBracketSettingsNotFound
	}
	s := *r.s.settings
	return &s, nil
}

func (r memoryBracket) SaveBracketSettings(_ context.Context, settings models.BracketSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.settings = &settings
	return nil
}

type memoryRegistration struct{ s *MemoryStore }

func (r memoryRegistration) Get(_ context.Context) (*models.RegistrationSettings, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c := *r.s.registration
	return &c, nil
}

func (r memoryRegistration) Save(_ context.Context, settings *models.RegistrationSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	settings.UpdatedAt = r.s.now()
	c := *settings
	r.s.registration = &c
	return nil
}

type memoryAdmins struct{ s *MemoryStore }

func (r memoryAdmins) Create(_ context.Context, a *models.AdminUser) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.admins[a.Username]; exists {
		return ErrAdminUsernameConflict
	}
	r.s.nextAdminID++
	a.ID = r.s.nextAdminID
	c := *a
	r.s.admins[a.Username] = &c
	return nil
}

func (r memoryAdmins) GetByUsername(_ context.Context, username string) (*models.AdminUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.admins[username]
	if !ok {
		return nil, ErrAdminNotFound
	}
	c := *a
	return &c, nil
}

func (r memoryAdmins) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.admins), nil
}
