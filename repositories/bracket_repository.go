package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Dosada05/team-registration/models"
)

var (
	ErrMatchNotFound            = errors.New("match not found")
	ErrBracketSettingsNotFound  = errors.New("bracket settings not found")
	ErrMatchNumberConflict      = errors.New("match number conflict")
	ErrMatchTeamReferenceFailed = errors.New("match references a missing team")
)

// MatchPatch is a partial admin edit of a match. Nil fields stay as they are.
type MatchPatch struct {
	Status        *models.MatchStatus
	ScheduledTime *time.Time
	ClearSchedule bool
}

func (p MatchPatch) Empty() bool {
	return p.Status == nil && p.ScheduledTime == nil && !p.ClearSchedule
}

// BracketRepository stores the single tournament's bracket. ReplaceMatches,
// ReplaceBracket and UpdateMatches are all-or-nothing.
type BracketRepository interface {
	// ListTeams returns the approved roster in registration order.
	ListTeams(ctx context.Context) ([]*models.Team, error)
	ListMatches(ctx context.Context) ([]*models.Match, error)
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ReplaceMatches(ctx context.Context, matches []*models.Match) error
	// ReplaceBracket stores the settings a bracket was generated with together
	// with its matches.
	ReplaceBracket(ctx context.Context, settings models.BracketSettings, matches []*models.Match) error
	UpdateMatch(ctx context.Context, id int, patch MatchPatch) (*models.Match, error)
	UpdateMatches(ctx context.Context, matches []*models.Match) error
	GetBracketSettings(ctx context.Context) (*models.BracketSettings, error)
	SaveBracketSettings(ctx context.Context, settings models.BracketSettings) error
}

type postgresBracketRepository struct {
	db    *sql.DB
	teams TeamRepository
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db, teams: NewPostgresTeamRepository(db)}
}

var matchColumns = []string{
	"id", "match_number", "bracket_type", "round_number",
	"slot1_kind", "slot1_ref", "slot1_team_id", "slot1_resolved", "slot1_label",
	"slot2_kind", "slot2_ref", "slot2_team_id", "slot2_resolved", "slot2_label",
	"score1", "score2", "winner_slot", "status", "is_bye", "scheduled_time",
	"winner_to_match", "winner_to_slot", "loser_to_match", "loser_to_slot", "created_at",
}

type slotColumns struct {
	kind     string
	ref      sql.NullInt64
	teamID   sql.NullInt64
	resolved bool
	label    string
}

func (c slotColumns) slot() models.Slot {
	s := models.Slot{
		Kind:     models.SlotKind(c.kind),
		TeamID:   intPtr(c.teamID),
		Resolved: c.resolved,
		Label:    c.label,
	}
	if c.ref.Valid {
		s.Ref = int(c.ref.Int64)
	}
	return s
}

func slotValues(s models.Slot) []interface{} {
	var ref sql.NullInt64
	if s.Kind != models.SlotBye {
		ref = sql.NullInt64{Int64: int64(s.Ref), Valid: true}
	}
	return []interface{}{string(s.Kind), ref, nullInt(s.TeamID), s.Resolved, s.Label}
}

func target(match, slot sql.NullInt64) *models.SlotTarget {
	if !match.Valid || !slot.Valid {
		return nil
	}
	return &models.SlotTarget{MatchNumber: int(match.Int64), Slot: int(slot.Int64)}
}

func targetValues(t *models.SlotTarget) []interface{} {
	if t == nil {
		return []interface{}{nil, nil}
	}
	return []interface{}{t.MatchNumber, t.Slot}
}

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	var (
		s1, s2                 slotColumns
		score1, score2, winner sql.NullInt64
		scheduled              sql.NullTime
		winMatch, winSlot      sql.NullInt64
		loseMatch, loseSlot    sql.NullInt64
	)
	err := row.Scan(
		&m.ID, &m.Number, &m.BracketType, &m.Round,
		&s1.kind, &s1.ref, &s1.teamID, &s1.resolved, &s1.label,
		&s2.kind, &s2.ref, &s2.teamID, &s2.resolved, &s2.label,
		&score1, &score2, &winner, &m.Status, &m.IsBye, &scheduled,
		&winMatch, &winSlot, &loseMatch, &loseSlot, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Slot1 = s1.slot()
	m.Slot2 = s2.slot()
	m.Score1 = intPtr(score1)
	m.Score2 = intPtr(score2)
	m.WinnerSlot = intPtr(winner)
	if scheduled.Valid {
		t := scheduled.Time
		m.ScheduledTime = &t
	}
	m.WinnerTo = target(winMatch, winSlot)
	m.LoserTo = target(loseMatch, loseSlot)
	return m, nil
}

func (r *postgresBracketRepository) ListTeams(ctx context.Context) ([]*models.Team, error) {
	approved := models.TeamStatusApproved
	return r.teams.List(ctx, ListTeamsFilter{Status: &approved})
}

func (r *postgresBracketRepository) ListMatches(ctx context.Context) ([]*models.Match, error) {
	return listMatches(ctx, r.db)
}

func listMatches(ctx context.Context, exec SQLExecutor) ([]*models.Match, error) {
	query, args, err := psql.Select(matchColumns...).From("matches").OrderBy("match_number ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build matches query: %w", err)
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresBracketRepository) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	query, args, err := psql.Select(matchColumns...).From("matches").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build match query: %w", err)
	}
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

// ReplaceMatches deletes the current bracket and inserts matches in one
// transaction, filling in the generated ids.
func (r *postgresBracketRepository) ReplaceMatches(ctx context.Context, matches []*models.Match) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return replaceMatches(ctx, tx, matches)
	})
}

func (r *postgresBracketRepository) ReplaceBracket(ctx context.Context, settings models.BracketSettings, matches []*models.Match) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := saveBracketSettings(ctx, tx, settings); err != nil {
			return fmt.Errorf("failed to save bracket settings: %w", err)
		}
		return replaceMatches(ctx, tx, matches)
	})
}

func replaceMatches(ctx context.Context, tx *sql.Tx, matches []*models.Match) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM matches`); err != nil {
		return fmt.Errorf("failed to delete matches: %w", err)
	}
	if len(matches) == 0 {
		return nil
	}

	insert := psql.Insert("matches").Columns(matchColumns[1:len(matchColumns)-1]...)
	for _, m := range matches {
		values := []interface{}{m.Number, m.BracketType, m.Round}
		values = append(values, slotValues(m.Slot1)...)
		values = append(values, slotValues(m.Slot2)...)
		values = append(values, nullInt(m.Score1), nullInt(m.Score2), nullInt(m.WinnerSlot),
			m.Status, m.IsBye, m.ScheduledTime)
		values = append(values, targetValues(m.WinnerTo)...)
		values = append(values, targetValues(m.LoserTo)...)
		insert = insert.Values(values...)
	}

	query, args, err := insert.Suffix("RETURNING id, match_number, created_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build match insert: %w", err)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return handleMatchError(err)
	}
	defer rows.Close()

	byNumber := make(map[int]*models.Match, len(matches))
	for _, m := range matches {
		byNumber[m.Number] = m
	}
	for rows.Next() {
		var (
			id, number int
			createdAt  time.Time
		)
		if err := rows.Scan(&id, &number, &createdAt); err != nil {
			return err
		}
		if m, ok := byNumber[number]; ok {
			m.ID = id
			m.CreatedAt = createdAt
		}
	}
	return rows.Err()
}

// UpdateMatches writes slots, results and status of each match, keyed by
// match number, in one transaction.
func (r *postgresBracketRepository) UpdateMatches(ctx context.Context, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, m := range matches {
			s1 := slotValues(m.Slot1)
			s2 := slotValues(m.Slot2)
			query, args, err := psql.Update("matches").
				SetMap(map[string]interface{}{
					"slot1_kind": s1[0], "slot1_ref": s1[1], "slot1_team_id": s1[2], "slot1_resolved": s1[3], "slot1_label": s1[4],
					"slot2_kind": s2[0], "slot2_ref": s2[1], "slot2_team_id": s2[2], "slot2_resolved": s2[3], "slot2_label": s2[4],
					"score1":      nullInt(m.Score1),
					"score2":      nullInt(m.Score2),
					"winner_slot": nullInt(m.WinnerSlot),
					"status":      m.Status,
					"is_bye":      m.IsBye,
				}).
				Where(sq.Eq{"match_number": m.Number}).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build update for match %d: %w", m.Number, err)
			}
			result, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return handleMatchError(err)
			}
			if err := checkAffectedRows(result, fmt.Errorf("%w: number %d", ErrMatchNotFound, m.Number)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *postgresBracketRepository) UpdateMatch(ctx context.Context, id int, patch MatchPatch) (*models.Match, error) {
	if patch.Empty() {
		return r.GetMatch(ctx, id)
	}

	q := psql.Update("matches").Where(sq.Eq{"id": id})
	if patch.Status != nil {
		q = q.Set("status", *patch.Status)
	}
	switch {
	case patch.ClearSchedule:
		q = q.Set("scheduled_time", nil)
	case patch.ScheduledTime != nil:
		q = q.Set("scheduled_time", *patch.ScheduledTime)
	}

	query, args, err := q.Suffix("RETURNING " + strings.Join(matchColumns, ", ")).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build match patch: %w", err)
	}
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresBracketRepository) GetBracketSettings(ctx context.Context) (*models.BracketSettings, error) {
	query := `
		SELECT bracket_type, auto_calculate, upper_rounds, lower_rounds, has_grand_final
		FROM bracket_settings
		WHERE id = 1`

	s := &models.BracketSettings{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.BracketType, &s.AutoCalculate, &s.UpperRounds, &s.LowerRounds, &s.HasGrandFinal,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketSettingsNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *postgresBracketRepository) SaveBracketSettings(ctx context.Context, s models.BracketSettings) error {
	return saveBracketSettings(ctx, r.db, s)
}

func saveBracketSettings(ctx context.Context, exec SQLExecutor, s models.BracketSettings) error {
	query := `
		INSERT INTO bracket_settings (id, bracket_type, auto_calculate, upper_rounds, lower_rounds, has_grand_final, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			bracket_type = EXCLUDED.bracket_type,
			auto_calculate = EXCLUDED.auto_calculate,
			upper_rounds = EXCLUDED.upper_rounds,
			lower_rounds = EXCLUDED.lower_rounds,
			has_grand_final = EXCLUDED.has_grand_final,
			updated_at = EXCLUDED.updated_at`

	_, err := exec.ExecContext(ctx, query, s.BracketType, s.AutoCalculate, s.UpperRounds, s.LowerRounds, s.HasGrandFinal)
	return err
}

func handleMatchError(err error) error {
	switch code, _ := pqErrorCode(err); code {
	case pqUniqueViolation:
		return ErrMatchNumberConflict
	case pqForeignKeyViolation:
		return ErrMatchTeamReferenceFailed
	}
	return err
}
