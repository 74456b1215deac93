package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/Dosada05/team-registration/models"
)

var (
	ErrTeamNotFound         = errors.New("team not found")
	ErrTeamAuthCodeConflict = errors.New("team auth code conflict")
	ErrTeamInBracket        = errors.New("team is placed in the bracket")
)

type ListTeamsFilter struct {
	Status *models.TeamStatus
}

// TeamUpdate carries the fields a captain may change. Nil fields stay as they are.
type TeamUpdate struct {
	Name            *string
	CaptainName     *string
	CaptainTelegram *string
	MembersInfo     *string
}

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	CreateBatch(ctx context.Context, teams []*models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	GetByAuthCode(ctx context.Context, code string) (*models.Team, error)
	List(ctx context.Context, filter ListTeamsFilter) ([]*models.Team, error)
	Update(ctx context.Context, id int, upd TeamUpdate) (*models.Team, error)
	// UpdateStatus fails with ErrTeamInBracket when a placed team would leave
	// the approved roster.
	UpdateStatus(ctx context.Context, id int, status models.TeamStatus, comment *string) (*models.Team, error)
	Delete(ctx context.Context, id int) error
	// DeleteAll removes every team together with the bracket that references them.
	DeleteAll(ctx context.Context) (int64, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

var teamColumnList = []string{
	"id", "team_name", "captain_name", "captain_telegram", "members_count", "members_info",
	"auth_code", "status", "admin_comment", "created_at",
}

var teamColumns = strings.Join(teamColumnList, ", ")

func scanTeam(row interface{ Scan(...interface{}) error }) (*models.Team, error) {
	t := &models.Team{}
	var comment sql.NullString
	err := row.Scan(&t.ID, &t.Name, &t.CaptainName, &t.CaptainTelegram, &t.MembersCount, &t.MembersInfo,
		&t.AuthCode, &t.Status, &comment, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if comment.Valid {
		t.AdminComment = &comment.String
	}
	return t, nil
}

func insertTeam(ctx context.Context, exec SQLExecutor, t *models.Team) error {
	query := `
		INSERT INTO teams (team_name, captain_name, captain_telegram, members_count, members_info, auth_code, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		t.Name, t.CaptainName, t.CaptainTelegram, t.MembersCount, t.MembersInfo, t.AuthCode, t.Status,
	).Scan(&t.ID, &t.CreatedAt)
	return handleTeamError(err)
}

func (r *postgresTeamRepository) Create(ctx context.Context, t *models.Team) error {
	return insertTeam(ctx, r.db, t)
}

func (r *postgresTeamRepository) CreateBatch(ctx context.Context, teams []*models.Team) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, t := range teams {
			if err := insertTeam(ctx, tx, t); err != nil {
				return fmt.Errorf("failed to insert team %q: %w", t.Name, err)
			}
		}
		return nil
	})
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	t, err := scanTeam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTeamRepository) GetByAuthCode(ctx context.Context, code string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE auth_code = $1`
	t, err := scanTeam(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTeamRepository) List(ctx context.Context, filter ListTeamsFilter) ([]*models.Team, error) {
	q := psql.Select(teamColumnList...).
		From("teams").
		OrderBy("created_at ASC", "id ASC")
	if filter.Status != nil {
		q = q.Where(sq.Eq{"status": *filter.Status})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build teams query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		t, scanErr := scanTeam(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) Update(ctx context.Context, id int, upd TeamUpdate) (*models.Team, error) {
	q := psql.Update("teams").Where(sq.Eq{"id": id}).Suffix("RETURNING " + teamColumns)
	changed := false
	if upd.Name != nil {
		q = q.Set("team_name", *upd.Name)
		changed = true
	}
	if upd.CaptainName != nil {
		q = q.Set("captain_name", *upd.CaptainName)
		changed = true
	}
	if upd.CaptainTelegram != nil {
		q = q.Set("captain_telegram", *upd.CaptainTelegram)
		changed = true
	}
	if upd.MembersInfo != nil {
		q = q.Set("members_info", *upd.MembersInfo).Set("members_count", models.CountMembers(*upd.MembersInfo))
		changed = true
	}
	if !changed {
		return r.GetByID(ctx, id)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build team update: %w", err)
	}
	t, err := scanTeam(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, handleTeamError(err)
	}
	return t, nil
}

// UpdateStatus refuses to take a team placed in the bracket out of the
// approved roster.
func (r *postgresTeamRepository) UpdateStatus(ctx context.Context, id int, status models.TeamStatus, comment *string) (*models.Team, error) {
	var t *models.Team
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if status != models.TeamStatusApproved {
			var placed bool
			err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM matches WHERE slot1_team_id = $1 OR slot2_team_id = $1)`, id,
			).Scan(&placed)
			if err != nil {
				return fmt.Errorf("failed to check bracket placement: %w", err)
			}
			if placed {
				return ErrTeamInBracket
			}
		}

		query := `UPDATE teams SET status = $1, admin_comment = $2 WHERE id = $3 RETURNING ` + teamColumns
		var err error
		t, err = scanTeam(tx.QueryRowContext(ctx, query, status, comment, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeamNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTeamRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return handleTeamError(err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM matches`); err != nil {
			return fmt.Errorf("failed to clear matches: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM teams`)
		if err != nil {
			return fmt.Errorf("failed to clear teams: %w", err)
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

func handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	switch code, constraint := pqErrorCode(err); code {
	case pqUniqueViolation:
		if constraint == "teams_auth_code_key" {
			return ErrTeamAuthCodeConflict
		}
	case pqForeignKeyViolation:
		return ErrTeamInBracket
	}
	return err
}
