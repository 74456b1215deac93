package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/team-registration/models"
)

var ErrRegistrationSettingsNotFound = errors.New("registration settings not found")

type RegistrationRepository interface {
	Get(ctx context.Context) (*models.RegistrationSettings, error)
	Save(ctx context.Context, settings *models.RegistrationSettings) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) Get(ctx context.Context) (*models.RegistrationSettings, error) {
	query := `SELECT is_open, closes_at, updated_by, updated_at FROM registration_settings WHERE id = 1`

	s := &models.RegistrationSettings{}
	var closesAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query).Scan(&s.IsOpen, &closesAt, &s.UpdatedBy, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationSettingsNotFound
		}
		return nil, err
	}
	if closesAt.Valid {
		t := closesAt.Time
		s.ClosesAt = &t
	}
	return s, nil
}

func (r *postgresRegistrationRepository) Save(ctx context.Context, s *models.RegistrationSettings) error {
	query := `
		INSERT INTO registration_settings (id, is_open, closes_at, updated_by, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			is_open = EXCLUDED.is_open,
			closes_at = EXCLUDED.closes_at,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at`

	return r.db.QueryRowContext(ctx, query, s.IsOpen, s.ClosesAt, s.UpdatedBy).Scan(&s.UpdatedAt)
}
