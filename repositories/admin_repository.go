package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/team-registration/models"
)

var (
	ErrAdminNotFound         = errors.New("admin user not found")
	ErrAdminUsernameConflict = errors.New("admin username conflict")
)

type AdminRepository interface {
	Create(ctx context.Context, admin *models.AdminUser) error
	GetByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	Count(ctx context.Context) (int, error)
}

type postgresAdminRepository struct {
	db *sql.DB
}

func NewPostgresAdminRepository(db *sql.DB) AdminRepository {
	return &postgresAdminRepository{db: db}
}

func (r *postgresAdminRepository) Create(ctx context.Context, a *models.AdminUser) error {
	query := `
		INSERT INTO admin_users (username, password_hash, is_superadmin)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query, a.Username, a.PasswordHash, a.IsSuperadmin).Scan(&a.ID)
	if err != nil {
		if code, _ := pqErrorCode(err); code == pqUniqueViolation {
			return ErrAdminUsernameConflict
		}
		return err
	}
	return nil
}

func (r *postgresAdminRepository) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	query := `SELECT id, username, password_hash, is_superadmin FROM admin_users WHERE username = $1`

	a := &models.AdminUser{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.IsSuperadmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *postgresAdminRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&n)
	return n, err
}
