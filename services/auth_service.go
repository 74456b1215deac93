package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Dosada05/team-registration/models"
	"github.com/Dosada05/team-registration/repositories"
)

const minPasswordLength = 8

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateAdminInput struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	IsSuperadmin bool   `json:"is_superadmin"`
}

type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*models.AdminUser, error)
	CreateAdmin(ctx context.Context, input CreateAdminInput) (*models.AdminUser, error)
	// EnsureAdmin creates a superadmin when no admin exists yet.
	EnsureAdmin(ctx context.Context, username, password string) (bool, error)
}

type authService struct {
	adminRepo repositories.AdminRepository
	logger    *slog.Logger
	cost      int
}

func NewAuthService(adminRepo repositories.AdminRepository, logger *slog.Logger) AuthService {
	return &authService{
		adminRepo: adminRepo,
		logger:    logger,
		cost:      bcrypt.DefaultCost,
	}
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.AdminUser, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, repositories.ErrAdminNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find admin by username: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	admin.PasswordHash = ""
	return admin, nil
}

func (s *authService) CreateAdmin(ctx context.Context, input CreateAdminInput) (*models.AdminUser, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: at least %d characters", ErrPasswordTooShort, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	admin := &models.AdminUser{
		Username:     username,
		PasswordHash: string(hash),
		IsSuperadmin: input.IsSuperadmin,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repositories.ErrAdminUsernameConflict) {
			return nil, ErrAdminNameTaken
		}
		return nil, fmt.Errorf("ошибка создания администратора: %w", err)
	}

	admin.PasswordHash = ""
	s.logger.InfoContext(ctx, "admin created", slog.String("username", username), slog.Bool("superadmin", admin.IsSuperadmin))
	return admin, nil
}

func (s *authService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	n, err := s.adminRepo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count admins: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.CreateAdmin(ctx, CreateAdminInput{Username: username, Password: password, IsSuperadmin: true}); err != nil {
		return false, err
	}
	return true, nil
}
