package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Dosada05/team-registration/metrics"
	"github.com/Dosada05/team-registration/models"
	"github.com/Dosada05/team-registration/repositories"
)

type UpdateRegistrationInput struct {
	IsOpen        *bool      `json:"is_open"`
	ClosesAt      *time.Time `json:"closes_at"`
	ClearDeadline bool       `json:"clear_deadline"`
}

type RegistrationService interface {
	Get(ctx context.Context) (*models.RegistrationSettings, error)
	IsOpen(ctx context.Context) (bool, error)
	Update(ctx context.Context, input UpdateRegistrationInput, updatedBy string) (*models.RegistrationSettings, error)
	// ApplyDefaultDeadline stores deadline unless one is already configured.
	ApplyDefaultDeadline(ctx context.Context, deadline time.Time) error
	CloseIfDeadlinePassed(ctx context.Context) (bool, error)
	StartScheduler(spec string) (stop func(), err error)
}

type registrationService struct {
	repo     repositories.RegistrationRepository
	recorder *metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewRegistrationService(repo repositories.RegistrationRepository, recorder *metrics.Recorder, logger *slog.Logger) RegistrationService {
	return &registrationService{repo: repo, recorder: recorder, logger: logger, now: time.Now}
}

// Get returns the stored settings with a passed deadline already applied.
func (s *registrationService) Get(ctx context.Context) (*models.RegistrationSettings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load registration settings: %w", err)
	}
	if settings.IsOpen && s.deadlinePassed(settings) {
		settings.IsOpen = false
	}
	return settings, nil
}

func (s *registrationService) IsOpen(ctx context.Context) (bool, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return settings.IsOpen, nil
}

func (s *registrationService) Update(ctx context.Context, input UpdateRegistrationInput, updatedBy string) (*models.RegistrationSettings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load registration settings: %w", err)
	}

	if input.IsOpen != nil {
		settings.IsOpen = *input.IsOpen
	}
	switch {
	case input.ClearDeadline:
		settings.ClosesAt = nil
	case input.ClosesAt != nil:
		if !input.ClosesAt.After(s.now()) {
			return nil, ErrInvalidRegistrationAt
		}
		t := input.ClosesAt.UTC()
		settings.ClosesAt = &t
	}
	settings.UpdatedBy = updatedBy

	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save registration settings: %w", err)
	}
	s.recorder.RegistrationOpen(settings.IsOpen)
	s.logger.InfoContext(ctx, "registration settings updated",
		slog.Bool("is_open", settings.IsOpen),
		slog.String("updated_by", updatedBy),
	)
	return settings, nil
}

func (s *registrationService) ApplyDefaultDeadline(ctx context.Context, deadline time.Time) error {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load registration settings: %w", err)
	}
	if settings.ClosesAt != nil {
		return nil
	}
	t := deadline.UTC()
	settings.ClosesAt = &t
	settings.UpdatedBy = "config"
	if err := s.repo.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save registration deadline: %w", err)
	}
	return nil
}

// CloseIfDeadlinePassed persists the closure once the deadline is reached.
func (s *registrationService) CloseIfDeadlinePassed(ctx context.Context) (bool, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load registration settings: %w", err)
	}
	s.recorder.RegistrationOpen(settings.IsOpen && !s.deadlinePassed(settings))
	if !settings.IsOpen || !s.deadlinePassed(settings) {
		return false, nil
	}

	settings.IsOpen = false
	settings.UpdatedBy = "scheduler"
	if err := s.repo.Save(ctx, settings); err != nil {
		return false, fmt.Errorf("failed to close registration: %w", err)
	}
	s.logger.InfoContext(ctx, "registration closed by deadline", slog.Time("closes_at", *settings.ClosesAt))
	return true, nil
}

func (s *registrationService) StartScheduler(spec string) (func(), error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.CloseIfDeadlinePassed(ctx); err != nil {
			s.logger.Error("Scheduler: registration deadline check failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid registration check schedule %q: %w", spec, err)
	}
	c.Start()
	s.logger.Info("registration deadline scheduler started", slog.String("spec", spec))

	return func() {
		<-c.Stop().Done()
	}, nil
}

func (s *registrationService) deadlinePassed(settings *models.RegistrationSettings) bool {
	return settings.ClosesAt != nil && !s.now().Before(*settings.ClosesAt)
}
