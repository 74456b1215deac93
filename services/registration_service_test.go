package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/team-registration/metrics"
	"github.com/Dosada05/team-registration/repositories"
)

func newTestRegistrationService(t *testing.T, now *time.Time) (*registrationService, *repositories.MemoryStore) {
	t.Helper()
	store := repositories.NewMemoryStore()
	svc := NewRegistrationService(store.Registration(), metrics.NewRecorder(), discardLogger()).(*registrationService)
	svc.now = func() time.Time { return *now }
	return svc, store
}

func TestRegistrationUpdate(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc, _ := newTestRegistrationService(t, &now)
	ctx := context.Background()

	open, err := svc.IsOpen(ctx)
	require.NoError(t, err)
	assert.True(t, open)

	past := now.Add(-time.Hour)
	_, err = svc.Update(ctx, UpdateRegistrationInput{ClosesAt: &past}, "root")
	assert.ErrorIs(t, err, ErrInvalidRegistrationAt)

	closed := false
	settings, err := svc.Update(ctx, UpdateRegistrationInput{IsOpen: &closed}, "root")
	require.NoError(t, err)
	assert.False(t, settings.IsOpen)
	assert.Equal(t, "root", settings.UpdatedBy)

	open, err = svc.IsOpen(ctx)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestRegistrationDeadline(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc, store := newTestRegistrationService(t, &now)
	ctx := context.Background()

	deadline := now.Add(2 * time.Hour)
	_, err := svc.Update(ctx, UpdateRegistrationInput{ClosesAt: &deadline}, "root")
	require.NoError(t, err)

	changed, err := svc.CloseIfDeadlinePassed(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	now = now.Add(3 * time.Hour)

	open, err := svc.IsOpen(ctx)
	require.NoError(t, err)
	assert.False(t, open, "deadline applies before the scheduler runs")

	changed, err = svc.CloseIfDeadlinePassed(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	stored, err := store.Registration().Get(ctx)
	require.NoError(t, err)
	assert.False(t, stored.IsOpen)
	assert.Equal(t, "scheduler", stored.UpdatedBy)

	changed, err = svc.CloseIfDeadlinePassed(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	reopen := true
	settings, err := svc.Update(ctx, UpdateRegistrationInput{IsOpen: &reopen, ClearDeadline: true}, "root")
	require.NoError(t, err)
	assert.True(t, settings.IsOpen)
	assert.Nil(t, settings.ClosesAt)
}

func TestApplyDefaultDeadline(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc, _ := newTestRegistrationService(t, &now)
	ctx := context.Background()

	first := now.Add(24 * time.Hour)
	require.NoError(t, svc.ApplyDefaultDeadline(ctx, first))
	require.NoError(t, svc.ApplyDefaultDeadline(ctx, now.Add(48*time.Hour)))

	settings, err := svc.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, settings.ClosesAt)
	assert.True(t, first.Equal(*settings.ClosesAt))
}

func TestStartScheduler(t *testing.T) {
	now := time.Now()
	svc, _ := newTestRegistrationService(t, &now)

	_, err := svc.StartScheduler("not a schedule")
	assert.Error(t, err)

	stop, err := svc.StartScheduler("@every 1h")
	require.NoError(t, err)
	stop()
}
