package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dosada05/team-registration/models"
	"github.com/Dosada05/team-registration/repositories"
)

func newTestAuthService(t *testing.T) (AuthService, *repositories.MemoryStore) {
	t.Helper()
	store := repositories.NewMemoryStore()
	svc := NewAuthService(store.Admins(), discardLogger())
	svc.(*authService).cost = bcrypt.MinCost
	return svc, store
}

func TestEnsureAdminAndLogin(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "root", "correct horse")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "other", "battery staple")
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := svc.Login(ctx, LoginInput{Username: " root ", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperadmin, admin.Role())
	assert.Empty(t, admin.PasswordHash)

	_, err = svc.Login(ctx, LoginInput{Username: "root", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginInput{Username: "nobody", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureAdminSkipsWithoutCredentials(t *testing.T) {
	svc, store := newTestAuthService(t)

	created, err := svc.EnsureAdmin(context.Background(), "", "")
	require.NoError(t, err)
	assert.False(t, created)

	n, err := store.Admins().Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateAdmin(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, CreateAdminInput{Username: "mod", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	_, err = svc.CreateAdmin(ctx, CreateAdminInput{Username: " ", Password: "long enough"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	admin, err := svc.CreateAdmin(ctx, CreateAdminInput{Username: "mod", Password: "long enough"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role())

	_, err = svc.CreateAdmin(ctx, CreateAdminInput{Username: "mod", Password: "long enough"})
	assert.ErrorIs(t, err, ErrAdminNameTaken)
}
