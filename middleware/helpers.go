package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Dosada05/team-registration/models"
)

// Определяем константы для имен JWT claims
const (
	jwtClaimUserID   = "user_id"
	jwtClaimRole     = "role"
	jwtClaimUsername = "name"
)

// ClaimsForAdmin builds the token claims for a logged-in admin; exp and iat are
// added by the caller.
func ClaimsForAdmin(admin *models.AdminUser) jwt.MapClaims {
	return jwt.MapClaims{
		jwtClaimUserID:   admin.ID,
		jwtClaimRole:     string(admin.Role()),
		jwtClaimUsername: admin.Username,
	}
}

// WithClaims returns a context carrying claims, as Authenticate would set them.
func WithClaims(ctx context.Context, claims jwt.MapClaims) context.Context {
	return context.WithValue(ctx, userContextKey, claims)
}

func GetUserIDFromContext(ctx context.Context) (int, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return 0, errors.New("user claims not found in context or invalid type")
	}

	userIDClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}

	var userID int
	switch v := userIDClaim.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("'%s' claim is not an integer: %f", jwtClaimUserID, v)
		}
		userID = int(v)
	case int:
		userID = v
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid '%s' claim: %q", jwtClaimUserID, v)
		}
		userID = n
	default:
		return 0, fmt.Errorf("invalid type for '%s' claim: expected number or string, got %T", jwtClaimUserID, userIDClaim)
	}

	if userID <= 0 {
		return 0, fmt.Errorf("invalid user ID value in '%s' claim: %d", jwtClaimUserID, userID)
	}
	return userID, nil
}

func GetUserRoleFromContext(ctx context.Context) (models.AdminRole, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return "", errors.New("user claims not found in context or invalid type")
	}

	roleStr, ok := claims[jwtClaimRole].(string)
	if !ok {
		return "", fmt.Errorf("missing or invalid '%s' claim in token", jwtClaimRole)
	}

	role := models.AdminRole(roleStr)
	switch role {
	case models.RoleAdmin, models.RoleSuperadmin:
		return role, nil
	default:
		return "", fmt.Errorf("invalid role value in claim: %q", roleStr)
	}
}

// GetUsernameFromContext returns the admin name, or "" for anonymous requests.
func GetUsernameFromContext(ctx context.Context) string {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return ""
	}
	name, _ := claims[jwtClaimUsername].(string)
	return name
}

// IsAdmin reports whether the request carries a valid admin token.
func IsAdmin(ctx context.Context) bool {
	_, err := GetUserRoleFromContext(ctx)
	return err == nil
}
