package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/team-registration/models"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := NewAuthenticator(secret).IssueToken(claims)
	require.NoError(t, err)
	return token
}

func adminClaims(exp time.Time) jwt.MapClaims {
	claims := ClaimsForAdmin(&models.AdminUser{ID: 7, Username: "root", IsSuperadmin: true})
	claims["exp"] = exp.Unix()
	return claims
}

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetUserIDFromContext(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		assert.Equal(t, 7, id)
		assert.Equal(t, "root", GetUsernameFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	auth := NewAuthenticator(testSecret)
	handler := auth.Authenticate(echoUser(t))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signedToken(t, "other", adminClaims(time.Now().Add(time.Hour))), http.StatusUnauthorized},
		{"expired", "Bearer " + signedToken(t, testSecret, adminClaims(time.Now().Add(-time.Hour))), http.StatusUnauthorized},
		{"valid", "Bearer " + signedToken(t, testSecret, adminClaims(time.Now().Add(time.Hour))), http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestOptionalAuthenticate(t *testing.T) {
	auth := NewAuthenticator(testSecret)
	handler := auth.OptionalAuthenticate(echoUser(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer broken")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, testSecret, adminClaims(time.Now().Add(time.Hour))))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthorize(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	onlySuper := Authorize(models.RoleSuperadmin)(ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	onlySuper.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	admin := ClaimsForAdmin(&models.AdminUser{ID: 2, Username: "mod"})
	req = req.WithContext(WithClaims(req.Context(), admin))
	rec = httptest.NewRecorder()
	onlySuper.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	Authorize(models.RoleAdmin, models.RoleSuperadmin)(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, IsAdmin(req.Context()))
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2, nil)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/teams", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, send("10.0.0.1:1111"))
	assert.Equal(t, http.StatusCreated, send("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:3333"))
	assert.Equal(t, http.StatusCreated, send("10.0.0.2:1111"))

	now := time.Now()
	limiter.now = func() time.Time { return now.Add(time.Hour) }
	assert.Equal(t, 2, limiter.Cleanup())
}
