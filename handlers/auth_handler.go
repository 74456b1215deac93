package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Dosada05/team-registration/middleware"
	"github.com/Dosada05/team-registration/services"
)

type AuthHandler struct {
	authService services.AuthService
	auth        *middleware.Authenticator
	tokenTTL    time.Duration
}

func NewAuthHandler(authService services.AuthService, auth *middleware.Authenticator, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		auth:        auth,
		tokenTTL:    tokenTTL,
	}
}

// Login godoc
// @Summary Вход администратора
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Логин и пароль"
// @Success 200 {object} map[string]interface{} "token, expires_at, admin"
// @Failure 401 {object} map[string]string "Неверный логин или пароль"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Username == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("username and password are required"))
		return
	}

	admin, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	now := time.Now()
	expiresAt := now.Add(h.tokenTTL)
	claims := middleware.ClaimsForAdmin(admin)
	claims["exp"] = expiresAt.Unix()
	claims["iat"] = now.Unix()

	tokenString, err := h.auth.IssueToken(claims)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	response := jsonResponse{
		"token":      tokenString,
		"expires_at": expiresAt.UTC(),
		"admin":      admin,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateAdmin is available to superadmins only.
func (h *AuthHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var input services.CreateAdminInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	admin, err := h.authService.CreateAdmin(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"admin": admin}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
