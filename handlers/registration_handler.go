package handlers

import (
	"net/http"

	"github.com/Dosada05/team-registration/middleware"
	"github.com/Dosada05/team-registration/services"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(rs services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: rs}
}

func (h *RegistrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.registrationService.Get(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": settings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Update godoc
// @Summary Открыть или закрыть регистрацию
// @Tags registration
// @Accept json
// @Produce json
// @Param body body services.UpdateRegistrationInput true "is_open, closes_at, clear_deadline"
// @Success 200 {object} models.RegistrationSettings
// @Failure 400 {object} map[string]string "Дедлайн в прошлом"
// @Security BearerAuth
// @Router /registration [put]
func (h *RegistrationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input services.UpdateRegistrationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	settings, err := h.registrationService.Update(r.Context(), input, middleware.GetUsernameFromContext(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": settings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
