package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/team-registration/middleware"
	"github.com/Dosada05/team-registration/models"
	"github.com/Dosada05/team-registration/services"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(ts services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: ts}
}

type bulkCreateRequest struct {
	TeamNames []string `json:"team_names"`
}

// Register godoc
// @Summary Зарегистрировать команду
// @Tags teams
// @Description Создает заявку команды и возвращает код для редактирования (REG-XXXX-XXXX).
// @Accept json
// @Produce json
// @Param body body services.RegisterTeamInput true "Данные команды"
// @Success 201 {object} map[string]interface{} "Команда и код"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 403 {object} map[string]string "Регистрация закрыта"
// @Failure 429 {object} map[string]string "Слишком много запросов"
// @Router /teams [post]
func (h *TeamHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"team": team, "auth_code": team.AuthCode}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary Список команд
// @Tags teams
// @Description Без токена администратора возвращает только одобренные команды.
// @Produce json
// @Param status query string false "pending, approved или rejected (только для администраторов)"
// @Success 200 {object} map[string]interface{}
// @Router /teams [get]
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	admin := middleware.IsAdmin(r.Context())

	var status *models.TeamStatus
	if raw := r.URL.Query().Get("status"); raw != "" && admin {
		s := models.TeamStatus(raw)
		status = &s
	}

	teams, err := h.teamService.List(r.Context(), status, admin)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams, "total": len(teams)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	team, err := h.teamService.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) UpdateByCode(w http.ResponseWriter, r *http.Request) {
	var input services.UpdateTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.UpdateByCode(r.Context(), chi.URLParam(r, "code"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) DeleteByCode(w http.ResponseWriter, r *http.Request) {
	if err := h.teamService.DeleteByCode(r.Context(), chi.URLParam(r, "code")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetStatus godoc
// @Summary Модерация заявки
// @Tags teams
// @Accept json
// @Produce json
// @Param teamID path int true "ID команды"
// @Param body body services.SetTeamStatusInput true "Новый статус и комментарий"
// @Success 200 {object} models.Team
// @Failure 400 {object} map[string]string "Недопустимый статус"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Security BearerAuth
// @Router /teams/{teamID}/status [patch]
func (h *TeamHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.SetTeamStatusInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.SetStatus(r.Context(), teamID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.teamService.Delete(r.Context(), teamID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TeamHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var input bulkCreateRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	teams, err := h.teamService.BulkCreate(r.Context(), input.TeamNames)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"teams": teams, "created": len(teams)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.teamService.ClearTeams(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"deleted": n}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Export отдает CSV целиком, чтобы ошибка не оборвала файл на середине.
func (h *TeamHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := h.teamService.ExportCSV(r.Context(), &buf); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	filename := fmt.Sprintf("teams_export_%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
