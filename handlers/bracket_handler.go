package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Dosada05/team-registration/brackets"
	"github.com/Dosada05/team-registration/models"
	"github.com/Dosada05/team-registration/repositories"
	"github.com/Dosada05/team-registration/services"
)

type BracketHandler struct {
	bracketService services.BracketService
}

func NewBracketHandler(bs services.BracketService) *BracketHandler {
	return &BracketHandler{bracketService: bs}
}

type generateBracketRequest struct {
	Settings *models.BracketSettings `json:"settings"`
}

type previewBracketRequest struct {
	TeamCount int                     `json:"team_count"`
	Settings  *models.BracketSettings `json:"settings"`
}

type swapMatchesRequest struct {
	MatchA int `json:"match_a"`
	MatchB int `json:"match_b"`
}

type recordResultRequest struct {
	Score1 *int `json:"score1"`
	Score2 *int `json:"score2"`
}

type updateMatchRequest struct {
	Status        *models.MatchStatus `json:"status"`
	ScheduledTime *time.Time          `json:"scheduled_time"`
	ClearSchedule bool                `json:"clear_schedule"`
}

// GetBracket godoc
// @Summary Текущая сетка турнира
// @Tags bracket
// @Produce json
// @Success 200 {object} services.BracketView
// @Router /bracket [get]
func (h *BracketHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	view, err := h.bracketService.GetBracket(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Estimate godoc
// @Summary Оценка количества матчей
// @Tags bracket
// @Produce json
// @Param teams query int false "Количество команд (по умолчанию одобренные команды)"
// @Param bracket_type query string false "single или double"
// @Param upper_rounds query int false "Раунды верхней сетки (отключает автоподсчет)"
// @Param lower_rounds query int false "Раунды нижней сетки"
// @Param has_grand_final query bool false "Гранд-финал"
// @Success 200 {object} services.MatchCountEstimate
// @Failure 422 {object} map[string]interface{}
// @Router /bracket/estimate [get]
func (h *BracketHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	settings, teamCount, problems := parseEstimateQuery(r)
	if len(problems) > 0 {
		failedValidationResponse(w, r, problems)
		return
	}

	est, err := h.bracketService.Estimate(r.Context(), teamCount, settings)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"estimate": est}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func parseEstimateQuery(r *http.Request) (models.BracketSettings, *int, map[string]string) {
	q := r.URL.Query()
	settings := models.DefaultBracketSettings()
	problems := make(map[string]string)

	intParam := func(name string) (int, bool) {
		raw := q.Get(name)
		if raw == "" {
			return 0, false
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			problems[name] = "must be a non-negative integer"
			return 0, false
		}
		return n, true
	}

	var teamCount *int
	if n, ok := intParam("teams"); ok {
		teamCount = &n
	}
	if typ := q.Get("bracket_type"); typ != "" {
		settings.BracketType = models.EliminationType(typ)
	}
	if n, ok := intParam("upper_rounds"); ok {
		settings.AutoCalculate = false
		settings.UpperRounds = n
	}
	lower, hasLower := intParam("lower_rounds")
	if hasLower {
		settings.LowerRounds = lower
	}
	hasFinal := false
	if raw := q.Get("has_grand_final"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			problems["has_grand_final"] = "must be a boolean"
		}
		settings.HasGrandFinal = v
		hasFinal = err == nil
	}

	switch {
	case settings.BracketType == models.EliminationSingle:
		settings.HasGrandFinal = false
		settings.LowerRounds = 0
	case !settings.AutoCalculate:
		// Без явных значений нижняя сетка полная, а гранд-финал есть только при ней.
		if !hasLower && settings.UpperRounds > 0 {
			settings.LowerRounds = brackets.LowerDepth(settings.UpperRounds)
		}
		if !hasFinal {
			settings.HasGrandFinal = settings.LowerRounds > 0
		}
	}
	return settings, teamCount, problems
}

func (h *BracketHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var input previewBracketRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	settings := models.DefaultBracketSettings()
	if input.Settings != nil {
		settings = *input.Settings
	}

	preview, err := h.bracketService.BuildBracket(input.TeamCount, settings)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"preview": preview}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Generate godoc
// @Summary Сгенерировать сетку из одобренных команд
// @Tags bracket
// @Accept json
// @Produce json
// @Param body body generateBracketRequest false "Настройки сетки"
// @Success 201 {object} services.BracketView
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 422 {object} map[string]string "Недопустимые настройки или мало команд"
// @Security BearerAuth
// @Router /bracket [post]
func (h *BracketHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var input generateBracketRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}
	settings := models.DefaultBracketSettings()
	if input.Settings != nil {
		settings = *input.Settings
	}

	view, err := h.bracketService.GenerateBracket(r.Context(), settings)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.bracketService.ClearBracket(r.Context()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BracketHandler) Shuffle(w http.ResponseWriter, r *http.Request) {
	view, err := h.bracketService.ShuffleAndRegenerate(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) Swap(w http.ResponseWriter, r *http.Request) {
	var input swapMatchesRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.MatchA <= 0 || input.MatchB <= 0 {
		badRequestResponse(w, r, errors.New("match_a and match_b are required"))
		return
	}

	out, err := h.bracketService.SwapMatches(r.Context(), input.MatchA, input.MatchB)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": out}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecordResult godoc
// @Summary Записать счет матча
// @Tags matches
// @Description Исправление результата сбрасывает все зависящие от него матчи.
// @Accept json
// @Produce json
// @Param matchID path int true "ID матча"
// @Param body body recordResultRequest true "Счет"
// @Success 200 {object} services.ResultOutcome
// @Failure 404 {object} map[string]string "Матч не найден"
// @Failure 409 {object} map[string]string "Матч не готов"
// @Failure 422 {object} map[string]string "Недопустимый счет"
// @Security BearerAuth
// @Router /matches/{matchID}/result [post]
func (h *BracketHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input recordResultRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Score1 == nil || input.Score2 == nil {
		badRequestResponse(w, r, errors.New("score1 and score2 are required"))
		return
	}

	out, err := h.bracketService.RecordResult(r.Context(), matchID, *input.Score1, *input.Score2)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": out}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input updateMatchRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	patch := repositories.MatchPatch{
		Status:        input.Status,
		ScheduledTime: input.ScheduledTime,
		ClearSchedule: input.ClearSchedule,
	}
	if patch.Empty() {
		badRequestResponse(w, r, errors.New("nothing to update"))
		return
	}

	m, err := h.bracketService.UpdateMatchDetails(r.Context(), matchID, patch)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": m}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
