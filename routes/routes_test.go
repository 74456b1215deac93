package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/team-registration/handlers"
	"github.com/Dosada05/team-registration/metrics"
	"github.com/Dosada05/team-registration/middleware"
	"github.com/Dosada05/team-registration/repositories"
	"github.com/Dosada05/team-registration/services"
	"github.com/Dosada05/team-registration/storage"
)

type testAPI struct {
	server *httptest.Server
	token  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repositories.NewMemoryStore()
	recorder := metrics.NewRecorder()
	locker := services.NewMutexLocker()
	auth := middleware.NewAuthenticator("routes-test-secret")

	registrationService := services.NewRegistrationService(store.Registration(), recorder, logger)
	teamService := services.NewTeamService(store.Teams(), registrationService, locker, recorder, logger)
	bracketService := services.NewBracketService(store.Bracket(), locker, storage.NewMemoryUploader(""), recorder, logger)
	authService := services.NewAuthService(store.Admins(), logger)

	_, err := authService.EnsureAdmin(context.Background(), "root", "root-password")
	require.NoError(t, err)

	router := chi.NewRouter()
	SetupRoutes(router, Handlers{
		Auth:         handlers.NewAuthHandler(authService, auth, time.Hour),
		Teams:        handlers.NewTeamHandler(teamService),
		Registration: handlers.NewRegistrationHandler(registrationService),
		Bracket:      handlers.NewBracketHandler(bracketService),
		Health:       handlers.NewHealthHandler(nil),
	}, Options{
		AllowedOrigins: []string{"*"},
		Authenticator:  auth,
		Recorder:       recorder,
	})

	api := &testAPI{server: httptest.NewServer(router)}
	t.Cleanup(api.server.Close)

	var login struct {
		Token string `json:"token"`
	}
	api.do(t, http.MethodPost, "/auth/login", `{"username":"root","password":"root-password"}`, false, http.StatusOK, &login)
	require.NotEmpty(t, login.Token)
	api.token = login.Token
	return api
}

func (a *testAPI) do(t *testing.T, method, path, body string, admin bool, wantStatus int, dst interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, "%s %s: %s", method, path, raw)
	if dst != nil {
		require.NoError(t, json.Unmarshal(raw, dst))
	}
}

type matchJSON struct {
	ID     int    `json:"id"`
	Number int    `json:"match_number"`
	Status string `json:"status"`
}

func TestTournamentFlow(t *testing.T) {
	api := newTestAPI(t)

	api.do(t, http.MethodGet, "/healthz", "", false, http.StatusOK, nil)

	var created struct {
		AuthCode string `json:"auth_code"`
		Team     struct {
			ID int `json:"id"`
		} `json:"team"`
	}
	api.do(t, http.MethodPost, "/teams",
		`{"team_name":"Owls","captain_name":"Ann","captain_telegram":"@ann","members_info":"Ann\nBen"}`,
		false, http.StatusCreated, &created)
	require.Regexp(t, `^REG-[A-Z0-9]{4}-[A-Z0-9]{4}$`, created.AuthCode)

	api.do(t, http.MethodGet, "/teams/code/"+strings.ToLower(created.AuthCode), "", false, http.StatusOK, nil)
	api.do(t, http.MethodPut, "/teams/code/"+created.AuthCode, `{"team_name":"Night Owls"}`, false, http.StatusOK, nil)
	api.do(t, http.MethodGet, "/teams/code/REG-0000-0000", "", false, http.StatusNotFound, nil)

	var public struct {
		Teams []json.RawMessage `json:"teams"`
	}
	api.do(t, http.MethodGet, "/teams", "", false, http.StatusOK, &public)
	assert.Empty(t, public.Teams)

	api.do(t, http.MethodPatch, fmt.Sprintf("/teams/%d/status", created.Team.ID), `{"status":"approved"}`, false, http.StatusUnauthorized, nil)
	api.do(t, http.MethodPatch, fmt.Sprintf("/teams/%d/status", created.Team.ID), `{"status":"approved"}`, true, http.StatusOK, nil)
	api.do(t, http.MethodPost, "/teams/bulk", `{"team_names":["B","C","D"]}`, true, http.StatusCreated, nil)

	api.do(t, http.MethodGet, "/teams", "", false, http.StatusOK, &public)
	assert.Len(t, public.Teams, 4)
	assert.NotContains(t, string(public.Teams[0]), "auth_code")

	var estimate struct {
		Estimate struct {
			TeamCount  int `json:"team_count"`
			MatchCount int `json:"match_count"`
		} `json:"estimate"`
	}
	api.do(t, http.MethodGet, "/bracket/estimate", "", false, http.StatusOK, &estimate)
	assert.Equal(t, 4, estimate.Estimate.TeamCount)
	assert.Equal(t, 6, estimate.Estimate.MatchCount)

	api.do(t, http.MethodPost, "/bracket", "", false, http.StatusUnauthorized, nil)

	var generated struct {
		Bracket struct {
			Matches []matchJSON `json:"matches"`
		} `json:"bracket"`
	}
	api.do(t, http.MethodPost, "/bracket", `{"settings":{"bracket_type":"double","auto_calculate":true,"has_grand_final":true}}`, true, http.StatusCreated, &generated)
	require.Len(t, generated.Bracket.Matches, 6)

	ids := make(map[int]int)
	for _, m := range generated.Bracket.Matches {
		ids[m.Number] = m.ID
	}

	var problem struct {
		Code string `json:"code"`
	}
	api.do(t, http.MethodPost, fmt.Sprintf("/matches/%d/result", ids[1]), `{"score1":1,"score2":1}`, true, http.StatusUnprocessableEntity, &problem)
	assert.Equal(t, "tied_score_not_allowed", problem.Code)
	api.do(t, http.MethodPost, fmt.Sprintf("/matches/%d/result", ids[3]), `{"score1":1,"score2":0}`, true, http.StatusConflict, &problem)
	assert.Equal(t, "match_not_ready", problem.Code)
	api.do(t, http.MethodPost, fmt.Sprintf("/matches/%d/result", ids[1]), `{"score1":1}`, true, http.StatusBadRequest, nil)

	api.do(t, http.MethodPatch, fmt.Sprintf("/matches/%d", ids[1]), `{"status":"live","scheduled_time":"2026-06-01T18:00:00Z"}`, true, http.StatusOK, nil)
	api.do(t, http.MethodPost, "/bracket/swap", fmt.Sprintf(`{"match_a":%d,"match_b":%d}`, ids[1], ids[3]), true, http.StatusUnprocessableEntity, &problem)
	assert.Equal(t, "match_not_swappable", problem.Code)

	var result struct {
		Result struct {
			Updated []matchJSON `json:"updated_matches"`
		} `json:"result"`
	}
	api.do(t, http.MethodPost, fmt.Sprintf("/matches/%d/result", ids[1]), `{"score1":2,"score2":0}`, true, http.StatusOK, &result)
	assert.NotEmpty(t, result.Result.Updated)

	api.do(t, http.MethodDelete, fmt.Sprintf("/teams/%d", created.Team.ID), "", true, http.StatusConflict, nil)
	api.do(t, http.MethodDelete, "/bracket", "", true, http.StatusNoContent, nil)

	var view struct {
		Bracket struct {
			Matches []matchJSON `json:"matches"`
		} `json:"bracket"`
	}
	api.do(t, http.MethodGet, "/bracket", "", false, http.StatusOK, &view)
	assert.Empty(t, view.Bracket.Matches)
}

func TestRegistrationToggle(t *testing.T) {
	api := newTestAPI(t)

	api.do(t, http.MethodPut, "/registration", `{"is_open":false}`, false, http.StatusUnauthorized, nil)

	var reg struct {
		Registration struct {
			IsOpen    bool   `json:"is_open"`
			UpdatedBy string `json:"updated_by"`
		} `json:"registration"`
	}
	api.do(t, http.MethodPut, "/registration", `{"is_open":false}`, true, http.StatusOK, &reg)
	assert.False(t, reg.Registration.IsOpen)
	assert.Equal(t, "root", reg.Registration.UpdatedBy)

	api.do(t, http.MethodPost, "/teams",
		`{"team_name":"Late","captain_name":"Kim","captain_telegram":"@kim","members_info":"Kim"}`,
		false, http.StatusForbidden, nil)

	api.do(t, http.MethodPut, "/registration", `{"closes_at":"2000-01-01T00:00:00Z"}`, true, http.StatusBadRequest, nil)
}

func TestExportAndAdmins(t *testing.T) {
	api := newTestAPI(t)

	api.do(t, http.MethodPost, "/teams/bulk", `{"team_names":["Alpha","Beta"]}`, true, http.StatusCreated, nil)

	req, err := http.NewRequest(http.MethodGet, api.server.URL+"/teams/export", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+api.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "teams_export_")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "Team Name,Captain Name"))

	api.do(t, http.MethodPost, "/admins", `{"username":"mod","password":"mod-password"}`, true, http.StatusCreated, nil)
	api.do(t, http.MethodPost, "/admins", `{"username":"mod","password":"mod-password"}`, true, http.StatusConflict, nil)
	api.do(t, http.MethodPost, "/auth/login", `{"username":"mod","password":"wrong-pass"}`, false, http.StatusUnauthorized, nil)

	api.do(t, http.MethodDelete, "/teams", "", true, http.StatusOK, nil)
	api.do(t, http.MethodGet, "/metrics", "", false, http.StatusOK, nil)
}

func TestEstimateExplicitSettings(t *testing.T) {
	api := newTestAPI(t)

	type estimateBody struct {
		Estimate struct {
			TeamCount  int  `json:"team_count"`
			Estimated  int  `json:"estimated_matches"`
			MatchCount *int `json:"match_count"`
			Settings   struct {
				LowerRounds   int  `json:"lower_rounds"`
				HasGrandFinal bool `json:"has_grand_final"`
			} `json:"settings"`
		} `json:"estimate"`
	}

	var est estimateBody
	api.do(t, http.MethodGet, "/bracket/estimate?teams=8&upper_rounds=3", "", false, http.StatusOK, &est)
	assert.Equal(t, 4, est.Estimate.Settings.LowerRounds)
	assert.True(t, est.Estimate.Settings.HasGrandFinal)
	assert.Equal(t, 7+5+1, est.Estimate.Estimated)
	require.NotNil(t, est.Estimate.MatchCount)
	assert.Equal(t, 14, *est.Estimate.MatchCount)

	est = estimateBody{}
	api.do(t, http.MethodGet, "/bracket/estimate?bracket_type=single&upper_rounds=3", "", false, http.StatusOK, &est)
	assert.Equal(t, 7, est.Estimate.Estimated)
	assert.Nil(t, est.Estimate.MatchCount)

	est = estimateBody{}
	api.do(t, http.MethodGet, "/bracket/estimate?teams=8&upper_rounds=3&lower_rounds=3", "", false, http.StatusOK, &est)
	assert.Equal(t, 13, est.Estimate.Estimated)
	assert.Nil(t, est.Estimate.MatchCount)

	api.do(t, http.MethodGet, "/bracket/estimate?upper_rounds=11", "", false, http.StatusUnprocessableEntity, nil)
	api.do(t, http.MethodGet, "/bracket/estimate", "", false, http.StatusUnprocessableEntity, nil)
}
