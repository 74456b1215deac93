package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/team-registration/brackets"
	"github.com/Dosada05/team-registration/models"
	"github.com/Dosada05/team-registration/services"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		err      error
		status   int
		wantCode string
	}{
		{fmt.Errorf("wrapped: %w", brackets.ErrTiedScore), http.StatusUnprocessableEntity, "tied_score_not_allowed"},
		{brackets.ErrInvalidTeamCount, http.StatusUnprocessableEntity, "invalid_team_count"},
		{brackets.ErrMatchNotReady, http.StatusConflict, "match_not_ready"},
		{brackets.ErrMatchNotFound, http.StatusNotFound, "match_not_found"},
		{brackets.ErrDownstreamSlotNotPlaceholder, http.StatusInternalServerError, "downstream_slot_not_a_placeholder"},
		{services.ErrTeamNotFound, http.StatusNotFound, ""},
		{services.ErrInvalidAuthCode, http.StatusNotFound, ""},
		{services.ErrTeamInBracket, http.StatusConflict, ""},
		{services.ErrBracketBusy, http.StatusConflict, ""},
		{services.ErrTeamNameRequired, http.StatusBadRequest, ""},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, ""},
		{services.ErrRegistrationClosed, http.StatusForbidden, ""},
		{fmt.Errorf("boom"), http.StatusInternalServerError, ""},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			assert.Equal(t, tc.status, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body, "error")
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, body["code"])
			}
		})
	}
}

func TestReadJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	tests := []struct {
		body    string
		wantErr string
	}{
		{`{"name":"ok"}`, ""},
		{``, "body must not be empty"},
		{`{"name":1}`, `incorrect JSON type for field "name"`},
		{`{"other":"x"}`, "unknown key"},
		{`{"name":"a"}{"name":"b"}`, "single JSON value"},
		{`{"name":`, "badly-formed JSON"},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
		err := readJSON(rec, req, &dst)
		if tc.wantErr == "" {
			assert.NoError(t, err)
			continue
		}
		require.Error(t, err, tc.body)
		assert.Contains(t, err.Error(), tc.wantErr)
	}
}

func TestParseEstimateQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/bracket/estimate?teams=6&bracket_type=single&upper_rounds=3&has_grand_final=true", nil)
	settings, teams, problems := parseEstimateQuery(req)
	assert.Empty(t, problems)
	require.NotNil(t, teams)
	assert.Equal(t, 6, *teams)
	assert.Equal(t, models.EliminationSingle, settings.BracketType)
	assert.False(t, settings.AutoCalculate)
	assert.Equal(t, 3, settings.UpperRounds)
	assert.False(t, settings.HasGrandFinal)

	req = httptest.NewRequest(http.MethodGet, "/bracket/estimate", nil)
	settings, teams, problems = parseEstimateQuery(req)
	assert.Empty(t, problems)
	assert.Nil(t, teams)
	assert.Equal(t, models.DefaultBracketSettings(), settings)

	req = httptest.NewRequest(http.MethodGet, "/bracket/estimate?teams=8&upper_rounds=3", nil)
	settings, _, problems = parseEstimateQuery(req)
	assert.Empty(t, problems)
	assert.Equal(t, models.EliminationDouble, settings.BracketType)
	assert.Equal(t, 4, settings.LowerRounds)
	assert.True(t, settings.HasGrandFinal)

	req = httptest.NewRequest(http.MethodGet, "/bracket/estimate?upper_rounds=3&lower_rounds=0", nil)
	settings, _, problems = parseEstimateQuery(req)
	assert.Empty(t, problems)
	assert.Equal(t, 0, settings.LowerRounds)
	assert.False(t, settings.HasGrandFinal)

	req = httptest.NewRequest(http.MethodGet, "/bracket/estimate?teams=-1&has_grand_final=maybe", nil)
	_, _, problems = parseEstimateQuery(req)
	assert.Contains(t, problems, "teams")
	assert.Contains(t, problems, "has_grand_final")
}
