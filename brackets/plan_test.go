package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/team-registration/models"
)

func TestResolveAutoCalculate(t *testing.T) {
	tests := []struct {
		name      string
		teams     int
		typ       models.EliminationType
		wantUpper int
		wantLower int
		wantGF    bool
	}{
		{"two teams double", 2, models.EliminationDouble, 1, 1, true},
		{"five teams double", 5, models.EliminationDouble, 3, 4, true},
		{"eight teams double", 8, models.EliminationDouble, 3, 4, true},
		{"nine teams double", 9, models.EliminationDouble, 4, 6, true},
		{"eight teams single", 8, models.EliminationSingle, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Resolve(tt.teams, models.BracketSettings{BracketType: tt.typ, AutoCalculate: true})
			require.NoError(t, err)
			assert.Equal(t, tt.wantUpper, p.UpperRounds)
			assert.Equal(t, tt.wantLower, p.LowerRounds)
			assert.Equal(t, tt.wantGF, p.HasGrandFinal)
		})
	}
}

func TestResolveRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name     string
		teams    int
		settings models.BracketSettings
		wantErr  error
	}{
		{"one team", 1, models.DefaultBracketSettings(), ErrInvalidTeamCount},
		{"no teams", 0, models.DefaultBracketSettings(), ErrInvalidTeamCount},
		{"too few upper rounds", 5, models.BracketSettings{BracketType: models.EliminationSingle, UpperRounds: 2}, ErrInvalidRoundCount},
		{"zero upper rounds", 2, models.BracketSettings{BracketType: models.EliminationSingle}, ErrInvalidRoundCount},
		{"upper rounds over cap", 4, models.BracketSettings{BracketType: models.EliminationSingle, UpperRounds: 11}, ErrInvalidRoundCount},
		{"partial lower bracket", 8, models.BracketSettings{BracketType: models.EliminationDouble, UpperRounds: 3, LowerRounds: 3, HasGrandFinal: true}, ErrInvalidRoundCount},
		{"grand final without lower", 8, models.BracketSettings{BracketType: models.EliminationDouble, UpperRounds: 3, HasGrandFinal: true}, ErrInvalidRoundCount},
		{"unknown type", 4, models.BracketSettings{BracketType: "swiss", AutoCalculate: true}, ErrInvalidBracketType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.teams, tt.settings)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolveSingleIgnoresLowerSettings(t *testing.T) {
	p, err := Resolve(4, models.BracketSettings{
		BracketType:   models.EliminationSingle,
		UpperRounds:   2,
		LowerRounds:   7,
		HasGrandFinal: true,
	})
	require.NoError(t, err)
	assert.Zero(t, p.LowerRounds)
	assert.False(t, p.HasGrandFinal)
	assert.Equal(t, 3, p.MatchCount())
}

func TestEstimateMatchCount(t *testing.T) {
	tests := []struct {
		name     string
		settings models.BracketSettings
		want     int
	}{
		{"single 8", models.BracketSettings{BracketType: models.EliminationSingle, UpperRounds: 3}, 7},
		{"double 4", models.BracketSettings{BracketType: models.EliminationDouble, UpperRounds: 2, LowerRounds: 2, HasGrandFinal: true}, 6},
		{"double 8", models.BracketSettings{BracketType: models.EliminationDouble, UpperRounds: 3, LowerRounds: 4, HasGrandFinal: true}, 13},
		{"double without lower", models.BracketSettings{BracketType: models.EliminationDouble, UpperRounds: 3}, 7},
		{"no rounds", models.BracketSettings{BracketType: models.EliminationSingle}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateMatchCount(tt.settings))
		})
	}
}

func TestEstimateMatchesBuiltCount(t *testing.T) {
	for teams := 2; teams <= 40; teams++ {
		p, err := Resolve(teams, models.BracketSettings{BracketType: models.EliminationSingle, AutoCalculate: true})
		require.NoError(t, err)
		_, matches, err := Build(teams, p.Settings())
		require.NoError(t, err)
		assert.Equal(t, EstimateMatchCount(p.Settings()), len(matches), "single, %d teams", teams)
	}

	for _, teams := range []int{3, 4} {
		p, err := Resolve(teams, models.DefaultBracketSettings())
		require.NoError(t, err)
		assert.Equal(t, EstimateMatchCount(p.Settings()), p.MatchCount(), "double, %d teams", teams)
	}
}
