package brackets

import (
	"fmt"
	"math"

	"github.com/Dosada05/team-registration/models"
)

// MaxUpperRounds caps the bracket at 1024 slots.
const MaxUpperRounds = 10

// Plan is a fully resolved bracket shape for a given team count.
type Plan struct {
	TeamCount     int
	Type          models.EliminationType
	UpperRounds   int
	LowerRounds   int
	HasGrandFinal bool
}

// Size is the number of round-1 slots, the next power of two >= TeamCount.
func (p Plan) Size() int {
	return 1 << p.UpperRounds
}

func (p Plan) Byes() int {
	return p.Size() - p.TeamCount
}

// MatchCount is the exact number of matches Skeleton produces for the plan.
func (p Plan) MatchCount() int {
	total := p.Size() - 1
	if p.Type == models.EliminationDouble && p.LowerRounds > 0 {
		total += lowerMatchCount(p.UpperRounds)
	}
	if p.HasGrandFinal {
		total++
	}
	return total
}

func (p Plan) Settings() models.BracketSettings {
	return models.BracketSettings{
		BracketType:   p.Type,
		UpperRounds:   p.UpperRounds,
		LowerRounds:   p.LowerRounds,
		HasGrandFinal: p.HasGrandFinal,
	}
}

func lowerMatchCount(upperRounds int) int {
	if upperRounds == 1 {
		return 1
	}
	return (1 << upperRounds) - 2
}

// AutoUpperRounds returns ceil(log2(max(teamCount, 2))).
func AutoUpperRounds(teamCount int) int {
	if teamCount < 2 {
		teamCount = 2
	}
	return int(math.Ceil(math.Log2(float64(teamCount))))
}

// LowerDepth is the number of lower-bracket rounds a full double elimination
// needs: one drop-in and one consolidation round per upper round above the first.
func LowerDepth(upperRounds int) int {
	return max(1, (upperRounds-1)*2)
}

// Resolve validates the settings against the team count and fills in the
// derived round counts.
func Resolve(teamCount int, s models.BracketSettings) (Plan, error) {
	if teamCount < 2 {
		return Plan{}, fmt.Errorf("%w: need at least 2 teams, got %d", ErrInvalidTeamCount, teamCount)
	}
	if teamCount > 1<<MaxUpperRounds {
		return Plan{}, fmt.Errorf("%w: at most %d teams are supported, got %d", ErrInvalidTeamCount, 1<<MaxUpperRounds, teamCount)
	}

	typ := s.BracketType
	if typ == "" {
		typ = models.EliminationDouble
	}
	if typ != models.EliminationSingle && typ != models.EliminationDouble {
		return Plan{}, fmt.Errorf("%w: %q", ErrInvalidBracketType, s.BracketType)
	}

	p := Plan{TeamCount: teamCount, Type: typ}

	if s.AutoCalculate {
		p.UpperRounds = AutoUpperRounds(teamCount)
		if typ == models.EliminationDouble {
			p.LowerRounds = LowerDepth(p.UpperRounds)
			p.HasGrandFinal = true
		}
		return p, nil
	}

	if s.UpperRounds < 1 || s.UpperRounds > MaxUpperRounds {
		return Plan{}, fmt.Errorf("%w: upper rounds must be between 1 and %d, got %d", ErrInvalidRoundCount, MaxUpperRounds, s.UpperRounds)
	}
	if 1<<s.UpperRounds < teamCount {
		return Plan{}, fmt.Errorf("%w: %d upper rounds hold %d teams, got %d", ErrInvalidRoundCount, s.UpperRounds, 1<<s.UpperRounds, teamCount)
	}
	p.UpperRounds = s.UpperRounds

	if typ == models.EliminationSingle {
		return p, nil
	}

	depth := LowerDepth(s.UpperRounds)
	if s.LowerRounds != 0 && s.LowerRounds != depth {
		return Plan{}, fmt.Errorf("%w: lower rounds must be 0 or %d for %d upper rounds, got %d", ErrInvalidRoundCount, depth, s.UpperRounds, s.LowerRounds)
	}
	if s.LowerRounds == 0 && s.HasGrandFinal {
		return Plan{}, fmt.Errorf("%w: a grand final needs a lower bracket", ErrInvalidRoundCount)
	}
	p.LowerRounds = s.LowerRounds
	p.HasGrandFinal = s.HasGrandFinal
	return p, nil
}

// EstimateMatchCount is the preview figure shown before generation. It uses the
// round counts exactly as given in the settings. For double elimination with more
// than four slots it undercounts the lower bracket; Plan.MatchCount is exact.
func EstimateMatchCount(s models.BracketSettings) int {
	if s.UpperRounds < 1 {
		return 0
	}
	full := 1 << min(s.UpperRounds, MaxUpperRounds)
	upper := full - 1
	if s.BracketType == models.EliminationSingle {
		return upper
	}

	lower := 0
	if s.LowerRounds > 0 {
		// ceil((full-2) * 0.75) in integers
		lower = (3*(full-2) + 3) / 4
	}
	final := 0
	if s.HasGrandFinal {
		final = 1
	}
	return upper + lower + final
}
