package brackets

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/Dosada05/team-registration/models"
)

// EliminationGenerator builds single or double elimination brackets. With a
// non-nil rng the roster is shuffled before seeding.
type EliminationGenerator struct {
	rng    *rand.Rand
	logger *slog.Logger
}

func NewEliminationGenerator(logger *slog.Logger) BracketGenerator {
	return &EliminationGenerator{logger: logger}
}

func NewShuffledGenerator(rng *rand.Rand, logger *slog.Logger) BracketGenerator {
	return &EliminationGenerator{rng: rng, logger: logger}
}

func (g *EliminationGenerator) GetName() string {
	if g.rng != nil {
		return "ShuffledElimination"
	}
	return "Elimination"
}

func (g *EliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*models.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	teams := params.Teams
	if g.rng != nil {
		teams = Shuffle(teams, g.rng)
	}

	plan, err := Resolve(len(teams), params.Settings)
	if err != nil {
		return nil, err
	}

	if g.logger != nil {
		g.logger.InfoContext(ctx, "generating bracket",
			slog.String("generator", g.GetName()),
			slog.String("type", string(plan.Type)),
			slog.Int("teams", plan.TeamCount),
			slog.Int("upper_rounds", plan.UpperRounds),
			slog.Int("lower_rounds", plan.LowerRounds),
			slog.Bool("grand_final", plan.HasGrandFinal),
			slog.Int("byes", plan.Byes()),
		)
	}

	matches := Skeleton(plan)
	if err := AssignSeeds(matches, teams); err != nil {
		return nil, err
	}

	b, err := NewBracket(matches)
	if err != nil {
		return nil, err
	}
	if err := b.Settle(); err != nil {
		return nil, err
	}
	return b.Matches(), nil
}

// Build returns the bracket skeleton for teamCount teams without seating anyone.
func Build(teamCount int, settings models.BracketSettings) (Plan, []*models.Match, error) {
	plan, err := Resolve(teamCount, settings)
	if err != nil {
		return Plan{}, nil, err
	}
	return plan, Skeleton(plan), nil
}

type builder struct {
	next    int
	matches []*models.Match
}

func (b *builder) add(bt models.BracketType, round int) *models.Match {
	b.next++
	m := &models.Match{
		Number:      b.next,
		BracketType: bt,
		Round:       round,
		Status:      models.MatchStatusUpcoming,
	}
	b.matches = append(b.matches, m)
	return m
}

// link routes the winner (or loser) of from into the given slot of to.
func link(from, to *models.Match, slot int, loser bool) {
	target := &models.SlotTarget{MatchNumber: to.Number, Slot: slot}
	if loser {
		from.LoserTo = target
		*to.SlotAt(slot) = models.LoserOfSlot(from.Number)
		return
	}
	from.WinnerTo = target
	*to.SlotAt(slot) = models.WinnerOfSlot(from.Number)
}

func seedOrBye(seed, teamCount int) models.Slot {
	if seed <= teamCount {
		return models.SeedSlot(seed)
	}
	return models.ByeSlot()
}

// Skeleton lays out every match of the plan. Match numbers run through the upper
// bracket round by round, then the lower bracket, then the grand final, so a
// match is always numbered after the matches that feed it.
func Skeleton(p Plan) []*models.Match {
	b := &builder{matches: make([]*models.Match, 0, p.MatchCount())}
	size := p.Size()

	upper := make([][]*models.Match, p.UpperRounds)
	for r := 1; r <= p.UpperRounds; r++ {
		round := make([]*models.Match, size>>r)
		for i := range round {
			round[i] = b.add(models.BracketUpper, r)
		}
		upper[r-1] = round
	}

	for i, m := range upper[0] {
		m.Slot1 = seedOrBye(2*i+1, p.TeamCount)
		m.Slot2 = seedOrBye(2*i+2, p.TeamCount)
	}
	for r := 1; r < len(upper); r++ {
		for i, m := range upper[r-1] {
			link(m, upper[r][i/2], i%2+1, false)
		}
	}

	var lowerFinal *models.Match
	if p.Type == models.EliminationDouble && p.LowerRounds > 0 {
		lowerFinal = b.lower(upper)
	}

	if p.HasGrandFinal && lowerFinal != nil {
		gf := b.add(models.BracketGrandFinal, 1)
		link(upper[len(upper)-1][0], gf, 1, false)
		link(lowerFinal, gf, 2, false)
		gf.Slot1.Label = "Champion of Upper Bracket"
		gf.Slot2.Label = "Champion of Lower Bracket"
	}

	return b.matches
}

// lower builds the losers bracket and returns its final match. Round 1 pairs the
// losers of upper round 1. Every later upper round j adds a drop-in round where
// lower survivors meet the losers of upper round j, followed by a consolidation
// round that halves the field, except after the upper final.
func (b *builder) lower(upper [][]*models.Match) *models.Match {
	first := upper[0]
	round := 1

	if len(first) == 1 {
		m := b.add(models.BracketLower, round)
		link(first[0], m, 1, true)
		m.Slot2 = models.ByeSlot()
		return m
	}

	prev := make([]*models.Match, len(first)/2)
	for k := range prev {
		prev[k] = b.add(models.BracketLower, round)
		link(first[2*k], prev[k], 1, true)
		link(first[2*k+1], prev[k], 2, true)
	}

	for j := 1; j < len(upper); j++ {
		round++
		drop := make([]*models.Match, len(upper[j]))
		for k := range drop {
			drop[k] = b.add(models.BracketLower, round)
			link(prev[k], drop[k], 1, false)
			link(upper[j][k], drop[k], 2, true)
		}
		prev = drop
		if j == len(upper)-1 {
			break
		}

		round++
		next := make([]*models.Match, len(drop)/2)
		for k := range next {
			next[k] = b.add(models.BracketLower, round)
			link(drop[2*k], next[k], 1, false)
			link(drop[2*k+1], next[k], 2, false)
		}
		prev = next
	}

	return prev[0]
}

// Describe is a short human readable summary of a plan, used by the CLI and logs.
func Describe(p Plan) string {
	if p.Type == models.EliminationSingle {
		return fmt.Sprintf("single elimination, %d teams, %d rounds, %d byes, %d matches",
			p.TeamCount, p.UpperRounds, p.Byes(), p.MatchCount())
	}
	return fmt.Sprintf("double elimination, %d teams, %d upper / %d lower rounds, grand final %t, %d byes, %d matches",
		p.TeamCount, p.UpperRounds, p.LowerRounds, p.HasGrandFinal, p.Byes(), p.MatchCount())
}
