package brackets

import (
	"fmt"
	"math/rand"

	"github.com/Dosada05/team-registration/models"
)

// AssignSeeds seats the roster into the seed slots of upper round 1: seed k
// gets teams[k-1], so round-1 match i pairs teams 2i-1 and 2i.
func AssignSeeds(matches []*models.Match, teams []*models.Team) error {
	for _, m := range matches {
		if m.BracketType != models.BracketUpper || m.Round != 1 {
			continue
		}
		for _, slot := range []*models.Slot{&m.Slot1, &m.Slot2} {
			if slot.Kind != models.SlotSeed {
				continue
			}
			if slot.Ref < 1 || slot.Ref > len(teams) {
				return fmt.Errorf("%w: seed %d has no team in a roster of %d", ErrInvalidTeamCount, slot.Ref, len(teams))
			}
			id := teams[slot.Ref-1].ID
			slot.TeamID = &id
			slot.Resolved = true
		}
	}
	return nil
}

// Shuffle returns a Fisher-Yates permutation of teams; the input is left as is.
func Shuffle(teams []*models.Team, rng *rand.Rand) []*models.Team {
	out := make([]*models.Team, len(teams))
	copy(out, teams)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
