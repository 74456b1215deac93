package brackets

import (
	"fmt"
	"sort"

	"github.com/Dosada05/team-registration/models"
)

// Outcome describes what a progression step changed.
type Outcome struct {
	Match *models.Match
	// Updated holds every match whose slots or result changed, in number order.
	Updated []*models.Match
	// Invalidated lists matches whose recorded results were discarded because an
	// upstream result was corrected.
	Invalidated []int
	NoOp        bool
}

// Bracket is an in-memory working copy of a tournament's matches, indexed by
// match number. It never touches the caller's matches, so a failed step can be
// dropped without cleanup.
type Bracket struct {
	matches  []*models.Match
	byNumber map[int]*models.Match
	changed  map[int]bool
}

func NewBracket(matches []*models.Match) (*Bracket, error) {
	b := &Bracket{
		matches:  make([]*models.Match, 0, len(matches)),
		byNumber: make(map[int]*models.Match, len(matches)),
		changed:  make(map[int]bool),
	}
	for _, m := range matches {
		if _, dup := b.byNumber[m.Number]; dup {
			return nil, fmt.Errorf("duplicate match number %d", m.Number)
		}
		c := m.Clone()
		b.matches = append(b.matches, c)
		b.byNumber[c.Number] = c
	}
	sort.Slice(b.matches, func(i, j int) bool { return b.matches[i].Number < b.matches[j].Number })
	return b, nil
}

func (b *Bracket) Matches() []*models.Match {
	return b.matches
}

func (b *Bracket) Match(number int) (*models.Match, bool) {
	m, ok := b.byNumber[number]
	return m, ok
}

// Changed returns the matches touched since the bracket was loaded.
func (b *Bracket) Changed() []*models.Match {
	out := make([]*models.Match, 0, len(b.changed))
	for _, m := range b.matches {
		if b.changed[m.Number] {
			out = append(out, m)
		}
	}
	return out
}

func (b *Bracket) touch(m *models.Match) {
	b.changed[m.Number] = true
}

// Settle auto-resolves every match whose slots are final but that cannot be
// played because fewer than two teams reached it.
func (b *Bracket) Settle() error {
	for _, m := range b.matches {
		if err := b.autoResolve(m); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bracket) RecordResult(number, score1, score2 int) (*Outcome, error) {
	m, ok := b.byNumber[number]
	if !ok {
		return nil, fmt.Errorf("%w: match %d", ErrMatchNotFound, number)
	}
	if score1 < 0 || score2 < 0 {
		return nil, fmt.Errorf("%w: scores must be non-negative, got %d:%d", ErrInvalidScore, score1, score2)
	}
	if score1 == score2 {
		return nil, fmt.Errorf("%w: %d:%d", ErrTiedScore, score1, score2)
	}
	if !m.Ready() {
		return nil, fmt.Errorf("%w: match %d is waiting for its participants", ErrMatchNotReady, number)
	}

	if m.HasResult() && *m.Score1 == score1 && *m.Score2 == score2 {
		return &Outcome{Match: m, NoOp: true}, nil
	}

	out := &Outcome{Match: m}
	if m.Status == models.MatchStatusFinished {
		out.Invalidated = b.invalidate(m)
	}

	winner := 1
	if score2 > score1 {
		winner = 2
	}
	m.Score1, m.Score2 = &score1, &score2
	m.WinnerSlot = &winner
	m.Status = models.MatchStatusFinished
	m.IsBye = false
	b.touch(m)

	if err := b.propagate(m); err != nil {
		return nil, err
	}
	out.Updated = b.Changed()
	return out, nil
}

// Swap exchanges the participants of two upper round-1 matches. Byes involved
// in the swap are re-evaluated with their new occupants.
func (b *Bracket) Swap(numberA, numberB int) (*Outcome, error) {
	ma, ok := b.byNumber[numberA]
	if !ok {
		return nil, fmt.Errorf("%w: match %d", ErrMatchNotFound, numberA)
	}
	mb, ok := b.byNumber[numberB]
	if !ok {
		return nil, fmt.Errorf("%w: match %d", ErrMatchNotFound, numberB)
	}
	if numberA == numberB {
		return nil, fmt.Errorf("%w: cannot swap match %d with itself", ErrMatchNotSwappable, numberA)
	}
	for _, m := range []*models.Match{ma, mb} {
		if m.BracketType != models.BracketUpper || m.Round != 1 {
			return nil, fmt.Errorf("%w: match %d is not in the first upper round", ErrMatchNotSwappable, m.Number)
		}
		if m.HasResult() {
			return nil, fmt.Errorf("%w: match %d", ErrMatchAlreadyPlayed, m.Number)
		}
	}

	out := &Outcome{}
	for _, m := range []*models.Match{ma, mb} {
		if m.Status == models.MatchStatusFinished {
			out.Invalidated = append(out.Invalidated, b.invalidate(m)...)
			reset(m)
		}
	}

	ma.Slot1, mb.Slot1 = mb.Slot1, ma.Slot1
	ma.Slot2, mb.Slot2 = mb.Slot2, ma.Slot2
	b.touch(ma)
	b.touch(mb)

	for _, m := range []*models.Match{ma, mb} {
		if err := b.autoResolve(m); err != nil {
			return nil, err
		}
	}
	out.Match = ma
	out.Updated = b.Changed()
	return out, nil
}

// propagate pushes the winner and loser of a finished match into the slots that
// await them.
func (b *Bracket) propagate(m *models.Match) error {
	if m.WinnerTo != nil {
		if err := b.fill(m.WinnerTo, models.SlotWinnerOf, m.Number, m.WinnerTeamID()); err != nil {
			return err
		}
	}
	if m.LoserTo != nil {
		if err := b.fill(m.LoserTo, models.SlotLoserOf, m.Number, m.LoserTeamID()); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bracket) fill(to *models.SlotTarget, kind models.SlotKind, source int, teamID *int) error {
	target, ok := b.byNumber[to.MatchNumber]
	if !ok {
		return fmt.Errorf("%w: match %d routes to missing match %d", ErrDownstreamSlotNotPlaceholder, source, to.MatchNumber)
	}
	slot := target.SlotAt(to.Slot)
	if slot == nil || !slot.Awaits(kind, source) {
		return fmt.Errorf("%w: match %d slot %d does not await %s match %d",
			ErrDownstreamSlotNotPlaceholder, target.Number, to.Slot, kind, source)
	}
	if slot.Resolved {
		if sameTeam(slot.TeamID, teamID) {
			return nil
		}
		if target.HasResult() {
			return fmt.Errorf("%w: match %d was already played with another team in slot %d",
				ErrDownstreamSlotNotPlaceholder, target.Number, to.Slot)
		}
	}

	if teamID != nil {
		id := *teamID
		slot.TeamID = &id
	} else {
		slot.TeamID = nil
	}
	slot.Resolved = true
	b.touch(target)
	return b.autoResolve(target)
}

// autoResolve finishes a match that has both slots final but fewer than two
// teams. The present team, if any, advances without a score.
func (b *Bracket) autoResolve(m *models.Match) error {
	if m.Status == models.MatchStatusFinished || !m.Settled() || m.Ready() {
		return nil
	}

	var winner *int
	switch {
	case m.Slot1.HasTeam():
		w := 1
		winner = &w
	case m.Slot2.HasTeam():
		w := 2
		winner = &w
	}

	m.IsBye = true
	m.Status = models.MatchStatusFinished
	m.Score1, m.Score2 = nil, nil
	m.WinnerSlot = winner
	b.touch(m)
	return b.propagate(m)
}

// invalidate clears every slot fed by m and, recursively, every result that
// depended on them. It returns the numbers of matches whose scores were dropped.
func (b *Bracket) invalidate(m *models.Match) []int {
	var cleared []int
	for _, to := range []*models.SlotTarget{m.WinnerTo, m.LoserTo} {
		if to == nil {
			continue
		}
		target, ok := b.byNumber[to.MatchNumber]
		if !ok {
			continue
		}
		slot := target.SlotAt(to.Slot)
		if slot == nil || slot.Ref != m.Number ||
			(slot.Kind != models.SlotWinnerOf && slot.Kind != models.SlotLoserOf) {
			continue
		}

		slot.TeamID = nil
		slot.Resolved = false
		b.touch(target)

		if target.Status == models.MatchStatusFinished {
			if target.HasResult() {
				cleared = append(cleared, target.Number)
			}
			cleared = append(cleared, b.invalidate(target)...)
			reset(target)
		}
	}
	sort.Ints(cleared)
	return cleared
}

func reset(m *models.Match) {
	m.Score1, m.Score2 = nil, nil
	m.WinnerSlot = nil
	m.IsBye = false
	m.Status = models.MatchStatusUpcoming
}

func sameTeam(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
