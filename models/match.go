package models

import (
	"fmt"
	"time"
)

type MatchStatus string

const (
	MatchStatusUpcoming MatchStatus = "upcoming"
	MatchStatusLive     MatchStatus = "live"
	MatchStatusFinished MatchStatus = "finished"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusUpcoming, MatchStatusLive, MatchStatusFinished:
		return true
	}
	return false
}

// BracketType is the side of the bracket a match belongs to.
type BracketType string

const (
	BracketUpper      BracketType = "upper"
	BracketLower      BracketType = "lower"
	BracketGrandFinal BracketType = "grand_final"
)

// SlotKind says where the content of a match slot comes from.
type SlotKind string

const (
	SlotSeed     SlotKind = "seed"      // Ref = seed position, filled by seeding
	SlotBye      SlotKind = "bye"       // no opponent, always resolved and empty
	SlotWinnerOf SlotKind = "winner_of" // Ref = source match number
	SlotLoserOf  SlotKind = "loser_of"  // Ref = source match number
)

// Slot is one side of a match. Resolved means the content is final: either
// TeamID is set or the slot is known to stay empty.
type Slot struct {
	Kind     SlotKind `json:"kind"`
	Ref      int      `json:"ref,omitempty"`
	TeamID   *int     `json:"team_id,omitempty"`
	Resolved bool     `json:"resolved"`
	Label    string   `json:"label,omitempty"`
}

func (s Slot) HasTeam() bool {
	return s.Resolved && s.TeamID != nil
}

// Awaits reports whether the slot is a placeholder fed by the given source match.
func (s Slot) Awaits(kind SlotKind, sourceNumber int) bool {
	return s.Kind == kind && s.Ref == sourceNumber
}

func SeedSlot(seed int) Slot {
	return Slot{Kind: SlotSeed, Ref: seed, Label: fmt.Sprintf("Seed %d", seed)}
}

func ByeSlot() Slot {
	return Slot{Kind: SlotBye, Resolved: true}
}

func WinnerOfSlot(matchNumber int) Slot {
	return Slot{Kind: SlotWinnerOf, Ref: matchNumber, Label: fmt.Sprintf("Winner of Match %d", matchNumber)}
}

func LoserOfSlot(matchNumber int) Slot {
	return Slot{Kind: SlotLoserOf, Ref: matchNumber, Label: fmt.Sprintf("Loser of Match %d", matchNumber)}
}

// SlotTarget points at a slot (1 or 2) of another match by match number.
type SlotTarget struct {
	MatchNumber int `json:"match_number"`
	Slot        int `json:"slot"`
}

type Match struct {
	ID            int         `json:"id" db:"id"`
	Number        int         `json:"match_number" db:"match_number"`
	BracketType   BracketType `json:"bracket_type" db:"bracket_type"`
	Round         int         `json:"round_number" db:"round_number"`
	Slot1         Slot        `json:"slot1" db:"-"`
	Slot2         Slot        `json:"slot2" db:"-"`
	Score1        *int        `json:"score1,omitempty" db:"score1"`
	Score2        *int        `json:"score2,omitempty" db:"score2"`
	WinnerSlot    *int        `json:"winner_slot,omitempty" db:"winner_slot"`
	Status        MatchStatus `json:"status" db:"status"`
	IsBye         bool        `json:"is_bye" db:"is_bye"`
	ScheduledTime *time.Time  `json:"scheduled_time,omitempty" db:"scheduled_time"`
	WinnerTo      *SlotTarget `json:"winner_to,omitempty" db:"-"`
	LoserTo       *SlotTarget `json:"loser_to,omitempty" db:"-"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// SlotAt returns a pointer to slot 1 or 2, nil for any other index.
func (m *Match) SlotAt(i int) *Slot {
	switch i {
	case 1:
		return &m.Slot1
	case 2:
		return &m.Slot2
	}
	return nil
}

func (m *Match) Ready() bool {
	return m.Slot1.HasTeam() && m.Slot2.HasTeam()
}

func (m *Match) Settled() bool {
	return m.Slot1.Resolved && m.Slot2.Resolved
}

// HasResult reports whether scores were recorded, as opposed to an automatic bye.
func (m *Match) HasResult() bool {
	return m.Status == MatchStatusFinished && !m.IsBye && m.Score1 != nil && m.Score2 != nil
}

func (m *Match) WinnerTeamID() *int {
	if m.WinnerSlot == nil {
		return nil
	}
	if s := m.SlotAt(*m.WinnerSlot); s != nil {
		return s.TeamID
	}
	return nil
}

func (m *Match) LoserTeamID() *int {
	if m.WinnerSlot == nil {
		return nil
	}
	if s := m.SlotAt(3 - *m.WinnerSlot); s != nil {
		return s.TeamID
	}
	return nil
}

// Clone returns a deep copy so the progression engine can work on a scratch set.
func (m *Match) Clone() *Match {
	c := *m
	c.Slot1 = cloneSlot(m.Slot1)
	c.Slot2 = cloneSlot(m.Slot2)
	c.Score1 = cloneInt(m.Score1)
	c.Score2 = cloneInt(m.Score2)
	c.WinnerSlot = cloneInt(m.WinnerSlot)
	if m.ScheduledTime != nil {
		t := *m.ScheduledTime
		c.ScheduledTime = &t
	}
	if m.WinnerTo != nil {
		t := *m.WinnerTo
		c.WinnerTo = &t
	}
	if m.LoserTo != nil {
		t := *m.LoserTo
		c.LoserTo = &t
	}
	return &c
}

func cloneSlot(s Slot) Slot {
	s.TeamID = cloneInt(s.TeamID)
	return s
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}
