package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/team-registration/models"
)

func newTeam(name, code string, status models.TeamStatus) *models.Team {
	return &models.Team{Name: name, CaptainName: "cap", CaptainTelegram: "@cap", AuthCode: code, Status: status}
}

func TestMemoryTeamsListInRegistrationOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	teams := store.Teams()

	require.NoError(t, teams.Create(ctx, newTeam("Alpha", "A1", models.TeamStatusApproved)))
	require.NoError(t, teams.Create(ctx, newTeam("Bravo", "B1", models.TeamStatusPending)))
	require.NoError(t, teams.Create(ctx, newTeam("Charlie", "C1", models.TeamStatusApproved)))

	all, err := teams.List(ctx, ListTeamsFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, []string{all[0].Name, all[1].Name, all[2].Name})

	roster, err := store.Bracket().ListTeams(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "Alpha", roster[0].Name)
	assert.Equal(t, "Charlie", roster[1].Name)
}

func TestMemoryTeamsAuthCodeConflict(t *testing.T) {
	ctx := context.Background()
	teams := NewMemoryStore().Teams()

	require.NoError(t, teams.Create(ctx, newTeam("Alpha", "SAME", models.TeamStatusPending)))
	assert.ErrorIs(t, teams.Create(ctx, newTeam("Bravo", "SAME", models.TeamStatusPending)), ErrTeamAuthCodeConflict)

	err := teams.CreateBatch(ctx, []*models.Team{
		newTeam("C", "X", models.TeamStatusPending),
		newTeam("D", "X", models.TeamStatusPending),
	})
	assert.ErrorIs(t, err, ErrTeamAuthCodeConflict)

	all, err := teams.List(ctx, ListTeamsFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1, "a failed batch inserts nothing")
}

func TestMemoryTeamsUpdateRecountsMembers(t *testing.T) {
	ctx := context.Background()
	teams := NewMemoryStore().Teams()
	team := newTeam("Alpha", "A1", models.TeamStatusPending)
	require.NoError(t, teams.Create(ctx, team))

	members := "one\n\ntwo\n  \nthree"
	updated, err := teams.Update(ctx, team.ID, TeamUpdate{MembersInfo: &members})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.MembersCount)
	assert.Equal(t, "Alpha", updated.Name)

	_, err = teams.Update(ctx, 999, TeamUpdate{})
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestMemoryTeamDeleteBlockedByBracket(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	team := newTeam("Alpha", "A1", models.TeamStatusApproved)
	require.NoError(t, store.Teams().Create(ctx, team))

	id := team.ID
	require.NoError(t, store.Bracket().ReplaceMatches(ctx, []*models.Match{{
		Number: 1,
		Slot1:  models.Slot{Kind: models.SlotSeed, Ref: 1, TeamID: &id, Resolved: true},
		Slot2:  models.ByeSlot(),
	}}))

	assert.ErrorIs(t, store.Teams().Delete(ctx, team.ID), ErrTeamInBracket)

	n, err := store.Teams().DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	matches, err := store.Bracket().ListMatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryStatusChangeBlockedByBracket(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	team := newTeam("Alpha", "A1", models.TeamStatusApproved)
	require.NoError(t, store.Teams().Create(ctx, team))

	id := team.ID
	require.NoError(t, store.Bracket().ReplaceMatches(ctx, []*models.Match{{
		Number: 1,
		Slot1:  models.Slot{Kind: models.SlotSeed, Ref: 1, TeamID: &id, Resolved: true},
		Slot2:  models.ByeSlot(),
	}}))

	_, err := store.Teams().UpdateStatus(ctx, id, models.TeamStatusRejected, nil)
	assert.ErrorIs(t, err, ErrTeamInBracket)

	got, err := store.Teams().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.TeamStatusApproved, got.Status)

	comment := "ok"
	got, err = store.Teams().UpdateStatus(ctx, id, models.TeamStatusApproved, &comment)
	require.NoError(t, err)
	assert.Equal(t, "ok", *got.AdminComment)
}

func TestMemoryReplaceBracketIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	bracket := store.Bracket()
	team := newTeam("Alpha", "A1", models.TeamStatusApproved)
	require.NoError(t, store.Teams().Create(ctx, team))

	single := models.BracketSettings{BracketType: models.EliminationSingle, AutoCalculate: true}
	id := team.ID
	require.NoError(t, bracket.ReplaceBracket(ctx, single, []*models.Match{{
		Number: 1,
		Slot1:  models.Slot{Kind: models.SlotSeed, Ref: 1, TeamID: &id, Resolved: true},
		Slot2:  models.ByeSlot(),
	}}))

	missing := id + 100
	err := bracket.ReplaceBracket(ctx, models.DefaultBracketSettings(), []*models.Match{
		{Number: 1, Slot1: models.Slot{Kind: models.SlotSeed, Ref: 1, TeamID: &missing, Resolved: true}},
		{Number: 2},
	})
	assert.ErrorIs(t, err, ErrMatchTeamReferenceFailed)

	s, err := bracket.GetBracketSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, single, *s, "settings of a rejected bracket are not stored")

	matches, err := bracket.ListMatches(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, id, *matches[0].Slot1.TeamID)
}

func TestMemoryBracketReplaceAndUpdate(t *testing.T) {
	ctx := context.Background()
	bracket := NewMemoryStore().Bracket()

	matches := []*models.Match{
		{Number: 2, Status: models.MatchStatusUpcoming},
		{Number: 1, Status: models.MatchStatusUpcoming, WinnerTo: &models.SlotTarget{MatchNumber: 2, Slot: 1}},
	}
	require.NoError(t, bracket.ReplaceMatches(ctx, matches))
	assert.NotZero(t, matches[0].ID)

	listed, err := bracket.ListMatches(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, 1, listed[0].Number)

	listed[0].Status = models.MatchStatusFinished
	listed[0].WinnerTo = nil
	require.NoError(t, bracket.UpdateMatches(ctx, listed[:1]))

	got, err := bracket.GetMatch(ctx, listed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusFinished, got.Status)
	assert.NotNil(t, got.WinnerTo, "routing edges are fixed at build time")

	err = bracket.UpdateMatches(ctx, []*models.Match{{Number: 99}})
	assert.ErrorIs(t, err, ErrMatchNotFound)

	assert.ErrorIs(t, bracket.ReplaceMatches(ctx, []*models.Match{{Number: 1}, {Number: 1}}), ErrMatchNumberConflict)
}

func TestMemoryBracketPatchMatch(t *testing.T) {
	ctx := context.Background()
	bracket := NewMemoryStore().Bracket()
	matches := []*models.Match{{Number: 1, Status: models.MatchStatusUpcoming}}
	require.NoError(t, bracket.ReplaceMatches(ctx, matches))

	live := models.MatchStatusLive
	when := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	m, err := bracket.UpdateMatch(ctx, matches[0].ID, MatchPatch{Status: &live, ScheduledTime: &when})
	require.NoError(t, err)
	assert.Equal(t, live, m.Status)
	assert.True(t, when.Equal(*m.ScheduledTime))

	m, err = bracket.UpdateMatch(ctx, matches[0].ID, MatchPatch{ClearSchedule: true})
	require.NoError(t, err)
	assert.Nil(t, m.ScheduledTime)

	_, err = bracket.UpdateMatch(ctx, 42, MatchPatch{Status: &live})
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestMemoryBracketSettings(t *testing.T) {
	ctx := context.Background()
	bracket := NewMemoryStore().Bracket()

	_, err := bracket.GetBracketSettings(ctx)
	assert.ErrorIs(t, err, ErrBracketSettingsNotFound)

	require.NoError(t, bracket.SaveBracketSettings(ctx, models.DefaultBracketSettings()))
	s, err := bracket.GetBracketSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultBracketSettings(), *s)
}

func TestMemoryAdmins(t *testing.T) {
	ctx := context.Background()
	admins := NewMemoryStore().Admins()

	require.NoError(t, admins.Create(ctx, &models.AdminUser{Username: "root", PasswordHash: "x"}))
	assert.ErrorIs(t, admins.Create(ctx, &models.AdminUser{Username: "root"}), ErrAdminUsernameConflict)

	a, err := admins.GetByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, 1, a.ID)

	_, err = admins.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrAdminNotFound)

	n, err := admins.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
