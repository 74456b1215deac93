package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/team-registration/models"
	"github.com/Dosada05/team-registration/repositories"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedTeams stores n approved teams in registration order and returns their ids.
func seedTeams(t *testing.T, store *repositories.MemoryStore, n int) []int {
	t.Helper()
	ids := make([]int, n)
	for i := 0; i < n; i++ {
		team := &models.Team{
			Name:            fmt.Sprintf("Team %d", i+1),
			CaptainName:     "Captain",
			CaptainTelegram: "@captain",
			MembersInfo:     "one\ntwo",
			MembersCount:    2,
			AuthCode:        fmt.Sprintf("CODE%04d", i),
			Status:          models.TeamStatusApproved,
		}
		require.NoError(t, store.Teams().Create(context.Background(), team))
		ids[i] = team.ID
	}
	return ids
}
