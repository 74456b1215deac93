// Command bracketctl previews and simulates elimination brackets offline.
//
// Usage:
//
//	bracketctl estimate --teams 12
//	bracketctl preview --teams 6 --type single
//	bracketctl simulate --teams 9 --seed 42 --shuffle
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Dosada05/team-registration/brackets"
	"github.com/Dosada05/team-registration/models"
	"github.com/Dosada05/team-registration/repositories"
	"github.com/Dosada05/team-registration/services"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

func main() {
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "bracketctl",
		Short:        "Offline bracket estimates, previews and simulations",
		SilenceUsage: true,
	}

	root.AddCommand(estimateCmd())
	root.AddCommand(previewCmd())
	root.AddCommand(simulateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type settingsFlags struct {
	teams      int
	typ        string
	upper      int
	lower      int
	grandFinal bool
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.teams, "teams", 8, "Number of teams")
	cmd.Flags().StringVar(&f.typ, "type", string(models.EliminationDouble), "Bracket type: single or double")
	cmd.Flags().IntVar(&f.upper, "upper", 0, "Upper bracket rounds (0 = auto)")
	cmd.Flags().IntVar(&f.lower, "lower", 0, "Lower bracket rounds when --upper is set")
	cmd.Flags().BoolVar(&f.grandFinal, "grand-final", true, "Play a grand final (double elimination)")
}

func (f *settingsFlags) settings() models.BracketSettings {
	s := models.BracketSettings{
		BracketType:   models.EliminationType(f.typ),
		AutoCalculate: f.upper == 0,
		UpperRounds:   f.upper,
		LowerRounds:   f.lower,
		HasGrandFinal: f.grandFinal,
	}
	if s.BracketType == models.EliminationSingle {
		s.HasGrandFinal = false
		s.LowerRounds = 0
	}
	return s
}

func estimateCmd() *cobra.Command {
	var flags settingsFlags
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Print the round structure and match counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := brackets.Resolve(flags.teams, flags.settings())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, brackets.Describe(plan))
			fmt.Fprintf(out, "estimated matches: %d\n", brackets.EstimateMatchCount(plan.Settings()))
			fmt.Fprintf(out, "built matches:     %d\n", plan.MatchCount())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func previewCmd() *cobra.Command {
	var flags settingsFlags
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print every match slot of an unseeded bracket",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, matches, err := brackets.Build(flags.teams, flags.settings())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), brackets.Describe(plan))
			return printMatches(cmd.OutOrStdout(), matches, nil)
		},
	}
	flags.register(cmd)
	return cmd
}

func simulateCmd() *cobra.Command {
	var (
		flags   settingsFlags
		seed    int64
		shuffle bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a whole tournament with random scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return simulate(cmd.Context(), cmd.OutOrStdout(), flags.teams, flags.settings(), seed, shuffle)
		},
	}
	flags.register(cmd)
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed for scores and shuffling")
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "Shuffle seeding after generation")
	return cmd
}

func simulate(ctx context.Context, out io.Writer, teamCount int, settings models.BracketSettings, seed int64, shuffle bool) error {
	store := repositories.NewMemoryStore()
	locker := services.NewMutexLocker()
	registration := services.NewRegistrationService(store.Registration(), nil, logger)
	teamService := services.NewTeamService(store.Teams(), registration, locker, nil, logger)
	bracketService := services.NewBracketService(store.Bracket(), locker, nil, nil, logger)

	names := make([]string, teamCount)
	for i := range names {
		names[i] = fmt.Sprintf("Team %02d", i+1)
	}
	teams, err := teamService.BulkCreate(ctx, names)
	if err != nil {
		return err
	}
	teamNames := make(map[int]string, len(teams))
	for _, t := range teams {
		teamNames[t.ID] = t.Name
	}

	if _, err := bracketService.GenerateBracket(ctx, settings); err != nil {
		return err
	}
	if shuffle {
		if _, err := bracketService.ShuffleAndRegenerate(ctx); err != nil {
			return err
		}
	}

	rng := rand.New(rand.NewSource(seed))
	played := 0
	for {
		view, err := bracketService.GetBracket(ctx)
		if err != nil {
			return err
		}
		if view.ChampionID != nil {
			if err := printMatches(out, view.Matches, teamNames); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d matches played, champion: %s\n", played, teamNames[*view.ChampionID])
			return nil
		}

		next := nextPlayable(view.Matches)
		if next == nil {
			if !allFinished(view.Matches) {
				return fmt.Errorf("bracket stalled after %d matches without a champion", played)
			}
			if err := printMatches(out, view.Matches, teamNames); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d matches played, no grand final: the upper and lower bracket winners share the top\n", played)
			return nil
		}
		winner := 1 + rng.Intn(3)
		loser := rng.Intn(winner)
		s1, s2 := winner, loser
		if rng.Intn(2) == 0 {
			s1, s2 = loser, winner
		}
		if _, err := bracketService.RecordResult(ctx, next.ID, s1, s2); err != nil {
			return err
		}
		played++
	}
}

func nextPlayable(matches []*models.Match) *models.Match {
	for _, m := range matches {
		if m.Status != models.MatchStatusFinished && m.Ready() {
			return m
		}
	}
	return nil
}

func allFinished(matches []*models.Match) bool {
	for _, m := range matches {
		if m.Status != models.MatchStatusFinished {
			return false
		}
	}
	return true
}

func printMatches(out io.Writer, matches []*models.Match, teamNames map[int]string) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tBRACKET\tROUND\tSLOT 1\tSLOT 2\tSCORE\tSTATUS")
	for _, m := range matches {
		score := "-"
		if m.Score1 != nil && m.Score2 != nil {
			score = fmt.Sprintf("%d:%d", *m.Score1, *m.Score2)
		}
		status := string(m.Status)
		if m.IsBye {
			status = "bye"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
			m.Number, m.BracketType, m.Round,
			slotText(m.Slot1, teamNames), slotText(m.Slot2, teamNames), score, status)
	}
	return w.Flush()
}

func slotText(s models.Slot, teamNames map[int]string) string {
	if s.TeamID != nil {
		if name, ok := teamNames[*s.TeamID]; ok {
			return name
		}
		return fmt.Sprintf("team #%d", *s.TeamID)
	}
	if s.Kind == models.SlotBye {
		return "(bye)"
	}
	if s.Resolved {
		return "(empty)"
	}
	return s.Label
}
