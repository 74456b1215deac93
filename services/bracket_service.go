package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/team-registration/brackets"
	"github.com/Dosada05/team-registration/metrics"
	"github.com/Dosada05/team-registration/models"
	"github.com/Dosada05/team-registration/repositories"
	"github.com/Dosada05/team-registration/storage"
)

// bracketLockKey names the only tournament this service runs.
const bracketLockKey = "bracket:main"

type BracketView struct {
	Settings   *models.BracketSettings `json:"settings,omitempty"`
	Teams      []*models.Team          `json:"teams"`
	Matches    []*models.Match         `json:"matches"`
	ChampionID *int                    `json:"champion_id,omitempty"`
}

type BracketPreview struct {
	TeamCount     int                    `json:"team_count"`
	Settings      models.BracketSettings `json:"settings"`
	Byes          int                    `json:"byes"`
	EstimatedSize int                    `json:"estimated_matches"`
	MatchCount    int                    `json:"match_count"`
	Matches       []*models.Match        `json:"matches"`
}

// MatchCountEstimate carries the preview figure and, when the settings can be
// built for TeamCount teams, the exact match count.
type MatchCountEstimate struct {
	TeamCount     int                    `json:"team_count,omitempty"`
	Settings      models.BracketSettings `json:"settings"`
	EstimatedSize int                    `json:"estimated_matches"`
	MatchCount    *int                   `json:"match_count,omitempty"`
}

type ResultOutcome struct {
	Match       *models.Match   `json:"match"`
	Updated     []*models.Match `json:"updated_matches"`
	Invalidated []int           `json:"invalidated_matches,omitempty"`
	Warning     string          `json:"warning,omitempty"`
	Unchanged   bool            `json:"unchanged,omitempty"`
}

type BracketService interface {
	BuildBracket(teamCount int, settings models.BracketSettings) (*BracketPreview, error)
	EstimateMatchCount(settings models.BracketSettings) int
	Estimate(ctx context.Context, teamCount *int, settings models.BracketSettings) (*MatchCountEstimate, error)
	GetBracket(ctx context.Context) (*BracketView, error)
	GenerateBracket(ctx context.Context, settings models.BracketSettings) (*BracketView, error)
	RecordResult(ctx context.Context, matchID, score1, score2 int) (*ResultOutcome, error)
	SwapMatches(ctx context.Context, matchIDA, matchIDB int) (*ResultOutcome, error)
	ClearBracket(ctx context.Context) error
	ShuffleAndRegenerate(ctx context.Context) (*BracketView, error)
	UpdateMatchDetails(ctx context.Context, matchID int, patch repositories.MatchPatch) (*models.Match, error)
}

type bracketService struct {
	repo     repositories.BracketRepository
	locker   Locker
	uploader storage.FileUploader
	recorder *metrics.Recorder
	logger   *slog.Logger
	rng      *rand.Rand
	now      func() time.Time

	// draftKey is the snapshot of the bracket as last generated. A new
	// generation replaces it; final snapshots are never removed.
	draftKey string
}

// NewBracketService wires the bracket operations. uploader and recorder may be nil.
func NewBracketService(
	repo repositories.BracketRepository,
	locker Locker,
	uploader storage.FileUploader,
	recorder *metrics.Recorder,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		repo:     repo,
		locker:   locker,
		uploader: uploader,
		recorder: recorder,
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

func (s *bracketService) BuildBracket(teamCount int, settings models.BracketSettings) (*BracketPreview, error) {
	plan, matches, err := brackets.Build(teamCount, settings)
	if err != nil {
		return nil, err
	}
	return &BracketPreview{
		TeamCount:     teamCount,
		Settings:      plan.Settings(),
		Byes:          plan.Byes(),
		EstimatedSize: brackets.EstimateMatchCount(plan.Settings()),
		MatchCount:    plan.MatchCount(),
		Matches:       matches,
	}, nil
}

func (s *bracketService) EstimateMatchCount(settings models.BracketSettings) int {
	return brackets.EstimateMatchCount(settings)
}

// Estimate resolves auto-calculated settings against teamCount, or against the
// current approved roster when teamCount is nil. Explicit round counts are
// estimated as given, without a roster.
func (s *bracketService) Estimate(ctx context.Context, teamCount *int, settings models.BracketSettings) (*MatchCountEstimate, error) {
	if !settings.AutoCalculate {
		return explicitEstimate(teamCount, settings)
	}

	n := 0
	if teamCount != nil {
		n = *teamCount
	} else {
		teams, err := s.repo.ListTeams(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list approved teams: %w", err)
		}
		n = len(teams)
	}

	plan, err := brackets.Resolve(n, settings)
	if err != nil {
		return nil, err
	}
	exact := plan.MatchCount()
	return &MatchCountEstimate{
		TeamCount:     n,
		Settings:      plan.Settings(),
		EstimatedSize: brackets.EstimateMatchCount(plan.Settings()),
		MatchCount:    &exact,
	}, nil
}

func explicitEstimate(teamCount *int, settings models.BracketSettings) (*MatchCountEstimate, error) {
	if settings.BracketType == "" {
		settings.BracketType = models.EliminationDouble
	}
	switch settings.BracketType {
	case models.EliminationSingle:
		settings.LowerRounds = 0
		settings.HasGrandFinal = false
	case models.EliminationDouble:
	default:
		return nil, fmt.Errorf("%w: %q", brackets.ErrInvalidBracketType, settings.BracketType)
	}
	if settings.UpperRounds < 0 || settings.UpperRounds > brackets.MaxUpperRounds || settings.LowerRounds < 0 {
		return nil, fmt.Errorf("%w: upper rounds must be between 0 and %d and lower rounds non-negative, got %d and %d",
			brackets.ErrInvalidRoundCount, brackets.MaxUpperRounds, settings.UpperRounds, settings.LowerRounds)
	}

	est := &MatchCountEstimate{
		Settings:      settings,
		EstimatedSize: brackets.EstimateMatchCount(settings),
	}
	if teamCount != nil {
		est.TeamCount = *teamCount
		if plan, err := brackets.Resolve(*teamCount, settings); err == nil {
			exact := plan.MatchCount()
			est.MatchCount = &exact
		}
	}
	return est, nil
}

func (s *bracketService) GetBracket(ctx context.Context) (*BracketView, error) {
	view := &BracketView{}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		teams, err := s.repo.ListTeams(gCtx)
		if err != nil {
			return fmt.Errorf("failed to list approved teams: %w", err)
		}
		view.Teams = publicTeams(teams)
		return nil
	})

	g.Go(func() error {
		matches, err := s.repo.ListMatches(gCtx)
		if err != nil {
			return fmt.Errorf("failed to list matches: %w", err)
		}
		view.Matches = matches
		return nil
	})

	g.Go(func() error {
		settings, err := s.repo.GetBracketSettings(gCtx)
		if err != nil {
			if errors.Is(err, repositories.ErrBracketSettingsNotFound) {
				return nil
			}
			return fmt.Errorf("failed to load bracket settings: %w", err)
		}
		view.Settings = settings
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.ChampionID = champion(view.Matches)
	return view, nil
}

func (s *bracketService) GenerateBracket(ctx context.Context, settings models.BracketSettings) (*BracketView, error) {
	return s.regenerate(ctx, settings, brackets.NewEliminationGenerator(s.logger), "generate")
}

func (s *bracketService) ShuffleAndRegenerate(ctx context.Context) (*BracketView, error) {
	settings, err := s.repo.GetBracketSettings(ctx)
	if err != nil {
		if !errors.Is(err, repositories.ErrBracketSettingsNotFound) {
			return nil, fmt.Errorf("failed to load bracket settings: %w", err)
		}
		d := models.DefaultBracketSettings()
		settings = &d
	}
	return s.regenerate(ctx, *settings, brackets.NewShuffledGenerator(s.rng, s.logger), "shuffle")
}

func (s *bracketService) regenerate(ctx context.Context, settings models.BracketSettings, gen brackets.BracketGenerator, trigger string) (*BracketView, error) {
	unlock, err := s.locker.Lock(ctx, bracketLockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	teams, err := s.repo.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved teams: %w", err)
	}
	if settings.BracketType == "" {
		settings.BracketType = models.EliminationDouble
	}

	matches, err := gen.GenerateBracket(ctx, brackets.GenerateBracketParams{Teams: teams, Settings: settings})
	if err != nil {
		return nil, fmt.Errorf("failed to generate bracket for %d teams: %w", len(teams), err)
	}

	if err := s.repo.ReplaceBracket(ctx, settings, matches); err != nil {
		return nil, fmt.Errorf("failed to store generated bracket: %w", err)
	}

	s.recorder.BracketGenerated(string(settings.BracketType), trigger)
	s.logger.InfoContext(ctx, "bracket generated",
		slog.String("trigger", trigger),
		slog.String("generator", gen.GetName()),
		slog.Int("teams", len(teams)),
		slog.Int("matches", len(matches)),
	)

	view := &BracketView{Settings: &settings, Teams: publicTeams(teams), Matches: matches}
	s.archive(ctx, trigger, view)
	return view, nil
}

func (s *bracketService) RecordResult(ctx context.Context, matchID, score1, score2 int) (*ResultOutcome, error) {
	unlock, err := s.locker.Lock(ctx, bracketLockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, number, err := s.loadBracket(ctx, matchID)
	if err != nil {
		return nil, err
	}

	out, err := b.RecordResult(number, score1, score2)
	if err != nil {
		s.recorder.ResultRecorded("rejected", 0)
		return nil, s.progressionError(ctx, "record result", matchID, err)
	}
	if out.NoOp {
		s.recorder.ResultRecorded("unchanged", 0)
		return &ResultOutcome{Match: out.Match, Unchanged: true}, nil
	}

	if err := s.repo.UpdateMatches(ctx, out.Updated); err != nil {
		return nil, fmt.Errorf("failed to store result of match %d: %w", matchID, err)
	}

	res := &ResultOutcome{Match: out.Match, Updated: out.Updated, Invalidated: out.Invalidated}
	outcome := "recorded"
	if len(out.Invalidated) > 0 {
		outcome = "corrected"
		res.Warning = fmt.Sprintf("correction cleared results of matches %v; they must be replayed", out.Invalidated)
		s.logger.WarnContext(ctx, "result correction invalidated downstream matches",
			slog.Int("match_id", matchID),
			slog.Any("invalidated", out.Invalidated),
		)
	}
	s.recorder.ResultRecorded(outcome, len(out.Invalidated))

	if championID := champion(b.Matches()); championID != nil {
		s.logger.InfoContext(ctx, "tournament finished", slog.Int("champion_team_id", *championID))
		s.archive(ctx, "final", &BracketView{Matches: b.Matches(), ChampionID: championID})
	}
	return res, nil
}

func (s *bracketService) SwapMatches(ctx context.Context, matchIDA, matchIDB int) (*ResultOutcome, error) {
	unlock, err := s.locker.Lock(ctx, bracketLockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, numberA, err := s.loadBracket(ctx, matchIDA)
	if err != nil {
		return nil, err
	}
	numberB, err := numberOf(b, matchIDB)
	if err != nil {
		return nil, err
	}

	out, err := b.Swap(numberA, numberB)
	if err != nil {
		return nil, s.progressionError(ctx, "swap matches", matchIDA, err)
	}
	if err := s.repo.UpdateMatches(ctx, out.Updated); err != nil {
		return nil, fmt.Errorf("failed to store swapped matches %d and %d: %w", matchIDA, matchIDB, err)
	}

	s.logger.InfoContext(ctx, "matches swapped", slog.Int("match_a", matchIDA), slog.Int("match_b", matchIDB))
	res := &ResultOutcome{Match: out.Match, Updated: out.Updated, Invalidated: out.Invalidated}
	if len(out.Invalidated) > 0 {
		res.Warning = fmt.Sprintf("swap cleared results of matches %v", out.Invalidated)
	}
	return res, nil
}

func (s *bracketService) ClearBracket(ctx context.Context) error {
	unlock, err := s.locker.Lock(ctx, bracketLockKey)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.repo.ReplaceMatches(ctx, nil); err != nil {
		return fmt.Errorf("failed to clear bracket: %w", err)
	}
	s.logger.InfoContext(ctx, "bracket cleared")
	return nil
}

func (s *bracketService) UpdateMatchDetails(ctx context.Context, matchID int, patch repositories.MatchPatch) (*models.Match, error) {
	if patch.Status != nil && *patch.Status != models.MatchStatusUpcoming && *patch.Status != models.MatchStatusLive {
		return nil, ErrInvalidMatchStatus
	}

	unlock, err := s.locker.Lock(ctx, bracketLockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.repo.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, fmt.Errorf("%w: id %d", brackets.ErrMatchNotFound, matchID)
		}
		return nil, fmt.Errorf("failed to load match %d: %w", matchID, err)
	}
	if patch.Status != nil && current.Status == models.MatchStatusFinished {
		return nil, fmt.Errorf("%w: match %d is finished, record a corrected result instead", brackets.ErrMatchAlreadyPlayed, matchID)
	}

	m, err := s.repo.UpdateMatch(ctx, matchID, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update match %d: %w", matchID, err)
	}
	return m, nil
}

// loadBracket reads the stored matches into a progression engine and maps the
// storage id to a match number.
func (s *bracketService) loadBracket(ctx context.Context, matchID int) (*brackets.Bracket, int, error) {
	matches, err := s.repo.ListMatches(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list matches: %w", err)
	}
	b, err := brackets.NewBracket(matches)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load bracket: %w", err)
	}
	number, err := numberOf(b, matchID)
	if err != nil {
		return nil, 0, err
	}
	return b, number, nil
}

func numberOf(b *brackets.Bracket, matchID int) (int, error) {
	for _, m := range b.Matches() {
		if m.ID == matchID {
			return m.Number, nil
		}
	}
	return 0, fmt.Errorf("%w: id %d", brackets.ErrMatchNotFound, matchID)
}

func (s *bracketService) progressionError(ctx context.Context, op string, matchID int, err error) error {
	if errors.Is(err, brackets.ErrDownstreamSlotNotPlaceholder) {
		s.recorder.IntegrityError()
		s.logger.ErrorContext(ctx, "bracket integrity violation",
			slog.String("operation", op),
			slog.Int("match_id", matchID),
			slog.Any("error", err),
		)
		sentry.CaptureException(err)
	}
	return fmt.Errorf("failed to %s for match %d: %w", op, matchID, err)
}

// archive uploads a JSON snapshot of the bracket. Failures are logged only.
func (s *bracketService) archive(ctx context.Context, trigger string, view *BracketView) {
	if s.uploader == nil {
		return
	}
	body, err := json.Marshal(view)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode bracket snapshot", slog.Any("error", err))
		s.recorder.ArchiveFailed()
		return
	}

	key := fmt.Sprintf("brackets/%s/%s-%s.json", s.now().UTC().Format("2006-01-02"), trigger, uuid.NewString())
	res, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to archive bracket snapshot", slog.String("key", key), slog.Any("error", err))
		s.recorder.ArchiveFailed()
		return
	}
	s.logger.InfoContext(ctx, "bracket snapshot archived", slog.String("key", res.Key), slog.String("location", res.Location))

	if trigger == "final" {
		return
	}
	if s.draftKey != "" {
		if err := s.uploader.Delete(ctx, s.draftKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous bracket snapshot", slog.String("key", s.draftKey), slog.Any("error", err))
		}
	}
	s.draftKey = res.Key
}

// champion returns the winner of the last match once it is finished. A lower
// bracket without a grand final ends with two bracket winners and no champion.
func champion(matches []*models.Match) *int {
	var last *models.Match
	for _, m := range matches {
		if last == nil || m.Number > last.Number {
			last = m
		}
	}
	if last == nil || last.Status != models.MatchStatusFinished || last.BracketType == models.BracketLower {
		return nil
	}
	return last.WinnerTeamID()
}

func publicTeams(teams []*models.Team) []*models.Team {
	out := make([]*models.Team, len(teams))
	for i, t := range teams {
		c := *t
		c.AuthCode = ""
		out[i] = &c
	}
	return out
}
