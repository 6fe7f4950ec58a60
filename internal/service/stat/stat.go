package stat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aimsports/aim-backend/internal/lib/logger/sl"
	"github.com/aimsports/aim-backend/internal/lib/tally"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
	"github.com/aimsports/aim-backend/internal/storage"
)

const (
	unassignedTeam = "Unassigned"
	topPlayers     = 4

	// Placeholder efficiency metrics.
	effectiveFG  = 55.0
	turnoverRate = 12.5
)

type Stat struct {
	log         *slog.Logger
	gameStorage GameStorage
}

type GameStorage interface {
	LatestGame(ctx context.Context, matchup string) (models.Game, error)
	GamePossessionContexts(ctx context.Context, gameID int64) ([]models.PossessionContext, error)
	GamePossessions(ctx context.Context, gameID int64) ([]models.Possession, error)
	Game(ctx context.Context, id int64) (models.Game, error)
}

func New(
	log *slog.Logger,
	gameStorage GameStorage,
) *Stat {
	return &Stat{
		log:         log,
		gameStorage: gameStorage,
	}
}

// GetStats summarizes the most recently scheduled game.
// Empty matchup selects among all games.
func (s *Stat) GetStats(ctx context.Context, matchup string) (models.GameStats, error) {
	const op = "Stat.GetStats"

	log := s.log.With(
		slog.String("op", op),
		slog.String("matchup", matchup),
	)

	game, err := s.gameStorage.LatestGame(ctx, matchup)
	if err != nil {
		if errors.Is(err, storage.ErrGameNotFound) {
			log.Warn("game not found")

			return models.GameStats{}, fmt.Errorf("%s: %w", op, service.ErrGameNotFound)
		}

		log.Error("failed to get game", sl.Err(err))

		return models.GameStats{}, fmt.Errorf("%s: %w", op, err)
	}

	contexts, err := s.gameStorage.GamePossessionContexts(ctx, game.ID)
	if err != nil {
		log.Error("failed to get possessions", sl.Err(err))

		return models.GameStats{}, fmt.Errorf("%s: %w", op, err)
	}

	return Aggregate(game, contexts), nil
}

// Aggregate computes game stats over its possessions.
func Aggregate(game models.Game, contexts []models.PossessionContext) models.GameStats {
	total := len(contexts)
	if total == 0 {
		total = 1
	}

	teams := tally.New()
	players := tally.New()
	for _, pc := range contexts {
		team := unassignedTeam
		if pc.Team != nil {
			team = *pc.Team
		}
		teams.Add(team)

		if pc.Player != nil {
			players.Add(*pc.Player)
		}
	}

	splits := make([]models.PossessionSplit, 0)
	for _, e := range teams.All() {
		splits = append(splits, models.PossessionSplit{
			Team:       e.Key,
			Percentage: int(float64(e.Count) / float64(total) * 100),
		})
	}
	if len(splits) == 0 {
		splits = append(splits, models.PossessionSplit{Team: unassignedTeam, Percentage: 100})
	}

	insights := make([]models.PlayerInsight, 0, topPlayers)
	for _, e := range players.MostCommon(topPlayers) {
		insights = append(insights, models.PlayerInsight{
			Player: e.Key,
			Label:  "High usage",
			Detail: fmt.Sprintf("Involved in %d possessions", e.Count),
		})
	}

	return models.GameStats{
		Matchup:    game.Matchup,
		Possession: splits,
		Insights:   insights,
		Summary: models.GameSummary{
			OffensiveRating: float64(total * 2),
			EffectiveFG:     effectiveFG,
			TurnoverRate:    turnoverRate,
		},
	}
}

// GamePossessions returns all possessions of the game.
func (s *Stat) GamePossessions(ctx context.Context, gameID int64) ([]models.Possession, error) {
	const op = "Stat.GamePossessions"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("game_id", gameID),
	)

	if _, err := s.gameStorage.Game(ctx, gameID); err != nil {
		if errors.Is(err, storage.ErrGameNotFound) {
			return []models.Possession{}, fmt.Errorf("%s: %w", op, service.ErrGameNotFound)
		}

		log.Error("failed to get game", sl.Err(err))

		return []models.Possession{}, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.gameStorage.GamePossessions(ctx, gameID)
	if err != nil {
		log.Error("failed to get possessions", sl.Err(err))

		return []models.Possession{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}
