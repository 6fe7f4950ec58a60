package clipstats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aimsports/aim-backend/internal/lib/logger/sl"
	"github.com/aimsports/aim-backend/internal/lib/tally"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/storage"
)

// topPlayers is the size of clip usage summary.
const topPlayers = 4

type Hydrator struct {
	log          *slog.Logger
	statsStorage StatsStorage
}

type StatsStorage interface {
	ClipPossessionContexts(ctx context.Context, clipID int64) ([]models.PossessionContext, error)
	Game(ctx context.Context, id int64) (models.Game, error)
}

func New(
	log *slog.Logger,
	statsStorage StatsStorage,
) *Hydrator {
	return &Hydrator{
		log:          log,
		statsStorage: statsStorage,
	}
}

// Hydrate annotates clip with its game and linked possessions.
func (h *Hydrator) Hydrate(ctx context.Context, clip models.Clip) (models.ClipView, error) {
	const op = "Hydrator.Hydrate"

	log := h.log.With(
		slog.String("op", op),
		slog.Int64("clip_id", clip.ID),
	)

	view := models.ClipView{Clip: clip}

	if clip.GameID != nil {
		game, err := h.statsStorage.Game(ctx, *clip.GameID)
		switch {
		case err == nil:
			view.GameMatchup = &game.Matchup
			view.GameScheduledAt = &game.ScheduledAt
		case errors.Is(err, storage.ErrGameNotFound):
			log.Warn("clip game not found", slog.Int64("game_id", *clip.GameID))
		default:
			log.Error("failed to get game", sl.Err(err))

			return models.ClipView{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	contexts, err := h.statsStorage.ClipPossessionContexts(ctx, clip.ID)
	if err != nil {
		log.Error("failed to get possession contexts", sl.Err(err))

		return models.ClipView{}, fmt.Errorf("%s: %w", op, err)
	}

	view.PossessionContext = contexts
	view.StatsSummary = Summarize(contexts)

	return view, nil
}

// HydrateAll hydrates clips preserving order.
func (h *Hydrator) HydrateAll(ctx context.Context, clips []models.Clip) ([]models.ClipView, error) {
	const op = "Hydrator.HydrateAll"

	res := make([]models.ClipView, 0, len(clips))
	for _, clip := range clips {
		view, err := h.Hydrate(ctx, clip)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, view)
	}

	return res, nil
}

// Summarize returns usage summary of possessions,
// nil when there are none. Possessions without
// a player count toward the total only.
func Summarize(contexts []models.PossessionContext) *models.ClipStatsSummary {
	if len(contexts) == 0 {
		return nil
	}

	touches := tally.New()
	for _, pc := range contexts {
		if pc.Player != nil {
			touches.Add(*pc.Player)
		}
	}

	players := make([]models.PlayerTouch, 0, topPlayers)
	for _, e := range touches.MostCommon(topPlayers) {
		players = append(players, models.PlayerTouch{Player: e.Key, Touches: e.Count})
	}

	return &models.ClipStatsSummary{
		TotalPossessions: len(contexts),
		Players:          players,
	}
}
