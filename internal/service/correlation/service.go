package correlation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aimsports/aim-backend/internal/lib/logger/sl"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
	"github.com/aimsports/aim-backend/internal/storage"
)

// Correlation keeps clip to possession links
// consistent with clip source ranges.
type Correlation struct {
	log         *slog.Logger
	linkStorage LinkStorage
	scopeToGame bool
	locks       *keyedMutex
}

type LinkStorage interface {
	RelinkClip(ctx context.Context, clipID int64, rng models.Range, gameID *int64) ([]int64, error)
	Clip(ctx context.Context, id int64) (models.Clip, error)
	Possession(ctx context.Context, id int64) (models.Possession, error)
	SetPossessionRange(ctx context.Context, id int64, rng models.Range) error
	ClipsForPossession(ctx context.Context, possessionID int64, rng models.Range) ([]models.Clip, error)
}

// New returns correlation service.
//
// With scopeToGame only possessions of the clip's game
// are linked, clips without a game are never linked.
func New(
	log *slog.Logger,
	linkStorage LinkStorage,
	scopeToGame bool,
) *Correlation {
	return &Correlation{
		log:         log,
		linkStorage: linkStorage,
		scopeToGame: scopeToGame,
		locks:       newKeyedMutex(),
	}
}

// RecomputeLinks replaces clip links with possessions
// overlapping clip source range and returns their count.
//
// Clip without source range is left untouched.
// If nothing overlaps, existing links are kept.
func (c *Correlation) RecomputeLinks(ctx context.Context, clip models.Clip) (int, error) {
	const op = "Correlation.RecomputeLinks"

	log := c.log.With(
		slog.String("op", op),
		slog.Int64("clip_id", clip.ID),
	)

	rng, ok := clip.SourceRange()
	if !ok {
		log.Debug("clip has no source range")
		return 0, nil
	}

	var gameID *int64
	if c.scopeToGame {
		if clip.GameID == nil {
			log.Debug("clip has no game, skip linking")
			return 0, nil
		}
		gameID = clip.GameID
	}

	unlock := c.locks.Lock(clip.ID)
	defer unlock()

	ids, err := c.linkStorage.RelinkClip(ctx, clip.ID, rng, gameID)
	if err != nil {
		log.Error("failed to relink clip", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if len(ids) == 0 {
		log.Debug("no overlapping possessions, links kept")
	} else {
		log.Info("clip relinked", slog.Int("possessions", len(ids)))
	}

	return len(ids), nil
}

// RelinkClip recomputes links of the stored clip.
func (c *Correlation) RelinkClip(ctx context.Context, clipID int64) (int, error) {
	const op = "Correlation.RelinkClip"

	clip, err := c.linkStorage.Clip(ctx, clipID)
	if err != nil {
		if errors.Is(err, storage.ErrClipNotFound) {
			return 0, fmt.Errorf("%s: %w", op, service.ErrClipNotFound)
		}

		c.log.Error("failed to get clip", slog.String("op", op), sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := c.RecomputeLinks(ctx, clip)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// SetPossessionRange tags possession with video range and
// recomputes links of every clip it may affect: clips
// overlapping the new range and clips already linked to it.
func (c *Correlation) SetPossessionRange(ctx context.Context, possessionID int64, rng models.Range) (models.Possession, error) {
	const op = "Correlation.SetPossessionRange"

	log := c.log.With(
		slog.String("op", op),
		slog.Int64("possession_id", possessionID),
	)

	if !rng.Valid() {
		return models.Possession{}, fmt.Errorf("%s: %w", op, service.ErrInvalidRange)
	}

	if err := c.linkStorage.SetPossessionRange(ctx, possessionID, rng); err != nil {
		if errors.Is(err, storage.ErrPossessionNotFound) {
			log.Warn("possession not found")

			return models.Possession{}, fmt.Errorf("%s: %w", op, service.ErrPossessionNotFound)
		}

		log.Error("failed to set possession range", sl.Err(err))

		return models.Possession{}, fmt.Errorf("%s: %w", op, err)
	}

	clips, err := c.linkStorage.ClipsForPossession(ctx, possessionID, rng)
	if err != nil {
		log.Error("failed to get affected clips", sl.Err(err))

		return models.Possession{}, fmt.Errorf("%s: %w", op, err)
	}

	for _, clip := range clips {
		if _, err := c.RecomputeLinks(ctx, clip); err != nil {
			return models.Possession{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Info("possession range updated", slog.Int("clips", len(clips)))

	p, err := c.linkStorage.Possession(ctx, possessionID)
	if err != nil {
		return models.Possession{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}
