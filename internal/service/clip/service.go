package clip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aimsports/aim-backend/internal/lib/logger/sl"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
	srcService "github.com/aimsports/aim-backend/internal/service/source"
	"github.com/aimsports/aim-backend/internal/storage"
)

type Clip struct {
	log         *slog.Logger
	clipStorage ClipStorage
	source      Source
	hydrator    Hydrator
	linker      Linker
}

type ClipStorage interface {
	SaveClip(ctx context.Context, c models.Clip) (int64, error)
	Clip(ctx context.Context, id int64) (models.Clip, error)
	Clips(ctx context.Context, teamID int64) ([]models.Clip, error)
	DeleteClip(ctx context.Context, id int64) error
	Game(ctx context.Context, id int64) (models.Game, error)
}

type Source interface {
	UploadSource(ctx context.Context, path string, ext string) (string, error)
	SourcePath(storageURL string) (string, error)
	DeleteSource(ctx context.Context, storageURL string) error
}

type Hydrator interface {
	Hydrate(ctx context.Context, clip models.Clip) (models.ClipView, error)
	HydrateAll(ctx context.Context, clips []models.Clip) ([]models.ClipView, error)
}

type Linker interface {
	RecomputeLinks(ctx context.Context, clip models.Clip) (int, error)
}

func New(
	log *slog.Logger,
	clipStorage ClipStorage,
	source Source,
	hydrator Hydrator,
	linker Linker,
) *Clip {
	return &Clip{
		log:         log,
		clipStorage: clipStorage,
		source:      source,
		hydrator:    hydrator,
		linker:      linker,
	}
}

// Clips returns team clips with game info and possession stats.
func (c *Clip) Clips(ctx context.Context, teamID int64) ([]models.ClipView, error) {
	const op = "Clip.Clips"

	log := c.log.With(
		slog.String("op", op),
		slog.Int64("team_id", teamID),
	)

	clips, err := c.clipStorage.Clips(ctx, teamID)
	if err != nil {
		log.Error("failed to get clips", sl.Err(err))

		return []models.ClipView{}, fmt.Errorf("%s: %w", op, err)
	}

	res, err := c.hydrator.HydrateAll(ctx, clips)
	if err != nil {
		return []models.ClipView{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// Clip returns hydrated team clip.
func (c *Clip) Clip(ctx context.Context, teamID int64, clipID int64) (models.ClipView, error) {
	const op = "Clip.Clip"

	clip, err := c.teamClip(ctx, teamID, clipID)
	if err != nil {
		return models.ClipView{}, fmt.Errorf("%s: %w", op, err)
	}

	view, err := c.hydrator.Hydrate(ctx, clip)
	if err != nil {
		return models.ClipView{}, fmt.Errorf("%s: %w", op, err)
	}

	return view, nil
}

func (c *Clip) teamClip(ctx context.Context, teamID int64, clipID int64) (models.Clip, error) {
	clip, err := c.clipStorage.Clip(ctx, clipID)
	if err != nil {
		if errors.Is(err, storage.ErrClipNotFound) {
			return models.Clip{}, service.ErrClipNotFound
		}

		c.log.Error("failed to get clip", slog.Int64("id", clipID), sl.Err(err))

		return models.Clip{}, err
	}
	if clip.TeamID == nil || *clip.TeamID != teamID {
		return models.Clip{}, service.ErrClipNotFound
	}

	return clip, nil
}

// UploadClip saves standalone clip file.
func (c *Clip) UploadClip(ctx context.Context, teamID int64, userID int64, in models.ClipIn, path string, ext string) (models.ClipView, error) {
	const op = "Clip.UploadClip"

	log := c.log.With(
		slog.String("op", op),
		slog.Int64("team_id", teamID),
		slog.Int64("uid", userID),
	)

	if in.GameID != nil {
		if _, err := c.clipStorage.Game(ctx, *in.GameID); err != nil {
			if errors.Is(err, storage.ErrGameNotFound) {
				log.Warn("game not found", slog.Int64("game_id", *in.GameID))

				return models.ClipView{}, fmt.Errorf("%s: %w", op, service.ErrGameNotFound)
			}

			log.Error("failed to get game", sl.Err(err))

			return models.ClipView{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	url, err := c.source.UploadSource(ctx, path, ext)
	if err != nil {
		log.Error("failed to save file", sl.Err(err))

		return models.ClipView{}, fmt.Errorf("%s: %w", op, err)
	}

	clip := models.Clip{
		TeamID:       &teamID,
		GameID:       in.GameID,
		UploadedByID: &userID,
		Title:        in.Title,
		Notes:        in.Notes,
		Status:       models.ClipUploaded,
		StorageURL:   url,
		UploadedAt:   time.Now().UTC(),
	}

	clip.ID, err = c.clipStorage.SaveClip(ctx, clip)
	if err != nil {
		log.Error("failed to save clip", sl.Err(err))

		if err := c.source.DeleteSource(ctx, url); err != nil {
			log.Error("failed to delete orphan file", sl.Err(err))
		}

		return models.ClipView{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("clip uploaded", slog.Int64("id", clip.ID))

	view, err := c.hydrator.Hydrate(ctx, clip)
	if err != nil {
		return models.ClipView{}, fmt.Errorf("%s: %w", op, err)
	}

	return view, nil
}

// DeleteClip deletes clip uploaded by the user.
//
// File is kept if the clip was published from
// a game upload, it belongs to the upload.
func (c *Clip) DeleteClip(ctx context.Context, teamID int64, clipID int64, userID int64) error {
	const op = "Clip.DeleteClip"

	log := c.log.With(
		slog.String("op", op),
		slog.Int64("clip_id", clipID),
		slog.Int64("uid", userID),
	)

	clip, err := c.teamClip(ctx, teamID, clipID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if clip.UploadedByID == nil || *clip.UploadedByID != userID {
		log.Warn("attempt to delete foreign clip")

		return fmt.Errorf("%s: %w", op, service.ErrForbidden)
	}

	if err := c.clipStorage.DeleteClip(ctx, clip.ID); err != nil {
		if errors.Is(err, storage.ErrClipNotFound) {
			return fmt.Errorf("%s: %w", op, service.ErrClipNotFound)
		}

		log.Error("failed to delete clip", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if clip.SourceUploadID == nil {
		if err := c.source.DeleteSource(ctx, clip.StorageURL); err != nil {
			log.Warn("failed to delete clip file", sl.Err(err))
		}
	}

	log.Info("clip deleted")

	return nil
}

// ClipPath returns local path of clip file.
func (c *Clip) ClipPath(ctx context.Context, teamID int64, clipID int64) (string, error) {
	const op = "Clip.ClipPath"

	clip, err := c.teamClip(ctx, teamID, clipID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	path, err := c.source.SourcePath(clip.StorageURL)
	if err != nil {
		if errors.Is(err, srcService.ErrSourceNotFound) {
			return "", fmt.Errorf("%s: %w", op, service.ErrClipNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return path, nil
}

// Relink recomputes possession links of team clip
// and returns it hydrated.
func (c *Clip) Relink(ctx context.Context, teamID int64, clipID int64) (models.ClipView, error) {
	const op = "Clip.Relink"

	clip, err := c.teamClip(ctx, teamID, clipID)
	if err != nil {
		return models.ClipView{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := c.linker.RecomputeLinks(ctx, clip); err != nil {
		return models.ClipView{}, fmt.Errorf("%s: %w", op, err)
	}

	view, err := c.hydrator.Hydrate(ctx, clip)
	if err != nil {
		return models.ClipView{}, fmt.Errorf("%s: %w", op, err)
	}

	return view, nil
}
