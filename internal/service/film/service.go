package film

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aimsports/aim-backend/internal/client/gateway"
	"github.com/aimsports/aim-backend/internal/lib/ffmpeg"
	"github.com/aimsports/aim-backend/internal/lib/logger/sl"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
	srcService "github.com/aimsports/aim-backend/internal/service/source"
	"github.com/aimsports/aim-backend/internal/storage"
)

// bytesPerSecond estimates duration from file size when ffprobe is missing.
const bytesPerSecond = 4_000_000

// Film manages raw game uploads and their segments.
type Film struct {
	log         *slog.Logger
	filmStorage FilmStorage
	source      Source
	gameFinder  GameFinder
	prober      Prober
	segmenter   Segmenter
	linker      Linker
}

type FilmStorage interface {
	SaveUpload(ctx context.Context, u models.Upload) (int64, error)
	Upload(ctx context.Context, id int64) (models.Upload, error)
	Uploads(ctx context.Context, teamID int64) ([]models.Upload, error)
	DeleteUpload(ctx context.Context, id int64) error
	SetUploadStatus(ctx context.Context, id int64, status string) error
	FinishUpload(ctx context.Context, id int64, duration *int, segments []models.Segment) error
	SaveSegment(ctx context.Context, seg models.Segment) (int64, error)
	Segment(ctx context.Context, id int64) (models.Segment, error)
	Segments(ctx context.Context, uploadID int64) ([]models.Segment, error)
	SaveClip(ctx context.Context, c models.Clip) (int64, error)
}

type Source interface {
	UploadSource(ctx context.Context, path string, ext string) (string, error)
	SourcePath(storageURL string) (string, error)
	SourceSize(storageURL string) (int64, error)
	DeleteSource(ctx context.Context, storageURL string) error
}

type GameFinder interface {
	FindGameForUpload(ctx context.Context, title string, notes *string) (*models.Game, error)
}

type Prober interface {
	Duration(ctx context.Context, file string) (float64, error)
}

type Segmenter interface {
	Segments(ctx context.Context, req gateway.SegmentRequest) ([]models.Segment, error)
}

type Linker interface {
	RecomputeLinks(ctx context.Context, clip models.Clip) (int, error)
}

// New returns film service. Segmenter may be nil,
// then segments are always suggested locally.
func New(
	log *slog.Logger,
	filmStorage FilmStorage,
	source Source,
	gameFinder GameFinder,
	prober Prober,
	segmenter Segmenter,
	linker Linker,
) *Film {
	return &Film{
		log:         log,
		filmStorage: filmStorage,
		source:      source,
		gameFinder:  gameFinder,
		prober:      prober,
		segmenter:   segmenter,
		linker:      linker,
	}
}

// Uploads returns team uploads, newest first.
func (f *Film) Uploads(ctx context.Context, teamID int64) ([]models.Upload, error) {
	const op = "Film.Uploads"

	res, err := f.filmStorage.Uploads(ctx, teamID)
	if err != nil {
		f.log.Error("failed to get uploads", slog.String("op", op), slog.Int64("team_id", teamID), sl.Err(err))

		return []models.Upload{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// Upload returns team upload.
//
// Upload of another team is reported as not found.
func (f *Film) Upload(ctx context.Context, teamID int64, uploadID int64) (models.Upload, error) {
	const op = "Film.Upload"

	u, err := f.filmStorage.Upload(ctx, uploadID)
	if err != nil {
		if errors.Is(err, storage.ErrUploadNotFound) {
			return models.Upload{}, fmt.Errorf("%s: %w", op, service.ErrUploadNotFound)
		}

		f.log.Error("failed to get upload", slog.String("op", op), slog.Int64("id", uploadID), sl.Err(err))

		return models.Upload{}, fmt.Errorf("%s: %w", op, err)
	}
	if u.TeamID != teamID {
		return models.Upload{}, fmt.Errorf("%s: %w", op, service.ErrUploadNotFound)
	}

	return u, nil
}

// CreateUpload stores the file at path, assigns the upload to
// a game mentioned in its title or notes and processes it.
//
// Processing failure does not fail the upload,
// the returned upload has error status then.
func (f *Film) CreateUpload(ctx context.Context, teamID int64, userID int64, in models.UploadIn, path string, ext string) (models.Upload, error) {
	const op = "Film.CreateUpload"

	log := f.log.With(
		slog.String("op", op),
		slog.Int64("team_id", teamID),
		slog.Int64("uid", userID),
	)

	url, err := f.source.UploadSource(ctx, path, ext)
	if err != nil {
		log.Error("failed to save file", sl.Err(err))

		return models.Upload{}, fmt.Errorf("%s: %w", op, err)
	}

	u := models.Upload{
		TeamID:       teamID,
		UploadedByID: &userID,
		Title:        in.Title,
		Notes:        in.Notes,
		StorageURL:   url,
		Status:       models.UploadPending,
		UploadedAt:   time.Now().UTC(),
	}

	game, err := f.gameFinder.FindGameForUpload(ctx, in.Title, in.Notes)
	if err != nil {
		log.Warn("failed to find game for upload", sl.Err(err))
	} else if game != nil {
		u.GameID = &game.ID
	}

	u.ID, err = f.filmStorage.SaveUpload(ctx, u)
	if err != nil {
		log.Error("failed to save upload", sl.Err(err))

		if err := f.source.DeleteSource(ctx, url); err != nil {
			log.Error("failed to delete orphan file", sl.Err(err))
		}

		return models.Upload{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("upload saved", slog.Int64("id", u.ID))

	processed, err := f.ProcessUpload(ctx, teamID, u.ID)
	if err != nil {
		log.Warn("upload processing failed", slog.Int64("id", u.ID), sl.Err(err))

		u, err = f.Upload(ctx, teamID, u.ID)
		if err != nil {
			return models.Upload{}, fmt.Errorf("%s: %w", op, err)
		}
		return u, nil
	}

	return processed, nil
}

// ProcessUpload probes upload duration and, if the upload has no
// segments yet, stores suggested ones. Suggestions are requested
// from the gateway first and computed locally when it fails.
//
// Status is processing while working, then ready.
// On failure status is error and no segments are stored.
func (f *Film) ProcessUpload(ctx context.Context, teamID int64, uploadID int64) (models.Upload, error) {
	const op = "Film.ProcessUpload"

	log := f.log.With(
		slog.String("op", op),
		slog.Int64("upload_id", uploadID),
	)

	u, err := f.Upload(ctx, teamID, uploadID)
	if err != nil {
		return models.Upload{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := f.filmStorage.SetUploadStatus(ctx, u.ID, models.UploadProcessing); err != nil {
		log.Error("failed to set status", sl.Err(err))

		return models.Upload{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := f.process(ctx, log, u); err != nil {
		if err := f.filmStorage.SetUploadStatus(context.WithoutCancel(ctx), u.ID, models.UploadError); err != nil {
			log.Error("failed to set error status", sl.Err(err))
		}

		return models.Upload{}, fmt.Errorf("%s: %w", op, err)
	}

	u, err = f.Upload(ctx, teamID, uploadID)
	if err != nil {
		return models.Upload{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("upload processed", slog.String("status", u.Status))

	return u, nil
}

func (f *Film) process(ctx context.Context, log *slog.Logger, u models.Upload) error {
	duration, known := f.probe(ctx, log, u)

	var durationSeconds *int
	if known {
		d := int(duration)
		durationSeconds = &d
	}

	existing, err := f.filmStorage.Segments(ctx, u.ID)
	if err != nil {
		log.Error("failed to get segments", sl.Err(err))

		return err
	}

	segments := []models.Segment{}
	if len(existing) == 0 && duration > 0 {
		segments = f.suggest(ctx, log, u, durationSeconds, duration)
	}

	if err := f.filmStorage.FinishUpload(ctx, u.ID, durationSeconds, segments); err != nil {
		log.Error("failed to finish upload", sl.Err(err))

		return err
	}

	return nil
}

// probe returns video duration in seconds, false if it is unknown.
func (f *Film) probe(ctx context.Context, log *slog.Logger, u models.Upload) (float64, bool) {
	path, err := f.source.SourcePath(u.StorageURL)
	if err != nil {
		log.Warn("upload file is missing", sl.Err(err))

		return 0, false
	}

	duration, err := f.prober.Duration(ctx, path)
	if err == nil {
		return duration, true
	}
	if !errors.Is(err, ffmpeg.ErrProbeUnavailable) {
		log.Warn("failed to probe duration", sl.Err(err))

		return 0, false
	}

	size, err := f.source.SourceSize(u.StorageURL)
	if err != nil || size == 0 {
		return 0, false
	}

	log.Debug("ffprobe is not available, estimating duration by size")

	return float64(size) / bytesPerSecond, true
}

func (f *Film) suggest(ctx context.Context, log *slog.Logger, u models.Upload, durationSeconds *int, duration float64) []models.Segment {
	if f.segmenter != nil {
		segments, err := f.segmenter.Segments(ctx, gateway.SegmentRequest{
			UploadID:        u.ID,
			StorageURL:      u.StorageURL,
			DurationSeconds: durationSeconds,
			GameID:          u.GameID,
			Title:           u.Title,
		})
		if err != nil && !errors.Is(err, gateway.ErrDisabled) {
			log.Warn("gateway failed, suggesting segments locally", sl.Err(err))
		}
		if err == nil && len(segments) > 0 {
			return segments
		}
	}

	return Suggest(duration)
}

// DeleteUpload deletes upload with its segments,
// clips published from it and its file.
func (f *Film) DeleteUpload(ctx context.Context, teamID int64, uploadID int64) error {
	const op = "Film.DeleteUpload"

	log := f.log.With(
		slog.String("op", op),
		slog.Int64("upload_id", uploadID),
	)

	u, err := f.Upload(ctx, teamID, uploadID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := f.filmStorage.DeleteUpload(ctx, u.ID); err != nil {
		if errors.Is(err, storage.ErrUploadNotFound) {
			return fmt.Errorf("%s: %w", op, service.ErrUploadNotFound)
		}

		log.Error("failed to delete upload", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := f.source.DeleteSource(ctx, u.StorageURL); err != nil {
		log.Warn("failed to delete upload file", sl.Err(err))
	}

	log.Info("upload deleted")

	return nil
}

// UploadPath returns local path of upload file.
func (f *Film) UploadPath(ctx context.Context, teamID int64, uploadID int64) (string, error) {
	const op = "Film.UploadPath"

	u, err := f.Upload(ctx, teamID, uploadID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	path, err := f.source.SourcePath(u.StorageURL)
	if err != nil {
		if errors.Is(err, srcService.ErrSourceNotFound) {
			return "", fmt.Errorf("%s: %w", op, service.ErrUploadNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return path, nil
}

// Segments returns upload segments ordered by start.
func (f *Film) Segments(ctx context.Context, teamID int64, uploadID int64) ([]models.Segment, error) {
	const op = "Film.Segments"

	if _, err := f.Upload(ctx, teamID, uploadID); err != nil {
		return []models.Segment{}, fmt.Errorf("%s: %w", op, err)
	}

	res, err := f.filmStorage.Segments(ctx, uploadID)
	if err != nil {
		f.log.Error("failed to get segments", slog.String("op", op), sl.Err(err))

		return []models.Segment{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// CreateSegment marks a segment of the upload.
func (f *Film) CreateSegment(ctx context.Context, teamID int64, uploadID int64, userID int64, in models.SegmentIn) (models.Segment, error) {
	const op = "Film.CreateSegment"

	log := f.log.With(
		slog.String("op", op),
		slog.Int64("upload_id", uploadID),
		slog.Int64("uid", userID),
	)

	if _, err := f.Upload(ctx, teamID, uploadID); err != nil {
		return models.Segment{}, fmt.Errorf("%s: %w", op, err)
	}

	seg := models.Segment{
		UploadID:    uploadID,
		StartSecond: in.StartSecond,
		EndSecond:   in.EndSecond,
		Label:       in.Label,
		Notes:       in.Notes,
		Confidence:  in.Confidence,
		CreatedByID: &userID,
		CreatedAt:   time.Now().UTC(),
	}
	if !seg.Range().Valid() {
		return models.Segment{}, fmt.Errorf("%s: %w", op, service.ErrInvalidRange)
	}

	id, err := f.filmStorage.SaveSegment(ctx, seg)
	if err != nil {
		log.Error("failed to save segment", sl.Err(err))

		return models.Segment{}, fmt.Errorf("%s: %w", op, err)
	}
	seg.ID = id

	log.Info("segment created", slog.Int64("id", id))

	return seg, nil
}

// PublishSegment creates a clip from segment and links it
// to possessions overlapping the segment.
//
// Linking failure is logged, the clip is published anyway.
func (f *Film) PublishSegment(ctx context.Context, teamID int64, uploadID int64, segmentID int64, userID int64) (models.Clip, error) {
	const op = "Film.PublishSegment"

	log := f.log.With(
		slog.String("op", op),
		slog.Int64("upload_id", uploadID),
		slog.Int64("segment_id", segmentID),
	)

	u, err := f.Upload(ctx, teamID, uploadID)
	if err != nil {
		return models.Clip{}, fmt.Errorf("%s: %w", op, err)
	}

	seg, err := f.filmStorage.Segment(ctx, segmentID)
	if err != nil {
		if errors.Is(err, storage.ErrSegmentNotFound) {
			return models.Clip{}, fmt.Errorf("%s: %w", op, service.ErrSegmentNotFound)
		}

		log.Error("failed to get segment", sl.Err(err))

		return models.Clip{}, fmt.Errorf("%s: %w", op, err)
	}
	if seg.UploadID != u.ID {
		return models.Clip{}, fmt.Errorf("%s: %w", op, service.ErrSegmentNotFound)
	}

	title := u.Title
	if seg.Label != nil && *seg.Label != "" {
		title = *seg.Label
	}

	clip := models.Clip{
		TeamID:            &teamID,
		GameID:            u.GameID,
		UploadedByID:      &userID,
		Title:             title,
		Notes:             seg.Notes,
		Status:            models.ClipPublished,
		StorageURL:        u.StorageURL,
		UploadedAt:        time.Now().UTC(),
		SourceUploadID:    &u.ID,
		SourceStartSecond: &seg.StartSecond,
		SourceEndSecond:   &seg.EndSecond,
	}

	clip.ID, err = f.filmStorage.SaveClip(ctx, clip)
	if err != nil {
		log.Error("failed to save clip", sl.Err(err))

		return models.Clip{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("segment published", slog.Int64("clip_id", clip.ID))

	if _, err := f.linker.RecomputeLinks(ctx, clip); err != nil {
		log.Error("failed to link clip", slog.Int64("clip_id", clip.ID), sl.Err(err))
	}

	return clip, nil
}
