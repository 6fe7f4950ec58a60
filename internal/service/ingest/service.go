package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aimsports/aim-backend/internal/lib/logger/sl"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
)

// Ingest turns possession spreadsheets into games.
type Ingest struct {
	log          *slog.Logger
	gameStorage  GameStorage
	uploadLinker UploadLinker
}

type GameStorage interface {
	IngestGame(ctx context.Context, game models.Game, rows []models.PossessionRow) (models.Game, error)
}

type UploadLinker interface {
	LinkUploadsToGame(ctx context.Context, game models.Game) (int, error)
}

func New(
	log *slog.Logger,
	gameStorage GameStorage,
	uploadLinker UploadLinker,
) *Ingest {
	return &Ingest{
		log:          log,
		gameStorage:  gameStorage,
		uploadLinker: uploadLinker,
	}
}

// Ingest creates game with one possession per row
// and links unassigned uploads mentioning its matchup.
//
// Rows are validated before anything is saved,
// invalid row returns *service.RowError.
func (i *Ingest) Ingest(ctx context.Context, rows []models.PossessionRow, matchup string, scheduledAt time.Time) (models.Game, error) {
	const op = "Ingest.Ingest"

	matchup = strings.TrimSpace(matchup)

	log := i.log.With(
		slog.String("op", op),
		slog.String("matchup", matchup),
	)

	if matchup == "" {
		return models.Game{}, fmt.Errorf("%s: %w", op, service.ErrMissingMatchup)
	}

	for _, row := range rows {
		if err := validateRow(row); err != nil {
			log.Warn("invalid row", sl.Err(err))

			return models.Game{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Info("ingesting possessions", slog.Int("rows", len(rows)))

	game, err := i.gameStorage.IngestGame(ctx, models.Game{
		Matchup:     matchup,
		ScheduledAt: scheduledAt.UTC(),
	}, rows)
	if err != nil {
		log.Error("failed to ingest game", sl.Err(err))

		return models.Game{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("game ingested", slog.Int64("game_id", game.ID))

	if i.uploadLinker != nil {
		if _, err := i.uploadLinker.LinkUploadsToGame(ctx, game); err != nil {
			log.Warn("failed to link uploads to game", sl.Err(err))
		}
	}

	return game, nil
}

// IngestCSV parses r and ingests its rows.
func (i *Ingest) IngestCSV(ctx context.Context, r io.Reader, matchup string, scheduledAt time.Time) (models.Game, error) {
	const op = "Ingest.IngestCSV"

	rows, err := ParseCSV(r)
	if err != nil {
		i.log.Warn("failed to parse csv", slog.String("op", op), sl.Err(err))

		return models.Game{}, fmt.Errorf("%s: %w", op, err)
	}

	game, err := i.Ingest(ctx, rows, matchup, scheduledAt)
	if err != nil {
		return models.Game{}, fmt.Errorf("%s: %w", op, err)
	}

	return game, nil
}
