package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	jwtController "github.com/aimsports/aim-backend/internal/controller/jwt"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
)

// New returns an fiber.App accepting possession spreadsheets.
func New(
	timeout time.Duration,
	srv Ingest,
	jwtC *jwtController.JWT,
) *fiber.App {
	ingestCtr := ingestController{
		timeout: timeout,
		srv:     srv,
	}

	app := fiber.New()

	app.Use(jwtC.AuthRequired())

	app.Post("/possessions", ingestCtr.possessions)

	return app
}

type ingestController struct {
	timeout time.Duration
	srv     Ingest
}

type Ingest interface {
	IngestCSV(ctx context.Context, r io.Reader, matchup string, scheduledAt time.Time) (models.Game, error)
}

// possessions creates a game from multipart form:
// matchup, scheduled_at (RFC3339, defaults to now) and csv file.
func (ingestCtr *ingestController) possessions(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), ingestCtr.timeout)
	defer cancel()

	matchup := strings.TrimSpace(c.FormValue("matchup"))
	if matchup == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "matchup required",
		})
	}

	scheduledAt := time.Now()
	if s := c.FormValue("scheduled_at"); s != "" {
		var err error
		scheduledAt, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid scheduled_at",
			})
		}
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	defer file.Close()

	game, err := ingestCtr.srv.IngestCSV(ctx, file, matchup, scheduledAt)
	if err != nil {
		var rowErr *service.RowError
		switch {
		case errors.As(err, &rowErr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": rowErr.Msg,
				"line":  rowErr.Line,
				"field": rowErr.Field,
			})
		case errors.Is(err, service.ErrMissingMatchup):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "matchup required",
			})
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusCreated).JSON(game)
}
