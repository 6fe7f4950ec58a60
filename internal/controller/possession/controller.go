package possession

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	jwtController "github.com/aimsports/aim-backend/internal/controller/jwt"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
)

// New returns an fiber.App tagging possessions with video ranges.
// Must be mounted at /possessions.
func New(
	timeout time.Duration,
	tagger Tagger,
	jwtC *jwtController.JWT,
) *fiber.App {
	posCtr := possessionController{
		timeout: timeout,
		tagger:  tagger,
	}

	app := fiber.New()

	app.Use(jwtC.AuthRequired())

	app.Put("/:id/range", posCtr.setRange)

	return app
}

// NewGames returns an fiber.App listing game possessions.
// Must be mounted at /games.
func NewGames(
	timeout time.Duration,
	games Games,
	jwtC *jwtController.JWT,
) *fiber.App {
	posCtr := possessionController{
		timeout: timeout,
		games:   games,
	}

	app := fiber.New()

	app.Use(jwtC.AuthRequired())

	app.Get("/:game_id/possessions", posCtr.gamePossessions)

	return app
}

type possessionController struct {
	timeout time.Duration
	tagger  Tagger
	games   Games
}

type Tagger interface {
	SetPossessionRange(ctx context.Context, possessionID int64, rng models.Range) (models.Possession, error)
}

type Games interface {
	GamePossessions(ctx context.Context, gameID int64) ([]models.Possession, error)
}

func (posCtr *possessionController) setRange(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), posCtr.timeout)
	defer cancel()

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad possession id",
		})
	}

	var rng models.Range
	if err := c.BodyParser(&rng); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid json",
		})
	}

	p, err := posCtr.tagger.SetPossessionRange(ctx, int64(id), rng)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRange):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "end_second must be greater than start_second",
			})
		case errors.Is(err, service.ErrPossessionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "possession not found",
			})
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(p)
}

func (posCtr *possessionController) gamePossessions(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), posCtr.timeout)
	defer cancel()

	gameID, err := c.ParamsInt("game_id")
	if err != nil || gameID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad game id",
		})
	}

	res, err := posCtr.games.GamePossessions(ctx, int64(gameID))
	if err != nil {
		if errors.Is(err, service.ErrGameNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "game not found",
			})
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"possessions": res,
	})
}
