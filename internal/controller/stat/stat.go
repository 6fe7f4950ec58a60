package stat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	jwtController "github.com/aimsports/aim-backend/internal/controller/jwt"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
)

// New returns an fiber.App serving game dashboard stats.
func New(
	timeout time.Duration,
	stat Stat,
	search GameSearch,
	jwtC *jwtController.JWT,
) *fiber.App {
	statCtr := &statController{
		timeout: timeout,
		stat:    stat,
		search:  search,
	}

	app := fiber.New()

	app.Use(jwtC.AuthRequired())

	app.Get("/game", statCtr.game)
	app.Get("/games", statCtr.games)

	return app
}

type statController struct {
	timeout time.Duration
	stat    Stat
	search  GameSearch
}

type Stat interface {
	GetStats(ctx context.Context, matchup string) (models.GameStats, error)
}

type GameSearch interface {
	SearchGames(ctx context.Context, query string, limit int) ([]models.Game, error)
}

func (statCtr *statController) game(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), statCtr.timeout)
	defer cancel()

	matchup := strings.TrimSpace(c.Query("matchup"))

	res, err := statCtr.stat.GetStats(ctx, matchup)
	if err != nil {
		if errors.Is(err, service.ErrGameNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "game not found",
			})
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(res)
}

func (statCtr *statController) games(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), statCtr.timeout)
	defer cancel()

	limit := c.QueryInt("limit")
	if limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid limit",
		})
	}

	res, err := statCtr.search.SearchGames(ctx, c.Query("q"), limit)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"games": res,
	})
}
