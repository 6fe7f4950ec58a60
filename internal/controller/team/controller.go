package team

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aimsports/aim-backend/internal/controller/access"
	jwtController "github.com/aimsports/aim-backend/internal/controller/jwt"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
)

func New(
	timeout time.Duration,
	srv Team,
	jwtC *jwtController.JWT,
	acc *access.Access,
) *fiber.App {
	teamCtr := teamController{
		timeout: timeout,
		srv:     srv,
	}

	app := fiber.New()

	app.Use(jwtC.AuthRequired())

	app.Get("/", teamCtr.myTeams)
	app.Post("/", teamCtr.createTeam)
	app.Post("/join", teamCtr.join)
	app.Post("/:team_id/invites", acc.TeamMember, teamCtr.createInvite)

	return app
}

type teamController struct {
	timeout time.Duration
	srv     Team
}

type Team interface {
	CreateTeam(ctx context.Context, userID int64, team models.Team) (models.Membership, error)
	MyTeams(ctx context.Context, userID int64) ([]models.Membership, error)
	CreateInvite(ctx context.Context, teamID int64, userID int64, in models.InviteIn) (models.Invite, error)
	Join(ctx context.Context, userID int64, code string) (models.Membership, error)
}

// myTeams returns memberships of the logged user
func (teamCtr *teamController) myTeams(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), teamCtr.timeout)
	defer cancel()

	userID, err := jwtController.UserID(c)
	if err != nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	teams, err := teamCtr.srv.MyTeams(ctx, userID)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(teams)
}

func (teamCtr *teamController) createTeam(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), teamCtr.timeout)
	defer cancel()

	userID, err := jwtController.UserID(c)
	if err != nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var form models.Team
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}

	form.Name = strings.TrimSpace(form.Name)
	if form.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name required",
		})
	}

	member, err := teamCtr.srv.CreateTeam(ctx, userID, models.Team{
		Name:        form.Name,
		Level:       form.Level,
		SeasonLabel: form.SeasonLabel,
		CreatedBy:   &userID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusCreated).JSON(member)
}

func (teamCtr *teamController) createInvite(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), teamCtr.timeout)
	defer cancel()

	member := access.Member(c)

	var form models.InviteIn
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&form); err != nil {
			return fiber.ErrBadRequest
		}
	}

	if form.ExpiresInHours != nil && *form.ExpiresInHours <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "expires_in_hours must be positive",
		})
	}
	if form.MaxUses != nil && *form.MaxUses <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "max_uses must be positive",
		})
	}

	invite, err := teamCtr.srv.CreateInvite(ctx, member.TeamID, member.UserID, form)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "only coaches can invite",
			})
		case errors.Is(err, service.ErrInvalidRole):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid role",
			})
		}

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusCreated).JSON(invite)
}

func (teamCtr *teamController) join(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), teamCtr.timeout)
	defer cancel()

	userID, err := jwtController.UserID(c)
	if err != nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var form struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}
	if strings.TrimSpace(form.Code) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "code required",
		})
	}

	member, err := teamCtr.srv.Join(ctx, userID, form.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInviteNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "invite not found",
			})
		case errors.Is(err, service.ErrInviteExpired):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invite expired",
			})
		case errors.Is(err, service.ErrInviteUsedUp):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invite has no uses left",
			})
		}

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(member)
}
