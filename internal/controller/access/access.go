package access

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	jwtController "github.com/aimsports/aim-backend/internal/controller/jwt"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
)

const memberKey = "member"

type Access struct {
	timeout time.Duration
	members Members
}

type Members interface {
	Member(ctx context.Context, teamID int64, userID int64) (models.Membership, error)
}

func New(timeout time.Duration, members Members) *Access {
	return &Access{
		timeout: timeout,
		members: members,
	}
}

// TeamMember lets through members of the team
// from :team_id path parameter only.
func (a *Access) TeamMember(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	userID, err := jwtController.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication error",
		})
	}

	teamID, err := strconv.ParseInt(c.Params("team_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad team id",
		})
	}

	member, err := a.members.Member(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, service.ErrNotMember) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "not a member of this team",
			})
		}

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	c.Locals(memberKey, member)

	return c.Next()
}

// Member returns membership stored by TeamMember.
func Member(c *fiber.Ctx) models.Membership {
	member, _ := c.Locals(memberKey).(models.Membership)
	return member
}
