package clip

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aimsports/aim-backend/internal/controller/access"
	"github.com/aimsports/aim-backend/internal/controller/video"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
)

// Register adds team clip routes to the /teams router.
func Register(
	router fiber.Router,
	timeout time.Duration,
	srv Clip,
	acc *access.Access,
	tmpDir string,
) {
	clipCtr := clipController{
		timeout: timeout,
		srv:     srv,
		tmpDir:  tmpDir,
	}

	router.Get("/:team_id/clips", acc.TeamMember, clipCtr.clips)
	router.Post("/:team_id/clips", acc.TeamMember, clipCtr.newClip)
	router.Get("/:team_id/clips/:clip_id", acc.TeamMember, clipCtr.clip)
	router.Delete("/:team_id/clips/:clip_id", acc.TeamMember, clipCtr.deleteClip)
	router.Get("/:team_id/clips/:clip_id/stream", acc.TeamMember, clipCtr.stream)
	router.Post("/:team_id/clips/:clip_id/relink", acc.TeamMember, clipCtr.relink)
}

type clipController struct {
	timeout time.Duration
	srv     Clip
	tmpDir  string
}

type Clip interface {
	Clips(ctx context.Context, teamID int64) ([]models.ClipView, error)
	Clip(ctx context.Context, teamID int64, clipID int64) (models.ClipView, error)
	UploadClip(ctx context.Context, teamID int64, userID int64, in models.ClipIn, path string, ext string) (models.ClipView, error)
	DeleteClip(ctx context.Context, teamID int64, clipID int64, userID int64) error
	ClipPath(ctx context.Context, teamID int64, clipID int64) (string, error)
	Relink(ctx context.Context, teamID int64, clipID int64) (models.ClipView, error)
}

// clips returns team clips with stats
func (clipCtr *clipController) clips(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), clipCtr.timeout)
	defer cancel()

	member := access.Member(c)

	clips, err := clipCtr.srv.Clips(ctx, member.TeamID)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(clips)
}

func (clipCtr *clipController) newClip(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), clipCtr.timeout)
	defer cancel()

	member := access.Member(c)

	in := models.ClipIn{Title: strings.TrimSpace(c.FormValue("title"))}
	if in.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title required",
		})
	}
	if notes := c.FormValue("notes"); notes != "" {
		in.Notes = &notes
	}
	if s := c.FormValue("game_id"); s != "" {
		gameID, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "bad game id",
			})
		}
		in.GameID = &gameID
	}

	path, ext, err := video.SaveTemp(c, "file", clipCtr.tmpDir)
	if err != nil {
		return video.Error(c, err)
	}
	defer os.Remove(path)

	clip, err := clipCtr.srv.UploadClip(ctx, member.TeamID, member.UserID, in, path, ext)
	if err != nil {
		return clipError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(clip)
}

func (clipCtr *clipController) clip(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), clipCtr.timeout)
	defer cancel()

	member := access.Member(c)

	clipID, err := strconv.ParseInt(c.Params("clip_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad clip id",
		})
	}

	clip, err := clipCtr.srv.Clip(ctx, member.TeamID, clipID)
	if err != nil {
		return clipError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(clip)
}

func (clipCtr *clipController) deleteClip(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), clipCtr.timeout)
	defer cancel()

	member := access.Member(c)

	clipID, err := strconv.ParseInt(c.Params("clip_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad clip id",
		})
	}

	if err := clipCtr.srv.DeleteClip(ctx, member.TeamID, clipID, member.UserID); err != nil {
		return clipError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (clipCtr *clipController) stream(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), clipCtr.timeout)
	defer cancel()

	member := access.Member(c)

	clipID, err := strconv.ParseInt(c.Params("clip_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad clip id",
		})
	}

	path, err := clipCtr.srv.ClipPath(ctx, member.TeamID, clipID)
	if err != nil {
		return clipError(c, err)
	}

	return c.SendFile(path)
}

func (clipCtr *clipController) relink(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), clipCtr.timeout)
	defer cancel()

	member := access.Member(c)

	clipID, err := strconv.ParseInt(c.Params("clip_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad clip id",
		})
	}

	clip, err := clipCtr.srv.Relink(ctx, member.TeamID, clipID)
	if err != nil {
		return clipError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(clip)
}

func clipError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrClipNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "clip not found",
		})
	case errors.Is(err, service.ErrGameNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "game not found",
		})
	case errors.Is(err, service.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "can only delete your own clips",
		})
	}

	return c.SendStatus(fiber.StatusInternalServerError)
}
