package film

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

// Register adds routes serving team game film, its segments
// and publishing segments as clips to the /teams router.
// Router must check the token.
func Register(
	router fiber.Router,
	timeout time.Duration,
	processTimeout time.Duration,
	srv Film,
	acc *access.Access,
	tmpDir string,
) {
	filmCtr := filmController{
		timeout:        timeout,
		processTimeout: processTimeout,
		srv:            srv,
		tmpDir:         tmpDir,
	}

	router.Get("/:team_id/film", acc.TeamMember, filmCtr.uploads)
	router.Post("/:team_id/film", acc.TeamMember, filmCtr.newUpload)
	router.Get("/:team_id/film/:upload_id", acc.TeamMember, filmCtr.upload)
	router.Delete("/:team_id/film/:upload_id", acc.TeamMember, filmCtr.deleteUpload)
	router.Get("/:team_id/film/:upload_id/stream", acc.TeamMember, filmCtr.stream)
	router.Post("/:team_id/film/:upload_id/process", acc.TeamMember, filmCtr.process)

	router.Get("/:team_id/film/:upload_id/segments", acc.TeamMember, filmCtr.segments)
	router.Post("/:team_id/film/:upload_id/segments", acc.TeamMember, filmCtr.newSegment)
	router.Post("/:team_id/film/:upload_id/segments/:segment_id/publish", acc.TeamMember, filmCtr.publish)
}

type filmController struct {
	timeout        time.Duration
	processTimeout time.Duration
	srv            Film
	tmpDir         string
}

type Film interface {
	Uploads(ctx context.Context, teamID int64) ([]models.Upload, error)
	Upload(ctx context.Context, teamID int64, uploadID int64) (models.Upload, error)
	CreateUpload(ctx context.Context, teamID int64, userID int64, in models.UploadIn, path string, ext string) (models.Upload, error)
	ProcessUpload(ctx context.Context, teamID int64, uploadID int64) (models.Upload, error)
	DeleteUpload(ctx context.Context, teamID int64, uploadID int64) error
	UploadPath(ctx context.Context, teamID int64, uploadID int64) (string, error)
	Segments(ctx context.Context, teamID int64, uploadID int64) ([]models.Segment, error)
	CreateSegment(ctx context.Context, teamID int64, uploadID int64, userID int64, in models.SegmentIn) (models.Segment, error)
	PublishSegment(ctx context.Context, teamID int64, uploadID int64, segmentID int64, userID int64) (models.Clip, error)
}

func (filmCtr *filmController) uploads(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), filmCtr.timeout)
	defer cancel()

	member := access.Member(c)

	uploads, err := filmCtr.srv.Uploads(ctx, member.TeamID)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(uploads)
}

// newUpload saves sent film, matches it with a game and processes it
func (filmCtr *filmController) newUpload(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), filmCtr.processTimeout)
	defer cancel()

	member := access.Member(c)

	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title required",
		})
	}

	in := models.UploadIn{Title: title}
	if notes := c.FormValue("notes"); notes != "" {
		in.Notes = &notes
	}

	path, ext, err := video.SaveTemp(c, "file", filmCtr.tmpDir)
	if err != nil {
		return video.Error(c, err)
	}
	defer os.Remove(path)

	upload, err := filmCtr.srv.CreateUpload(ctx, member.TeamID, member.UserID, in, path, ext)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusCreated).JSON(upload)
}

func (filmCtr *filmController) upload(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), filmCtr.timeout)
	defer cancel()

	member := access.Member(c)

	uploadID, err := strconv.ParseInt(c.Params("upload_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad upload id",
		})
	}

	upload, err := filmCtr.srv.Upload(ctx, member.TeamID, uploadID)
	if err != nil {
		return filmError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(upload)
}

func (filmCtr *filmController) deleteUpload(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), filmCtr.timeout)
	defer cancel()

	member := access.Member(c)

	uploadID, err := strconv.ParseInt(c.Params("upload_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad upload id",
		})
	}

	if err := filmCtr.srv.DeleteUpload(ctx, member.TeamID, uploadID); err != nil {
		return filmError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (filmCtr *filmController) stream(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), filmCtr.timeout)
	defer cancel()

	member := access.Member(c)

	uploadID, err := strconv.ParseInt(c.Params("upload_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad upload id",
		})
	}

	path, err := filmCtr.srv.UploadPath(ctx, member.TeamID, uploadID)
	if err != nil {
		return filmError(c, err)
	}

	return c.SendFile(path)
}

// process reprocesses upload, existing segments are kept
func (filmCtr *filmController) process(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), filmCtr.processTimeout)
	defer cancel()

	member := access.Member(c)

	uploadID, err := strconv.ParseInt(c.Params("upload_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad upload id",
		})
	}

	upload, err := filmCtr.srv.ProcessUpload(ctx, member.TeamID, uploadID)
	if err != nil {
		return filmError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(upload)
}

func (filmCtr *filmController) segments(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), filmCtr.timeout)
	defer cancel()

	member := access.Member(c)

	uploadID, err := strconv.ParseInt(c.Params("upload_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad upload id",
		})
	}

	segments, err := filmCtr.srv.Segments(ctx, member.TeamID, uploadID)
	if err != nil {
		return filmError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(segments)
}

func (filmCtr *filmController) newSegment(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), filmCtr.timeout)
	defer cancel()

	member := access.Member(c)

	uploadID, err := strconv.ParseInt(c.Params("upload_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad upload id",
		})
	}

	var form models.SegmentIn
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}

	segment, err := filmCtr.srv.CreateSegment(ctx, member.TeamID, uploadID, member.UserID, form)
	if err != nil {
		return filmError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(segment)
}

func (filmCtr *filmController) publish(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), filmCtr.timeout)
	defer cancel()

	member := access.Member(c)

	uploadID, err := strconv.ParseInt(c.Params("upload_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad upload id",
		})
	}
	segmentID, err := strconv.ParseInt(c.Params("segment_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad segment id",
		})
	}

	clip, err := filmCtr.srv.PublishSegment(ctx, member.TeamID, uploadID, segmentID, member.UserID)
	if err != nil {
		return filmError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(clip)
}

func filmError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUploadNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "upload not found",
		})
	case errors.Is(err, service.ErrSegmentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "segment not found",
		})
	case errors.Is(err, service.ErrInvalidRange):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "end must be after start",
		})
	}

	return c.SendStatus(fiber.StatusInternalServerError)
}
