package video

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
)

var (
	ErrNoFile      = errors.New("file required")
	ErrUnsupported = errors.New("unsupported mime-type")
)

// SaveTemp checks that form file is a video and saves it into tmpDir.
// Caller must remove the file at returned path.
func SaveTemp(c *fiber.Ctx, field string, tmpDir string) (path string, ext string, err error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", "", ErrNoFile
	}

	reader, err := file.Open()
	if err != nil {
		return "", "", err
	}
	mimeType, err := mimetype.DetectReader(reader)
	reader.Close()
	if err != nil {
		return "", "", err
	}
	if !isVideo(mimeType) {
		return "", "", ErrUnsupported
	}

	ext = filepath.Ext(file.Filename)
	if ext == "" {
		ext = mimeType.Extension()
	}

	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", "", err
	}

	tmpFile, err := os.CreateTemp(tmpDir, "*"+ext)
	if err != nil {
		return "", "", err
	}
	path = tmpFile.Name()
	tmpFile.Close()

	if err := c.SaveFile(file, path); err != nil {
		os.Remove(path)
		return "", "", err
	}

	return path, ext, nil
}

func isVideo(mimeType *mimetype.MIME) bool {
	for m := mimeType; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") {
			return true
		}
	}
	return false
}

// Error writes response for SaveTemp error.
func Error(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrNoFile) || errors.Is(err, ErrUnsupported) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusInternalServerError)
}
