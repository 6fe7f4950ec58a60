package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aimsports/aim-backend/internal/lib/logger/sl"
	"github.com/aimsports/aim-backend/internal/models"
)

var (
	ErrDisabled  = errors.New("gateway url is not set")
	ErrBadStatus = errors.New("unexpected response status")
)

const defaultTimeout = 20 * time.Second

// Client requests segment suggestions from the model gateway.
type Client struct {
	log     *slog.Logger
	url     string
	token   string
	timeout time.Duration
}

type SegmentRequest struct {
	UploadID        int64  `json:"upload_id"`
	StorageURL      string `json:"storage_url"`
	DurationSeconds *int   `json:"duration_seconds"`
	GameID          *int64 `json:"game_id"`
	Title           string `json:"title"`
}

type segmentResponse struct {
	Segments []rawSegment `json:"segments"`
}

type rawSegment struct {
	StartSecond *json.Number `json:"start_second"`
	Start       *json.Number `json:"start"`
	EndSecond   *json.Number `json:"end_second"`
	End         *json.Number `json:"end"`
	Label       *string      `json:"label"`
	Notes       *string      `json:"notes"`
}

func New(
	log *slog.Logger,
	url string,
	token string,
	timeout time.Duration,
) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		log:     log,
		url:     url,
		token:   token,
		timeout: timeout,
	}
}

// Segments posts upload info to the gateway and returns suggested segments.
// Entries with end not greater than start are dropped.
func (c *Client) Segments(ctx context.Context, req SegmentRequest) ([]models.Segment, error) {
	const op = "Client.Segments"

	if c.url == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrDisabled)
	}

	log := c.log.With(
		slog.String("op", op),
		slog.Int64("upload_id", req.UploadID),
	)

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%s: %w", op, context.DeadlineExceeded)
	}

	agent := fiber.Post(c.url).
		JSON(req).
		Timeout(timeout)
	if c.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		err := errors.Join(errs...)
		log.Warn("gateway request failed", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if code < 200 || code > 299 {
		log.Warn("gateway returned bad status", slog.Int("status", code))

		return nil, fmt.Errorf("%s: %w: %d", op, ErrBadStatus, code)
	}

	var resp segmentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Warn("failed to decode gateway response", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	segments := make([]models.Segment, 0, len(resp.Segments))
	for _, raw := range resp.Segments {
		start := seconds(raw.StartSecond, raw.Start)
		end := seconds(raw.EndSecond, raw.End)
		if end <= start {
			continue
		}
		segments = append(segments, models.Segment{
			UploadID:    req.UploadID,
			StartSecond: start,
			EndSecond:   end,
			Label:       raw.Label,
			Notes:       raw.Notes,
		})
	}

	log.Debug("got gateway segments", slog.Int("count", len(segments)))

	return segments, nil
}

// seconds returns first valid value truncated to whole seconds, 0 otherwise.
func seconds(values ...*json.Number) int {
	for _, v := range values {
		if v == nil {
			continue
		}
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return int(math.Trunc(f))
	}
	return 0
}
