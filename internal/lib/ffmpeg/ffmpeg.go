package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var ErrProbeUnavailable = errors.New("ffprobe is not available")

// GetMeta extracts container metadata parameter
// of the first video stream.
func GetMeta(ctx context.Context, file string, par string) (string, error) {
	const op = "ffmpeg.GetMeta"

	cmd := exec.CommandContext(
		ctx,
		"ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "format="+par,
		// write only the value, without key
		"-of", "default=noprint_wrappers=1:nokey=1",
		file,
	)

	stdout, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrProbeUnavailable)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return strings.TrimSpace(string(stdout)), nil
}

// Duration returns video duration in seconds.
func Duration(ctx context.Context, file string) (float64, error) {
	const op = "ffmpeg.Duration"

	raw, err := GetMeta(ctx, file, "duration")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	d, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return d, nil
}

// Prober probes files with ffprobe from PATH.
type Prober struct{}

func (Prober) Duration(ctx context.Context, file string) (float64, error) {
	return Duration(ctx, file)
}
