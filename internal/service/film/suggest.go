package film

import (
	"fmt"
	"math"

	"github.com/aimsports/aim-backend/internal/models"
)

const (
	minSegmentLength = 5.0
	maxSegmentLength = 25.0
	minSegmentTail   = 2.0
	maxSuggested     = 6

	suggestedNotes = "Auto-generated by AIM."
)

// Suggest splits video of given duration into evenly spaced
// placeholder segments.
func Suggest(duration float64) []models.Segment {
	if duration <= 0 {
		return []models.Segment{}
	}

	var total int
	switch {
	case duration < 8:
		total = 1
	case duration < 24:
		total = 2
	case duration < 60:
		total = 3
	default:
		total = min(maxSuggested, int(math.Ceil(duration/25)))
	}

	length := max(minSegmentLength, min(duration/float64(total), maxSegmentLength))

	res := make([]models.Segment, 0, total)
	current := 0.0
	for i := 1; current < duration && i <= total; i++ {
		end := min(duration, current+length)
		if end-current < minSegmentTail {
			break
		}

		label := fmt.Sprintf("Suggested segment %d", i)
		notes := suggestedNotes
		res = append(res, models.Segment{
			StartSecond: int(current),
			EndSecond:   int(end),
			Label:       &label,
			Notes:       &notes,
		})
		current = end
	}

	return res
}
