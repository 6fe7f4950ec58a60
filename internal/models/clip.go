package models

import "time"

const (
	ClipUploaded  = "uploaded"
	ClipPublished = "published"
)

type Clip struct {
	ID                int64     `json:"id"`
	TeamID            *int64    `json:"team_id"`
	GameID            *int64    `json:"game_id"`
	UploadedByID      *int64    `json:"uploaded_by_id"`
	Title             string    `json:"title"`
	Notes             *string   `json:"notes"`
	Status            string    `json:"status"`
	StorageURL        string    `json:"storage_url"`
	UploadedAt        time.Time `json:"uploaded_at"`
	SourceUploadID    *int64    `json:"source_upload_id"`
	SourceStartSecond *int      `json:"source_start_second"`
	SourceEndSecond   *int      `json:"source_end_second"`
}

// SourceRange returns clip range in the source upload if both bounds are set.
func (c Clip) SourceRange() (Range, bool) {
	if c.SourceStartSecond == nil || c.SourceEndSecond == nil {
		return Range{}, false
	}
	return Range{Start: *c.SourceStartSecond, End: *c.SourceEndSecond}, true
}

// ClipView is a clip annotated with game info and linked possessions.
type ClipView struct {
	Clip
	GameMatchup       *string             `json:"game_matchup"`
	GameScheduledAt   *time.Time          `json:"game_scheduled_at"`
	StatsSummary      *ClipStatsSummary   `json:"stats_summary"`
	PossessionContext []PossessionContext `json:"possession_context"`
}

type ClipIn struct {
	Title  string  `json:"title"`
	Notes  *string `json:"notes"`
	GameID *int64  `json:"game_id"`
}
