package models

import "time"

const (
	UploadPending    = "pending"
	UploadProcessing = "processing"
	UploadReady      = "ready"
	UploadError      = "error"
)

type Upload struct {
	ID              int64     `json:"id"`
	TeamID          int64     `json:"team_id"`
	UploadedByID    *int64    `json:"uploaded_by_id"`
	GameID          *int64    `json:"game_id"`
	Title           string    `json:"title"`
	Notes           *string   `json:"notes"`
	StorageURL      string    `json:"storage_url"`
	Status          string    `json:"status"`
	DurationSeconds *int      `json:"duration_seconds"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

// MatchText is the text game matchups are searched in.
func (u Upload) MatchText() string {
	if u.Notes == nil {
		return u.Title
	}
	return u.Title + " " + *u.Notes
}

type Segment struct {
	ID          int64     `json:"id"`
	UploadID    int64     `json:"upload_id"`
	StartSecond int       `json:"start_second"`
	EndSecond   int       `json:"end_second"`
	Label       *string   `json:"label"`
	Notes       *string   `json:"notes"`
	Confidence  *int      `json:"confidence"`
	CreatedByID *int64    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s Segment) Range() Range {
	return Range{Start: s.StartSecond, End: s.EndSecond}
}

type UploadIn struct {
	Title string  `json:"title"`
	Notes *string `json:"notes"`
}

type SegmentIn struct {
	StartSecond int     `json:"start_second"`
	EndSecond   int     `json:"end_second"`
	Label       *string `json:"label"`
	Notes       *string `json:"notes"`
	Confidence  *int    `json:"confidence"`
}
