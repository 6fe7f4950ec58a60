package models

import "time"

type Game struct {
	ID          int64     `json:"id"`
	Matchup     string    `json:"matchup"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Location    *string   `json:"location"`
	HomeTeamID  *int64    `json:"home_team_id"`
	AwayTeamID  *int64    `json:"away_team_id"`
}

type Player struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	JerseyNumber string `json:"jersey_number"`
	TeamID       *int64 `json:"team_id"`
}

// Range is a half-open interval [Start, End) of video seconds.
type Range struct {
	Start int `json:"start_second"`
	End   int `json:"end_second"`
}

func (r Range) Valid() bool {
	return r.End > r.Start
}

// Overlaps reports whether two ranges share any second.
// Touching ranges do not overlap.
func (r Range) Overlaps(o Range) bool {
	return r.End > o.Start && r.Start < o.End
}

type Possession struct {
	ID               int64   `json:"id"`
	GameID           int64   `json:"game_id"`
	PlayerID         *int64  `json:"player_id"`
	Label            string  `json:"label"`
	Outcome          *string `json:"outcome"`
	VideoStartSecond *int    `json:"video_start_second"`
	VideoEndSecond   *int    `json:"video_end_second"`
}

// VideoRange returns possession video range if both bounds are set.
func (p Possession) VideoRange() (Range, bool) {
	if p.VideoStartSecond == nil || p.VideoEndSecond == nil {
		return Range{}, false
	}
	return Range{Start: *p.VideoStartSecond, End: *p.VideoEndSecond}, true
}

// PossessionRow is one parsed line of a possession spreadsheet.
type PossessionRow struct {
	Line    int
	Player  string
	Jersey  string
	Label   string
	Outcome *string
	Team    *string
}
