package models

type PossessionContext struct {
	PossessionID int64   `json:"possession_id"`
	Label        string  `json:"label"`
	Outcome      *string `json:"outcome"`
	Player       *string `json:"player"`
	Team         *string `json:"team"`
	StartSecond  *int    `json:"start_second"`
	EndSecond    *int    `json:"end_second"`
}

type PlayerTouch struct {
	Player  string `json:"player"`
	Touches int    `json:"touches"`
}

type ClipStatsSummary struct {
	TotalPossessions int           `json:"total_possessions"`
	Players          []PlayerTouch `json:"players"`
}

type PossessionSplit struct {
	Team       string `json:"team"`
	Percentage int    `json:"percentage"`
}

type PlayerInsight struct {
	Player string `json:"player"`
	Label  string `json:"label"`
	Detail string `json:"detail"`
}

type GameSummary struct {
	OffensiveRating float64 `json:"offensive_rating"`
	EffectiveFG     float64 `json:"effective_fg"`
	TurnoverRate    float64 `json:"turnover_rate"`
}

type GameStats struct {
	Matchup    string            `json:"matchup"`
	Possession []PossessionSplit `json:"possession"`
	Insights   []PlayerInsight   `json:"insights"`
	Summary    GameSummary       `json:"summary"`
}
