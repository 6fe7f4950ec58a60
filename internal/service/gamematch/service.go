package gamematch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/aimsports/aim-backend/internal/lib/logger/sl"
	"github.com/aimsports/aim-backend/internal/models"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// Matcher assigns game uploads to games by matchup text.
type Matcher struct {
	log         *slog.Logger
	gameStorage GameStorage
}

type GameStorage interface {
	Games(ctx context.Context) ([]models.Game, error)
	LinkUploads(ctx context.Context, gameID int64, match func(models.Upload) bool) ([]int64, error)
}

func New(
	log *slog.Logger,
	gameStorage GameStorage,
) *Matcher {
	return &Matcher{
		log:         log,
		gameStorage: gameStorage,
	}
}

// FindGameForUpload returns the most recently scheduled game
// whose matchup is found in upload title and notes.
// Returns nil if there is no such game.
func (m *Matcher) FindGameForUpload(ctx context.Context, title string, notes *string) (*models.Game, error) {
	const op = "Matcher.FindGameForUpload"

	log := m.log.With(
		slog.String("op", op),
	)

	text := models.Upload{Title: title, Notes: notes}.MatchText()
	if Normalize(text) == "" {
		return nil, nil
	}

	games, err := m.gameStorage.Games(ctx)
	if err != nil {
		log.Error("failed to get games", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, game := range games {
		if Matches(game.Matchup, text) {
			log.Debug("upload matched", slog.Int64("game_id", game.ID))

			return &game, nil
		}
	}

	return nil, nil
}

// LinkUploadsToGame assigns game to every upload without a game
// which mentions its matchup. Returns number of linked uploads.
func (m *Matcher) LinkUploadsToGame(ctx context.Context, game models.Game) (int, error) {
	const op = "Matcher.LinkUploadsToGame"

	log := m.log.With(
		slog.String("op", op),
		slog.Int64("game_id", game.ID),
	)

	if Normalize(game.Matchup) == "" {
		return 0, nil
	}

	ids, err := m.gameStorage.LinkUploads(ctx, game.ID, func(u models.Upload) bool {
		return Matches(game.Matchup, u.MatchText())
	})
	if err != nil {
		log.Error("failed to link uploads", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if len(ids) > 0 {
		log.Info("uploads linked", slog.Int("count", len(ids)))
	}

	return len(ids), nil
}

type gameRank struct {
	game  models.Game
	exact bool
	rank  int
}

func rankCmp(a, b gameRank) int {
	if a.exact != b.exact {
		if a.exact {
			return -1
		}
		return 1
	}
	return a.rank - b.rank
}

// SearchGames returns games whose matchup fuzzy matches query.
// Games containing the query come first, the rest are
// sorted by Levenshtein distance. Ties keep recency order.
func (m *Matcher) SearchGames(ctx context.Context, query string, limit int) ([]models.Game, error) {
	const op = "Matcher.SearchGames"

	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	games, err := m.gameStorage.Games(ctx)
	if err != nil {
		m.log.Error("failed to get games", slog.String("op", op), sl.Err(err))

		return []models.Game{}, fmt.Errorf("%s: %w", op, err)
	}

	q := Normalize(query)
	if q == "" {
		return games[:min(limit, len(games))], nil
	}

	ranked := make([]gameRank, 0, len(games))
	for _, game := range games {
		matchup := Normalize(game.Matchup)
		exact := strings.Contains(matchup, q)
		if !exact && !fuzzy.Match(q, matchup) {
			continue
		}
		ranked = append(ranked, gameRank{
			game:  game,
			exact: exact,
			rank:  fuzzy.LevenshteinDistance(q, matchup),
		})
	}

	slices.SortStableFunc(ranked, rankCmp)

	res := make([]models.Game, 0, min(limit, len(ranked)))
	for _, r := range ranked[:min(limit, len(ranked))] {
		res = append(res, r.game)
	}

	return res, nil
}
