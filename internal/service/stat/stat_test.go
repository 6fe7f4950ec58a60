package stat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimsports/aim-backend/internal/lib/logger/slogdiscard"
	ptr "github.com/aimsports/aim-backend/internal/lib/utils/pointers"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
	"github.com/aimsports/aim-backend/internal/storage"
)

func TestAggregate(t *testing.T) {
	game := models.Game{ID: 1, Matchup: "Lions vs Tigers"}

	testCases := []struct {
		desc     string
		contexts []models.PossessionContext
		expect   models.GameStats
	}{
		{
			desc:     "no possessions",
			contexts: nil,
			expect: models.GameStats{
				Matchup:    "Lions vs Tigers",
				Possession: []models.PossessionSplit{{Team: "Unassigned", Percentage: 100}},
				Insights:   []models.PlayerInsight{},
				Summary:    models.GameSummary{OffensiveRating: 2, EffectiveFG: 55, TurnoverRate: 12.5},
			},
		},
		{
			desc: "teams in first seen order",
			contexts: []models.PossessionContext{
				{Player: ptr.Ptr("Ava"), Team: ptr.Ptr("Lions")},
				{Player: ptr.Ptr("Bo"), Team: ptr.Ptr("Tigers")},
				{Player: ptr.Ptr("Ava"), Team: ptr.Ptr("Lions")},
				{Player: ptr.Ptr("Cy")},
				{},
				{Player: ptr.Ptr("Ava"), Team: ptr.Ptr("Lions")},
			},
			expect: models.GameStats{
				Matchup: "Lions vs Tigers",
				Possession: []models.PossessionSplit{
					{Team: "Lions", Percentage: 50},
					{Team: "Tigers", Percentage: 16},
					{Team: "Unassigned", Percentage: 33},
				},
				Insights: []models.PlayerInsight{
					{Player: "Ava", Label: "High usage", Detail: "Involved in 3 possessions"},
					{Player: "Bo", Label: "High usage", Detail: "Involved in 1 possessions"},
					{Player: "Cy", Label: "High usage", Detail: "Involved in 1 possessions"},
				},
				Summary: models.GameSummary{OffensiveRating: 12, EffectiveFG: 55, TurnoverRate: 12.5},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expect, Aggregate(game, tc.contexts))
		})
	}
}

type fakeStorage struct {
	games    []models.Game
	contexts map[int64][]models.PossessionContext
}

func (f *fakeStorage) LatestGame(_ context.Context, matchup string) (models.Game, error) {
	for _, g := range f.games {
		if matchup == "" || g.Matchup == matchup {
			return g, nil
		}
	}
	return models.Game{}, storage.ErrGameNotFound
}

func (f *fakeStorage) GamePossessionContexts(_ context.Context, gameID int64) ([]models.PossessionContext, error) {
	return f.contexts[gameID], nil
}

func (f *fakeStorage) GamePossessions(_ context.Context, _ int64) ([]models.Possession, error) {
	return []models.Possession{}, nil
}

func (f *fakeStorage) Game(_ context.Context, id int64) (models.Game, error) {
	for _, g := range f.games {
		if g.ID == id {
			return g, nil
		}
	}
	return models.Game{}, storage.ErrGameNotFound
}

func TestGetStats(t *testing.T) {
	st := &fakeStorage{
		games: []models.Game{
			{ID: 2, Matchup: "Bears vs Wolves"},
			{ID: 1, Matchup: "Lions vs Tigers"},
		},
		contexts: map[int64][]models.PossessionContext{
			1: {{Player: ptr.Ptr("Ava"), Team: ptr.Ptr("Lions")}},
		},
	}
	s := New(slogdiscard.NewDiscardLogger(), st)
	ctx := context.Background()

	stats, err := s.GetStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Bears vs Wolves", stats.Matchup)

	stats, err = s.GetStats(ctx, "Lions vs Tigers")
	require.NoError(t, err)
	assert.Equal(t, []models.PossessionSplit{{Team: "Lions", Percentage: 100}}, stats.Possession)

	_, err = s.GetStats(ctx, "Sharks vs Jets")
	assert.ErrorIs(t, err, service.ErrGameNotFound)

	_, err = s.GamePossessions(ctx, 42)
	assert.ErrorIs(t, err, service.ErrGameNotFound)
}
