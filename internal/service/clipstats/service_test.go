package clipstats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimsports/aim-backend/internal/lib/logger/slogdiscard"
	ptr "github.com/aimsports/aim-backend/internal/lib/utils/pointers"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/storage"
)

type fakeStorage struct {
	contexts map[int64][]models.PossessionContext
	games    map[int64]models.Game
}

func (f *fakeStorage) ClipPossessionContexts(_ context.Context, clipID int64) ([]models.PossessionContext, error) {
	return f.contexts[clipID], nil
}

func (f *fakeStorage) Game(_ context.Context, id int64) (models.Game, error) {
	g, ok := f.games[id]
	if !ok {
		return models.Game{}, storage.ErrGameNotFound
	}
	return g, nil
}

func pc(id int64, player *string) models.PossessionContext {
	return models.PossessionContext{PossessionID: id, Label: "Drive", Player: player}
}

func TestSummarize(t *testing.T) {
	testCases := []struct {
		desc     string
		contexts []models.PossessionContext
		expect   *models.ClipStatsSummary
	}{
		{
			desc:     "no possessions",
			contexts: nil,
			expect:   nil,
		},
		{
			desc: "possessions without players",
			contexts: []models.PossessionContext{
				pc(1, nil),
				pc(2, nil),
			},
			expect: &models.ClipStatsSummary{
				TotalPossessions: 2,
				Players:          []models.PlayerTouch{},
			},
		},
		{
			desc: "top four with first seen tie break",
			contexts: []models.PossessionContext{
				pc(1, ptr.Ptr("Eve")),
				pc(2, ptr.Ptr("Bo")),
				pc(3, ptr.Ptr("Ava")),
				pc(4, ptr.Ptr("Bo")),
				pc(5, nil),
				pc(6, ptr.Ptr("Cy")),
				pc(7, ptr.Ptr("Dee")),
				pc(8, ptr.Ptr("Ava")),
			},
			expect: &models.ClipStatsSummary{
				TotalPossessions: 8,
				Players: []models.PlayerTouch{
					{Player: "Bo", Touches: 2},
					{Player: "Ava", Touches: 2},
					{Player: "Eve", Touches: 1},
					{Player: "Cy", Touches: 1},
				},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expect, Summarize(tc.contexts))
		})
	}
}

func TestHydrate(t *testing.T) {
	scheduled := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)
	st := &fakeStorage{
		contexts: map[int64][]models.PossessionContext{
			1: {pc(10, ptr.Ptr("Ava"))},
		},
		games: map[int64]models.Game{
			5: {ID: 5, Matchup: "Lions vs Tigers", ScheduledAt: scheduled},
		},
	}
	h := New(slogdiscard.NewDiscardLogger(), st)

	view, err := h.Hydrate(context.Background(), models.Clip{ID: 1, GameID: ptr.Ptr[int64](5)})
	require.NoError(t, err)
	assert.Equal(t, ptr.Ptr("Lions vs Tigers"), view.GameMatchup)
	assert.Equal(t, ptr.Ptr(scheduled), view.GameScheduledAt)
	require.NotNil(t, view.StatsSummary)
	assert.Equal(t, 1, view.StatsSummary.TotalPossessions)
	assert.Len(t, view.PossessionContext, 1)

	view, err = h.Hydrate(context.Background(), models.Clip{ID: 2, GameID: ptr.Ptr[int64](99)})
	require.NoError(t, err)
	assert.Nil(t, view.GameMatchup)
	assert.Nil(t, view.StatsSummary)
	assert.Empty(t, view.PossessionContext)
}
