package correlation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimsports/aim-backend/internal/lib/logger/slogdiscard"
	ptr "github.com/aimsports/aim-backend/internal/lib/utils/pointers"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
	"github.com/aimsports/aim-backend/internal/storage"
)

// fakeStorage keeps possessions and links in memory
// with the same replace semantics as the sql storage.
type fakeStorage struct {
	mu          sync.Mutex
	possessions map[int64]models.Possession
	clips       map[int64]models.Clip
	links       map[int64][]int64

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		possessions: make(map[int64]models.Possession),
		clips:       make(map[int64]models.Clip),
		links:       make(map[int64][]int64),
	}
}

func (f *fakeStorage) RelinkClip(_ context.Context, clipID int64, rng models.Range, gameID *int64) ([]int64, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	if n > f.maxInFlight.Load() {
		f.maxInFlight.Store(n)
	}
	time.Sleep(time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]int64, 0)
	for id := int64(1); id <= int64(len(f.possessions)); id++ {
		p := f.possessions[id]
		r, ok := p.VideoRange()
		if !ok || !r.Overlaps(rng) {
			continue
		}
		if gameID != nil && p.GameID != *gameID {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		f.links[clipID] = ids
	}

	return ids, nil
}

func (f *fakeStorage) Clip(_ context.Context, id int64) (models.Clip, error) {
	c, ok := f.clips[id]
	if !ok {
		return models.Clip{}, storage.ErrClipNotFound
	}
	return c, nil
}

func (f *fakeStorage) Possession(_ context.Context, id int64) (models.Possession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.possessions[id]
	if !ok {
		return models.Possession{}, storage.ErrPossessionNotFound
	}
	return p, nil
}

func (f *fakeStorage) SetPossessionRange(_ context.Context, id int64, rng models.Range) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.possessions[id]
	if !ok {
		return storage.ErrPossessionNotFound
	}
	p.VideoStartSecond = ptr.Ptr(rng.Start)
	p.VideoEndSecond = ptr.Ptr(rng.End)
	f.possessions[id] = p

	return nil
}

func (f *fakeStorage) ClipsForPossession(_ context.Context, possessionID int64, rng models.Range) ([]models.Clip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	res := make([]models.Clip, 0)
	for _, c := range f.clips {
		r, ok := c.SourceRange()
		linked := false
		for _, id := range f.links[c.ID] {
			linked = linked || id == possessionID
		}
		if (ok && r.Overlaps(rng)) || linked {
			res = append(res, c)
		}
	}

	return res, nil
}

func (f *fakeStorage) addPossession(gameID int64, rng *models.Range) int64 {
	id := int64(len(f.possessions) + 1)
	p := models.Possession{ID: id, GameID: gameID, Label: "Drive"}
	if rng != nil {
		p.VideoStartSecond = ptr.Ptr(rng.Start)
		p.VideoEndSecond = ptr.Ptr(rng.End)
	}
	f.possessions[id] = p
	return id
}

func clip(id int64, gameID *int64, start, end int) models.Clip {
	return models.Clip{ID: id, GameID: gameID, SourceStartSecond: &start, SourceEndSecond: &end}
}

func TestRecomputeLinks(t *testing.T) {
	ctx := context.Background()
	st := newFakeStorage()
	p1 := st.addPossession(1, &models.Range{Start: 10, End: 20})
	st.addPossession(1, &models.Range{Start: 20, End: 30})
	st.addPossession(1, nil)
	p4 := st.addPossession(2, &models.Range{Start: 5, End: 15})

	c := New(slogdiscard.NewDiscardLogger(), st, false)

	n, err := c.RecomputeLinks(ctx, clip(1, ptr.Ptr[int64](1), 0, 20))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{p1, p4}, st.links[1])

	n, err = c.RecomputeLinks(ctx, models.Clip{ID: 2, SourceStartSecond: ptr.Ptr(0)})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, st.links[2])

	n, err = c.RecomputeLinks(ctx, clip(1, nil, 100, 200))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []int64{p1, p4}, st.links[1], "empty match keeps links")
}

func TestRecomputeLinksScopedToGame(t *testing.T) {
	ctx := context.Background()
	st := newFakeStorage()
	p1 := st.addPossession(1, &models.Range{Start: 10, End: 20})
	st.addPossession(2, &models.Range{Start: 5, End: 15})

	c := New(slogdiscard.NewDiscardLogger(), st, true)

	n, err := c.RecomputeLinks(ctx, clip(1, ptr.Ptr[int64](1), 0, 20))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{p1}, st.links[1])

	n, err = c.RecomputeLinks(ctx, clip(2, nil, 0, 20))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelinkClipNotFound(t *testing.T) {
	c := New(slogdiscard.NewDiscardLogger(), newFakeStorage(), false)

	_, err := c.RelinkClip(context.Background(), 7)
	assert.ErrorIs(t, err, service.ErrClipNotFound)
}

func TestSetPossessionRange(t *testing.T) {
	ctx := context.Background()
	st := newFakeStorage()
	p1 := st.addPossession(1, nil)
	st.clips[1] = clip(1, nil, 100, 130)
	st.clips[2] = clip(2, nil, 0, 10)

	c := New(slogdiscard.NewDiscardLogger(), st, false)

	_, err := c.SetPossessionRange(ctx, p1, models.Range{Start: 20, End: 20})
	assert.ErrorIs(t, err, service.ErrInvalidRange)

	_, err = c.SetPossessionRange(ctx, 99, models.Range{Start: 1, End: 2})
	assert.ErrorIs(t, err, service.ErrPossessionNotFound)

	p, err := c.SetPossessionRange(ctx, p1, models.Range{Start: 120, End: 125})
	require.NoError(t, err)
	assert.Equal(t, ptr.Ptr(120), p.VideoStartSecond)
	assert.Equal(t, []int64{p1}, st.links[1])
	assert.Empty(t, st.links[2])
}

func TestRecomputeLinksSerializedPerClip(t *testing.T) {
	ctx := context.Background()
	st := newFakeStorage()
	st.addPossession(1, &models.Range{Start: 10, End: 20})

	c := New(slogdiscard.NewDiscardLogger(), st, false)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.RecomputeLinks(ctx, clip(1, nil, 0, 30))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), st.maxInFlight.Load())
}
