package clip

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimsports/aim-backend/internal/lib/logger/slogdiscard"
	ptr "github.com/aimsports/aim-backend/internal/lib/utils/pointers"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
	"github.com/aimsports/aim-backend/internal/service/clipstats"
	"github.com/aimsports/aim-backend/internal/service/correlation"
	srcService "github.com/aimsports/aim-backend/internal/service/source"
	"github.com/aimsports/aim-backend/internal/storage/sqlite"
	"github.com/aimsports/aim-backend/migrations"
)

type env struct {
	clips   *Clip
	storage *sqlite.Storage
	source  *srcService.Source
	team    int64
	owner   int64
	other   int64
	game    models.Game
	file    string
}

func newEnv(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	log := slogdiscard.NewDiscardLogger()

	path := filepath.Join(dir, "aim.db")
	_, err := migrations.Up(path, "")
	require.NoError(t, err)

	st, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Stop() })

	owner, err := st.SaveUser(ctx, gofakeit.Email(), gofakeit.Name(), []byte("hash"))
	require.NoError(t, err)
	other, err := st.SaveUser(ctx, gofakeit.Email(), gofakeit.Name(), []byte("hash"))
	require.NoError(t, err)
	member, err := st.SaveTeam(ctx, models.Team{Name: gofakeit.Company()}, owner, models.RoleCoach)
	require.NoError(t, err)

	game, err := st.IngestGame(ctx, models.Game{Matchup: "Lions vs Tigers", ScheduledAt: time.Now()}, []models.PossessionRow{
		{Line: 2, Player: "Ava", Jersey: "3", Label: "Drive", Team: ptr.Ptr("Lions")},
	})
	require.NoError(t, err)

	file := filepath.Join(dir, "clip.tmp")
	require.NoError(t, os.WriteFile(file, []byte("clip"), 0o644))

	source := srcService.New(log, filepath.Join(dir, "media"))

	return env{
		clips:   New(log, st, source, clipstats.New(log, st), correlation.New(log, st, false)),
		storage: st,
		source:  source,
		team:    member.TeamID,
		owner:   owner,
		other:   other,
		game:    game,
		file:    file,
	}
}

func TestUploadAndDeleteClip(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	view, err := e.clips.UploadClip(ctx, e.team, e.owner, models.ClipIn{Title: "Block", GameID: &e.game.ID}, e.file, ".mov")
	require.NoError(t, err)
	assert.Equal(t, models.ClipUploaded, view.Status)
	assert.Equal(t, ptr.Ptr("Lions vs Tigers"), view.GameMatchup)
	assert.Nil(t, view.StatsSummary)

	views, err := e.clips.Clips(ctx, e.team)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, view.ID, views[0].ID)

	_, err = e.clips.Clip(ctx, e.team+1, view.ID)
	assert.ErrorIs(t, err, service.ErrClipNotFound)

	path, err := e.clips.ClipPath(ctx, e.team, view.ID)
	require.NoError(t, err)
	assert.FileExists(t, path)

	err = e.clips.DeleteClip(ctx, e.team, view.ID, e.other)
	assert.ErrorIs(t, err, service.ErrForbidden)

	require.NoError(t, e.clips.DeleteClip(ctx, e.team, view.ID, e.owner))
	assert.NoFileExists(t, path)

	_, err = e.clips.Clip(ctx, e.team, view.ID)
	assert.ErrorIs(t, err, service.ErrClipNotFound)
}

func TestUploadClipUnknownGame(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.clips.UploadClip(ctx, e.team, e.owner, models.ClipIn{Title: "Block", GameID: ptr.Ptr[int64](9999)}, e.file, ".mov")
	assert.ErrorIs(t, err, service.ErrGameNotFound)

	views, err := e.clips.Clips(ctx, e.team)
	require.NoError(t, err)
	assert.Empty(t, views)

	entries, err := os.ReadDir(filepath.Join(filepath.Dir(e.file), "media"))
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestDeletePublishedClipKeepsFile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	url, err := e.source.UploadSource(ctx, e.file, ".mp4")
	require.NoError(t, err)
	uploadID, err := e.storage.SaveUpload(ctx, models.Upload{
		TeamID:     e.team,
		Title:      "film",
		StorageURL: url,
		Status:     models.UploadReady,
		UploadedAt: time.Now(),
	})
	require.NoError(t, err)

	clipID, err := e.storage.SaveClip(ctx, models.Clip{
		TeamID:            &e.team,
		UploadedByID:      &e.owner,
		Title:             "segment",
		Status:            models.ClipPublished,
		StorageURL:        url,
		UploadedAt:        time.Now(),
		SourceUploadID:    &uploadID,
		SourceStartSecond: ptr.Ptr(0),
		SourceEndSecond:   ptr.Ptr(10),
	})
	require.NoError(t, err)

	require.NoError(t, e.clips.DeleteClip(ctx, e.team, clipID, e.owner))

	_, err = e.source.SourcePath(url)
	assert.NoError(t, err)
}

func TestRelink(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	poss, err := e.storage.GamePossessions(ctx, e.game.ID)
	require.NoError(t, err)

	clipID, err := e.storage.SaveClip(ctx, models.Clip{
		TeamID:            &e.team,
		GameID:            &e.game.ID,
		UploadedByID:      &e.owner,
		Title:             "drive",
		Status:            models.ClipPublished,
		StorageURL:        "missing.mp4",
		UploadedAt:        time.Now(),
		SourceStartSecond: ptr.Ptr(10),
		SourceEndSecond:   ptr.Ptr(20),
	})
	require.NoError(t, err)

	view, err := e.clips.Relink(ctx, e.team, clipID)
	require.NoError(t, err)
	assert.Empty(t, view.PossessionContext)

	require.NoError(t, e.storage.SetPossessionRange(ctx, poss[0].ID, models.Range{Start: 15, End: 25}))

	view, err = e.clips.Relink(ctx, e.team, clipID)
	require.NoError(t, err)
	require.Len(t, view.PossessionContext, 1)
	require.NotNil(t, view.StatsSummary)
	assert.Equal(t, 1, view.StatsSummary.TotalPossessions)

	_, err = e.clips.ClipPath(ctx, e.team, clipID)
	assert.ErrorIs(t, err, service.ErrClipNotFound)
}
