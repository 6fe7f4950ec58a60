package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ptr "github.com/aimsports/aim-backend/internal/lib/utils/pointers"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/storage"
	"github.com/aimsports/aim-backend/migrations"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	path := filepath.Join(t.TempDir(), "aim.db")

	_, err := migrations.Up(path, "")
	require.NoError(t, err)

	s, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Stop() })

	return s
}

type fixture struct {
	user   int64
	team   int64
	game   models.Game
	poss   []models.Possession
	upload int64
}

// seed creates a team, a game with possessions tagged
// with given ranges and an upload of that game.
func seed(t *testing.T, s *Storage, ranges ...models.Range) fixture {
	t.Helper()
	ctx := context.Background()

	userID, err := s.SaveUser(ctx, gofakeit.Email(), gofakeit.Name(), []byte("hash"))
	require.NoError(t, err)

	member, err := s.SaveTeam(ctx, models.Team{Name: gofakeit.Company()}, userID, models.RoleCoach)
	require.NoError(t, err)

	rows := make([]models.PossessionRow, 0, len(ranges))
	for i := range ranges {
		rows = append(rows, models.PossessionRow{
			Line:   i + 2,
			Player: "Ava",
			Jersey: "3",
			Label:  "Drive",
			Team:   ptr.Ptr("Lions"),
		})
	}
	game, err := s.IngestGame(ctx, models.Game{Matchup: "Lions vs Tigers", ScheduledAt: time.Now()}, rows)
	require.NoError(t, err)

	poss, err := s.GamePossessions(ctx, game.ID)
	require.NoError(t, err)
	require.Len(t, poss, len(ranges))
	for i, rng := range ranges {
		require.NoError(t, s.SetPossessionRange(ctx, poss[i].ID, rng))
	}

	uploadID, err := s.SaveUpload(ctx, models.Upload{
		TeamID:       member.TeamID,
		UploadedByID: &userID,
		GameID:       &game.ID,
		Title:        "Lions vs Tigers full game",
		StorageURL:   "game.mp4",
		Status:       models.UploadPending,
		UploadedAt:   time.Now(),
	})
	require.NoError(t, err)

	return fixture{user: userID, team: member.TeamID, game: game, poss: poss, upload: uploadID}
}

func saveClip(t *testing.T, s *Storage, f fixture, start, end int) int64 {
	t.Helper()

	id, err := s.SaveClip(context.Background(), models.Clip{
		TeamID:            &f.team,
		GameID:            &f.game.ID,
		UploadedByID:      &f.user,
		Title:             "clip",
		Status:            models.ClipPublished,
		StorageURL:        "game.mp4",
		UploadedAt:        time.Now(),
		SourceUploadID:    &f.upload,
		SourceStartSecond: &start,
		SourceEndSecond:   &end,
	})
	require.NoError(t, err)

	return id
}

func TestRelinkClip(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		desc   string
		ranges []models.Range
		clip   models.Range
		expect []int
	}{
		{
			desc:   "touching is not overlap",
			ranges: []models.Range{{Start: 10, End: 20}},
			clip:   models.Range{Start: 20, End: 30},
			expect: []int{},
		},
		{
			desc:   "partial overlap",
			ranges: []models.Range{{Start: 10, End: 20}},
			clip:   models.Range{Start: 15, End: 25},
			expect: []int{0},
		},
		{
			desc: "several possessions",
			ranges: []models.Range{
				{Start: 100, End: 125},
				{Start: 125, End: 140},
				{Start: 150, End: 170},
				{Start: 118, End: 122},
			},
			clip:   models.Range{Start: 120, End: 150},
			expect: []int{0, 1, 3},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			s := newTestStorage(t)
			f := seed(t, s, tc.ranges...)
			clipID := saveClip(t, s, f, tc.clip.Start, tc.clip.End)

			ids, err := s.RelinkClip(ctx, clipID, tc.clip, nil)
			require.NoError(t, err)

			expect := make([]int64, 0, len(tc.expect))
			for _, i := range tc.expect {
				expect = append(expect, f.poss[i].ID)
			}
			assert.ElementsMatch(t, expect, ids)

			links, err := s.ClipLinks(ctx, clipID)
			require.NoError(t, err)
			assert.ElementsMatch(t, expect, links)
		})
	}
}

func TestRelinkClipEmptyKeepsLinks(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seed(t, s, models.Range{Start: 10, End: 20})
	clipID := saveClip(t, s, f, 5, 15)

	_, err := s.RelinkClip(ctx, clipID, models.Range{Start: 5, End: 15}, nil)
	require.NoError(t, err)

	ids, err := s.RelinkClip(ctx, clipID, models.Range{Start: 500, End: 510}, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	links, err := s.ClipLinks(ctx, clipID)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.poss[0].ID}, links)
}

func TestRelinkClipScopedToGame(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seed(t, s, models.Range{Start: 10, End: 20})
	other := seed(t, s, models.Range{Start: 12, End: 18})
	clipID := saveClip(t, s, f, 0, 30)

	ids, err := s.RelinkClip(ctx, clipID, models.Range{Start: 0, End: 30}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{f.poss[0].ID, other.poss[0].ID}, ids)

	ids, err = s.RelinkClip(ctx, clipID, models.Range{Start: 0, End: 30}, &f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.poss[0].ID}, ids)
}

func TestClipPossessionContexts(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seed(t, s, models.Range{Start: 10, End: 20}, models.Range{Start: 15, End: 30})
	clipID := saveClip(t, s, f, 0, 40)

	_, err := s.RelinkClip(ctx, clipID, models.Range{Start: 0, End: 40}, nil)
	require.NoError(t, err)

	pcs, err := s.ClipPossessionContexts(ctx, clipID)
	require.NoError(t, err)
	require.Len(t, pcs, 2)

	assert.Equal(t, f.poss[0].ID, pcs[0].PossessionID)
	assert.Equal(t, "Drive", pcs[0].Label)
	assert.Nil(t, pcs[0].Outcome)
	assert.Equal(t, ptr.Ptr("Ava"), pcs[0].Player)
	assert.Equal(t, ptr.Ptr("Lions"), pcs[0].Team)
	assert.Equal(t, ptr.Ptr(10), pcs[0].StartSecond)
	assert.Equal(t, ptr.Ptr(20), pcs[0].EndSecond)
}

func TestDeleteClipCascadesLinks(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seed(t, s, models.Range{Start: 10, End: 20})
	clipID := saveClip(t, s, f, 0, 40)

	_, err := s.RelinkClip(ctx, clipID, models.Range{Start: 0, End: 40}, nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteClip(ctx, clipID))

	links, err := s.ClipLinks(ctx, clipID)
	require.NoError(t, err)
	assert.Empty(t, links)

	err = s.DeleteClip(ctx, clipID)
	assert.ErrorIs(t, err, storage.ErrClipNotFound)
}

func TestDeleteUploadCascadesClips(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seed(t, s, models.Range{Start: 10, End: 20})
	clipID := saveClip(t, s, f, 0, 40)

	require.NoError(t, s.DeleteUpload(ctx, f.upload))

	_, err := s.Clip(ctx, clipID)
	assert.ErrorIs(t, err, storage.ErrClipNotFound)
}

func TestIngestGameDeduplicatesPlayers(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	rows := []models.PossessionRow{
		{Line: 2, Player: "Ava", Jersey: "3", Label: "Drive", Team: ptr.Ptr("Lions")},
		{Line: 3, Player: "Ava", Jersey: "3", Label: "Post", Outcome: ptr.Ptr("made")},
	}

	g1, err := s.IngestGame(ctx, models.Game{Matchup: "Lions vs Tigers", ScheduledAt: time.Now()}, rows)
	require.NoError(t, err)
	g2, err := s.IngestGame(ctx, models.Game{Matchup: "Lions vs Tigers", ScheduledAt: time.Now()}, rows)
	require.NoError(t, err)
	require.NotEqual(t, g1.ID, g2.ID)

	p1, err := s.GamePossessions(ctx, g1.ID)
	require.NoError(t, err)
	p2, err := s.GamePossessions(ctx, g2.ID)
	require.NoError(t, err)
	require.Len(t, p1, 2)
	require.Len(t, p2, 2)

	playerID := *p1[0].PlayerID
	for _, p := range append(p1, p2...) {
		require.NotNil(t, p.PlayerID)
		assert.Equal(t, playerID, *p.PlayerID)
	}
	assert.Equal(t, ptr.Ptr("made"), p1[1].Outcome)

	pcs, err := s.GamePossessionContexts(ctx, g2.ID)
	require.NoError(t, err)
	assert.Equal(t, ptr.Ptr("Lions"), pcs[1].Team)
}

func TestIngestGameRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	_, err := s.db.ExecContext(ctx, `
		CREATE TRIGGER reject_label BEFORE INSERT ON possessions
		WHEN NEW.label = 'Reject'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END
	`)
	require.NoError(t, err)

	rows := []models.PossessionRow{
		{Line: 2, Player: "Ava", Jersey: "3", Label: "Drive", Team: ptr.Ptr("Lions")},
		{Line: 3, Player: "Bo", Jersey: "12", Label: "Post", Team: ptr.Ptr("Tigers")},
		{Line: 4, Player: "Cy", Jersey: "5", Label: "Reject", Team: ptr.Ptr("Bears")},
	}

	_, err = s.IngestGame(ctx, models.Game{Matchup: "Lions vs Tigers", ScheduledAt: time.Now()}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")

	for _, table := range []string{"games", "players", "possessions", "teams"} {
		var n int
		require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}
}

func TestLatestGame(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	_, err := s.LatestGame(ctx, "")
	assert.ErrorIs(t, err, storage.ErrGameNotFound)

	now := time.Now()
	old, err := s.IngestGame(ctx, models.Game{Matchup: "A vs B", ScheduledAt: now.Add(-time.Hour)}, nil)
	require.NoError(t, err)
	recent, err := s.IngestGame(ctx, models.Game{Matchup: "C vs D", ScheduledAt: now}, nil)
	require.NoError(t, err)

	g, err := s.LatestGame(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, recent.ID, g.ID)

	g, err = s.LatestGame(ctx, "A vs B")
	require.NoError(t, err)
	assert.Equal(t, old.ID, g.ID)

	_, err = s.LatestGame(ctx, "a vs b")
	assert.ErrorIs(t, err, storage.ErrGameNotFound)
}

func TestLinkUploads(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seed(t, s)

	unassigned, err := s.SaveUpload(ctx, models.Upload{
		TeamID:     f.team,
		Title:      "LIONS-VS-TIGERS scrimmage",
		StorageURL: "a.mp4",
		Status:     models.UploadPending,
		UploadedAt: time.Now(),
	})
	require.NoError(t, err)
	_, err = s.SaveUpload(ctx, models.Upload{
		TeamID:     f.team,
		Title:      "practice",
		StorageURL: "b.mp4",
		Status:     models.UploadPending,
		UploadedAt: time.Now(),
	})
	require.NoError(t, err)

	ids, err := s.LinkUploads(ctx, f.game.ID, func(u models.Upload) bool {
		return u.Title != "practice"
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{unassigned}, ids)

	u, err := s.Upload(ctx, unassigned)
	require.NoError(t, err)
	assert.Equal(t, &f.game.ID, u.GameID)
}

func TestFinishUpload(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seed(t, s)

	segs := []models.Segment{
		{StartSecond: 20, EndSecond: 40, Label: ptr.Ptr("Suggested segment 2")},
		{StartSecond: 0, EndSecond: 20, Label: ptr.Ptr("Suggested segment 1")},
	}
	require.NoError(t, s.FinishUpload(ctx, f.upload, ptr.Ptr(40), segs))

	u, err := s.Upload(ctx, f.upload)
	require.NoError(t, err)
	assert.Equal(t, models.UploadReady, u.Status)
	assert.Equal(t, ptr.Ptr(40), u.DurationSeconds)

	stored, err := s.Segments(ctx, f.upload)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 0, stored[0].StartSecond)
	assert.Equal(t, 20, stored[1].StartSecond)

	err = s.FinishUpload(ctx, f.upload+100, nil, segs)
	assert.ErrorIs(t, err, storage.ErrUploadNotFound)
}

func TestInvites(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seed(t, s)

	_, err := s.SaveInvite(ctx, models.Invite{
		TeamID:    f.team,
		Code:      "ABCDEFGH",
		Role:      models.RoleMember,
		MaxUses:   ptr.Ptr(1),
		CreatedBy: f.user,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	_, err = s.SaveInvite(ctx, models.Invite{TeamID: f.team, Code: "ABCDEFGH", Role: models.RoleMember, CreatedBy: f.user})
	assert.ErrorIs(t, err, storage.ErrInviteExists)

	inv, err := s.InviteByCode(ctx, "ABCDEFGH")
	require.NoError(t, err)
	assert.Equal(t, ptr.Ptr(1), inv.MaxUses)
	assert.True(t, inv.IsActive)

	joiner, err := s.SaveUser(ctx, gofakeit.Email(), "", []byte("hash"))
	require.NoError(t, err)

	member, err := s.AcceptInvite(ctx, inv, joiner)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, member.Role)

	_, err = s.AcceptInvite(ctx, inv, joiner)
	assert.ErrorIs(t, err, storage.ErrMemberExists)

	inv, err = s.InviteByCode(ctx, "ABCDEFGH")
	require.NoError(t, err)
	assert.Equal(t, 1, inv.Uses)

	teams, err := s.Memberships(ctx, joiner)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, f.team, teams[0].Team.ID)

	// invite read before the last use was spent
	stale := inv
	stale.Uses = 0
	late, err := s.SaveUser(ctx, gofakeit.Email(), "", []byte("hash"))
	require.NoError(t, err)

	_, err = s.AcceptInvite(ctx, stale, late)
	assert.ErrorIs(t, err, storage.ErrInviteUsedUp)

	_, err = s.Membership(ctx, f.team, late)
	assert.ErrorIs(t, err, storage.ErrMemberNotFound)

	inv, err = s.InviteByCode(ctx, "ABCDEFGH")
	require.NoError(t, err)
	assert.Equal(t, 1, inv.Uses)
}

func TestSaveUserDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	email := gofakeit.Email()
	_, err := s.SaveUser(ctx, email, "", []byte("hash"))
	require.NoError(t, err)

	_, err = s.SaveUser(ctx, email, "", []byte("hash"))
	assert.ErrorIs(t, err, storage.ErrUserExists)

	_, err = s.UserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	_, err = s.User(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}
