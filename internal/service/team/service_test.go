package team

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimsports/aim-backend/internal/lib/logger/slogdiscard"
	ptr "github.com/aimsports/aim-backend/internal/lib/utils/pointers"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
	"github.com/aimsports/aim-backend/internal/storage/sqlite"
	"github.com/aimsports/aim-backend/migrations"
)

func newTeam(t *testing.T) (*Team, *sqlite.Storage) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "aim.db")
	_, err := migrations.Up(path, "")
	require.NoError(t, err)

	st, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Stop() })

	return New(slogdiscard.NewDiscardLogger(), st, 0), st
}

func newUser(t *testing.T, st *sqlite.Storage) int64 {
	t.Helper()

	id, err := st.SaveUser(context.Background(), gofakeit.Email(), gofakeit.Name(), []byte("hash"))
	require.NoError(t, err)

	return id
}

func TestNewCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := newCode(8)
		require.NoError(t, err)
		assert.Len(t, code, 8)
		assert.Equal(t, strings.ToUpper(code), code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 90)
}

func TestCreateTeam(t *testing.T) {
	ctx := context.Background()
	srv, st := newTeam(t)
	coach := newUser(t, st)

	member, err := srv.CreateTeam(ctx, coach, models.Team{Name: "Lions", Level: ptr.Ptr("U18")})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCoach, member.Role)
	assert.Equal(t, "Lions", member.Team.Name)

	teams, err := srv.MyTeams(ctx, coach)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, member.TeamID, teams[0].Team.ID)

	_, err = srv.Member(ctx, member.TeamID, newUser(t, st))
	assert.ErrorIs(t, err, service.ErrNotMember)
}

func TestInvites(t *testing.T) {
	ctx := context.Background()
	srv, st := newTeam(t)
	coach := newUser(t, st)
	player := newUser(t, st)
	late := newUser(t, st)

	member, err := srv.CreateTeam(ctx, coach, models.Team{Name: "Lions"})
	require.NoError(t, err)

	_, err = srv.CreateInvite(ctx, member.TeamID, coach, models.InviteIn{Role: ptr.Ptr("captain")})
	assert.ErrorIs(t, err, service.ErrInvalidRole)

	invite, err := srv.CreateInvite(ctx, member.TeamID, coach, models.InviteIn{MaxUses: ptr.Ptr(1)})
	require.NoError(t, err)
	assert.Len(t, invite.Code, defaultCodeLength)
	assert.Equal(t, models.RoleMember, invite.Role)

	joined, err := srv.Join(ctx, player, " "+strings.ToLower(invite.Code)+" ")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, joined.Role)
	assert.Equal(t, member.TeamID, joined.TeamID)

	again, err := srv.Join(ctx, player, invite.Code)
	require.NoError(t, err)
	assert.Equal(t, joined.ID, again.ID)

	_, err = srv.Join(ctx, late, invite.Code)
	assert.ErrorIs(t, err, service.ErrInviteUsedUp)

	_, err = srv.CreateInvite(ctx, member.TeamID, player, models.InviteIn{})
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = srv.CreateInvite(ctx, member.TeamID, late, models.InviteIn{})
	assert.ErrorIs(t, err, service.ErrNotMember)

	_, err = srv.Join(ctx, late, "NOSUCHCD")
	assert.ErrorIs(t, err, service.ErrInviteNotFound)
}

func TestInviteExpired(t *testing.T) {
	ctx := context.Background()
	srv, st := newTeam(t)
	coach := newUser(t, st)

	member, err := srv.CreateTeam(ctx, coach, models.Team{Name: "Lions"})
	require.NoError(t, err)

	invite, err := srv.CreateInvite(ctx, member.TeamID, coach, models.InviteIn{ExpiresInHours: ptr.Ptr(2)})
	require.NoError(t, err)
	require.NotNil(t, invite.ExpiresAt)

	srv.now = func() time.Time { return time.Now().Add(3 * time.Hour) }

	_, err = srv.Join(ctx, newUser(t, st), invite.Code)
	assert.ErrorIs(t, err, service.ErrInviteExpired)
}

func TestJoinLastUseConcurrently(t *testing.T) {
	ctx := context.Background()
	srv, st := newTeam(t)
	coach := newUser(t, st)

	member, err := srv.CreateTeam(ctx, coach, models.Team{Name: "Lions"})
	require.NoError(t, err)

	invite, err := srv.CreateInvite(ctx, member.TeamID, coach, models.InviteIn{MaxUses: ptr.Ptr(1)})
	require.NoError(t, err)

	users := make([]int64, 8)
	for i := range users {
		users[i] = newUser(t, st)
	}

	errs := make([]error, len(users))
	var wg sync.WaitGroup
	for i, uid := range users {
		wg.Add(1)
		go func(i int, uid int64) {
			defer wg.Done()
			_, errs[i] = srv.Join(ctx, uid, invite.Code)
		}(i, uid)
	}
	wg.Wait()

	joined := 0
	for _, err := range errs {
		if err == nil {
			joined++
			continue
		}
		assert.ErrorIs(t, err, service.ErrInviteUsedUp)
	}
	assert.Equal(t, 1, joined)

	stored, err := st.InviteByCode(ctx, invite.Code)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Uses)
}
