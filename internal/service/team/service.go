package team

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aimsports/aim-backend/internal/lib/logger/sl"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
	"github.com/aimsports/aim-backend/internal/storage"
)

const (
	codeAttempts      = 5
	defaultCodeLength = 8
)

type Team struct {
	log         *slog.Logger
	teamStorage TeamStorage
	codeLength  int
	now         func() time.Time
}

type TeamStorage interface {
	SaveTeam(ctx context.Context, team models.Team, creatorID int64, role string) (models.Membership, error)
	Memberships(ctx context.Context, userID int64) ([]models.Membership, error)
	Membership(ctx context.Context, teamID int64, userID int64) (models.Membership, error)
	SaveInvite(ctx context.Context, invite models.Invite) (int64, error)
	InviteByCode(ctx context.Context, code string) (models.Invite, error)
	AcceptInvite(ctx context.Context, invite models.Invite, userID int64) (models.Membership, error)
}

func New(
	log *slog.Logger,
	teamStorage TeamStorage,
	codeLength int,
) *Team {
	if codeLength <= 0 {
		codeLength = defaultCodeLength
	}

	return &Team{
		log:         log,
		teamStorage: teamStorage,
		codeLength:  codeLength,
		now:         time.Now,
	}
}

// CreateTeam creates team, its creator becomes a coach.
func (t *Team) CreateTeam(ctx context.Context, userID int64, team models.Team) (models.Membership, error) {
	const op = "Team.CreateTeam"

	log := t.log.With(
		slog.String("op", op),
		slog.Int64("uid", userID),
	)

	log.Info("creating team", slog.String("name", team.Name))

	member, err := t.teamStorage.SaveTeam(ctx, team, userID, models.RoleCoach)
	if err != nil {
		log.Error("failed to save team", sl.Err(err))

		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("team created", slog.Int64("id", member.TeamID))

	return member, nil
}

// MyTeams returns all memberships of the user.
func (t *Team) MyTeams(ctx context.Context, userID int64) ([]models.Membership, error) {
	const op = "Team.MyTeams"

	log := t.log.With(
		slog.String("op", op),
		slog.Int64("uid", userID),
	)

	res, err := t.teamStorage.Memberships(ctx, userID)
	if err != nil {
		log.Error("failed to get memberships", sl.Err(err))

		return []models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// Member returns membership of user in team.
//
// If user is not a member, returns service.ErrNotMember.
func (t *Team) Member(ctx context.Context, teamID int64, userID int64) (models.Membership, error) {
	const op = "Team.Member"

	member, err := t.teamStorage.Membership(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrMemberNotFound) {
			return models.Membership{}, fmt.Errorf("%s: %w", op, service.ErrNotMember)
		}

		t.log.Error("failed to get membership", slog.String("op", op), sl.Err(err))

		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	return member, nil
}

// CreateInvite issues new invite code. Only coaches and admins may invite.
func (t *Team) CreateInvite(ctx context.Context, teamID int64, userID int64, in models.InviteIn) (models.Invite, error) {
	const op = "Team.CreateInvite"

	log := t.log.With(
		slog.String("op", op),
		slog.Int64("uid", userID),
		slog.Int64("team_id", teamID),
	)

	member, err := t.Member(ctx, teamID, userID)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}
	if !member.CanManage() {
		log.Warn("not allowed to invite", slog.String("role", member.Role))

		return models.Invite{}, fmt.Errorf("%s: %w", op, service.ErrForbidden)
	}

	role := models.RoleMember
	if in.Role != nil {
		role = *in.Role
	}
	switch role {
	case models.RoleMember, models.RoleCoach, models.RoleAdmin:
	default:
		return models.Invite{}, fmt.Errorf("%s: %w", op, service.ErrInvalidRole)
	}

	now := t.now().UTC()
	invite := models.Invite{
		TeamID:    teamID,
		Role:      role,
		MaxUses:   in.MaxUses,
		IsActive:  true,
		CreatedBy: userID,
		CreatedAt: now,
	}
	if in.ExpiresInHours != nil {
		expiresAt := now.Add(time.Duration(*in.ExpiresInHours) * time.Hour)
		invite.ExpiresAt = &expiresAt
	}

	for i := 0; i < codeAttempts; i++ {
		invite.Code, err = newCode(t.codeLength)
		if err != nil {
			log.Error("failed to generate code", sl.Err(err))

			return models.Invite{}, fmt.Errorf("%s: %w", op, err)
		}

		invite.ID, err = t.teamStorage.SaveInvite(ctx, invite)
		if err == nil {
			log.Info("invite created", slog.Int64("id", invite.ID))

			return invite, nil
		}
		if !errors.Is(err, storage.ErrInviteExists) {
			break
		}
	}

	log.Error("failed to save invite", sl.Err(err))

	return models.Invite{}, fmt.Errorf("%s: %w", op, err)
}

// Join adds user to the team of the invite code.
//
// Joining a team twice returns existing membership
// without spending an invite use.
func (t *Team) Join(ctx context.Context, userID int64, code string) (models.Membership, error) {
	const op = "Team.Join"

	log := t.log.With(
		slog.String("op", op),
		slog.Int64("uid", userID),
	)

	invite, err := t.teamStorage.InviteByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, storage.ErrInviteNotFound) {
			log.Warn("invite not found")

			return models.Membership{}, fmt.Errorf("%s: %w", op, service.ErrInviteNotFound)
		}

		log.Error("failed to get invite", sl.Err(err))

		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	if invite.Expired(t.now()) {
		return models.Membership{}, fmt.Errorf("%s: %w", op, service.ErrInviteExpired)
	}

	member, err := t.teamStorage.Membership(ctx, invite.TeamID, userID)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, storage.ErrMemberNotFound) {
		log.Error("failed to get membership", sl.Err(err))

		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	if invite.UsedUp() {
		return models.Membership{}, fmt.Errorf("%s: %w", op, service.ErrInviteUsedUp)
	}

	member, err = t.teamStorage.AcceptInvite(ctx, invite, userID)
	if err != nil {
		if errors.Is(err, storage.ErrMemberExists) {
			return t.Member(ctx, invite.TeamID, userID)
		}
		if errors.Is(err, storage.ErrInviteUsedUp) {
			log.Warn("invite used up concurrently")

			return models.Membership{}, fmt.Errorf("%s: %w", op, service.ErrInviteUsedUp)
		}

		log.Error("failed to accept invite", sl.Err(err))

		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("joined team", slog.Int64("team_id", member.TeamID))

	return member, nil
}

func newCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	code := strings.ToUpper(base64.RawURLEncoding.EncodeToString(buf))

	return code[:length], nil
}
