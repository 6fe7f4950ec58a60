package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/storage"
)

// SaveTeam saves team and makes its creator a member with given role.
func (s *Storage) SaveTeam(ctx context.Context, team models.Team, creatorID int64, role string) (models.Membership, error) {
	const op = "storage.sqlite.SaveTeam"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	team.CreatedBy = &creatorID
	team.CreatedAt = now
	team.ID, err = s.saveTeamSubTeam(tx, ctx, team)
	if err != nil {
		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	member := models.Membership{
		TeamID:   team.ID,
		UserID:   creatorID,
		Role:     role,
		JoinedAt: now,
		Team:     team,
	}
	member.ID, err = s.saveMembership(tx, ctx, member)
	if err != nil {
		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	return member, nil
}

func (s *Storage) saveTeamSubTeam(tx statementBuilder, ctx context.Context, team models.Team) (int64, error) {
	const op = "saveTeamSubTeam"

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO teams(name, level, season_label, created_by, created_at)
		VALUES(?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(
		ctx,
		team.Name,
		nullable(team.Level),
		nullable(team.SeasonLabel),
		nullable(team.CreatedBy),
		team.CreatedAt.UnixMicro(),
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.LastInsertId()
}

func (s *Storage) saveMembership(tx statementBuilder, ctx context.Context, member models.Membership) (int64, error) {
	const op = "saveMembership"

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO team_memberships(team_id, user_id, role, joined_at) VALUES(?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, member.TeamID, member.UserID, member.Role, member.JoinedAt.UnixMicro())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrMemberExists)
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.LastInsertId()
}

func scanTeam(row scanner) (models.Team, error) {
	var (
		team        models.Team
		level       sql.NullString
		seasonLabel sql.NullString
		createdBy   sql.NullInt64
		createdAt   int64
	)
	if err := row.Scan(&team.ID, &team.Name, &level, &seasonLabel, &createdBy, &createdAt); err != nil {
		return models.Team{}, err
	}
	team.Level = fromNullString(level)
	team.SeasonLabel = fromNullString(seasonLabel)
	team.CreatedBy = fromNullInt64(createdBy)
	team.CreatedAt = fromMicro(createdAt)

	return team, nil
}

// Memberships returns all user memberships with teams.
func (s *Storage) Memberships(ctx context.Context, userID int64) ([]models.Membership, error) {
	const op = "storage.sqlite.Memberships"

	stmt, err := s.db.PrepareContext(ctx, `
		SELECT m.id, m.team_id, m.user_id, m.role, m.joined_at,
			t.id, t.name, t.level, t.season_label, t.created_by, t.created_at
		FROM team_memberships AS m
		JOIN teams AS t ON t.id = m.team_id
		WHERE m.user_id = ?
		ORDER BY m.joined_at, m.id
	`)
	if err != nil {
		return []models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, userID)
	if err != nil {
		return []models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	res := make([]models.Membership, 0)
	for rows.Next() {
		member, err := scanMembership(rows)
		if err != nil {
			return []models.Membership{}, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, member)
	}
	if err := rows.Err(); err != nil {
		return []models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// Membership returns membership of user in team.
func (s *Storage) Membership(ctx context.Context, teamID int64, userID int64) (models.Membership, error) {
	const op = "storage.sqlite.Membership"

	stmt, err := s.db.PrepareContext(ctx, `
		SELECT m.id, m.team_id, m.user_id, m.role, m.joined_at,
			t.id, t.name, t.level, t.season_label, t.created_by, t.created_at
		FROM team_memberships AS m
		JOIN teams AS t ON t.id = m.team_id
		WHERE m.team_id = ? AND m.user_id = ?
	`)
	if err != nil {
		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	member, err := scanMembership(stmt.QueryRowContext(ctx, teamID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Membership{}, fmt.Errorf("%s: %w", op, storage.ErrMemberNotFound)
		}

		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	return member, nil
}

func scanMembership(row scanner) (models.Membership, error) {
	var (
		member      models.Membership
		joinedAt    int64
		level       sql.NullString
		seasonLabel sql.NullString
		createdBy   sql.NullInt64
		createdAt   int64
	)
	err := row.Scan(
		&member.ID, &member.TeamID, &member.UserID, &member.Role, &joinedAt,
		&member.Team.ID, &member.Team.Name, &level, &seasonLabel, &createdBy, &createdAt,
	)
	if err != nil {
		return models.Membership{}, err
	}
	member.JoinedAt = fromMicro(joinedAt)
	member.Team.Level = fromNullString(level)
	member.Team.SeasonLabel = fromNullString(seasonLabel)
	member.Team.CreatedBy = fromNullInt64(createdBy)
	member.Team.CreatedAt = fromMicro(createdAt)

	return member, nil
}

// SaveInvite saves invite code.
func (s *Storage) SaveInvite(ctx context.Context, invite models.Invite) (int64, error) {
	const op = "storage.sqlite.SaveInvite"

	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO team_invites(team_id, code, role, expires_at, max_uses, uses, is_active, created_by, created_at)
		VALUES(?, ?, ?, ?, ?, 0, 1, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(
		ctx,
		invite.TeamID,
		invite.Code,
		invite.Role,
		nullableTime(invite.ExpiresAt),
		nullable(invite.MaxUses),
		invite.CreatedBy,
		invite.CreatedAt.UnixMicro(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrInviteExists)
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// InviteByCode returns active invite by its code.
func (s *Storage) InviteByCode(ctx context.Context, code string) (models.Invite, error) {
	const op = "storage.sqlite.InviteByCode"

	stmt, err := s.db.PrepareContext(ctx, `
		SELECT id, team_id, code, role, expires_at, max_uses, uses, is_active, created_by, created_at
		FROM team_invites
		WHERE code = ? AND is_active = 1
	`)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	var (
		invite    models.Invite
		expiresAt sql.NullInt64
		maxUses   sql.NullInt64
		createdAt int64
	)
	err = stmt.QueryRowContext(ctx, code).Scan(
		&invite.ID, &invite.TeamID, &invite.Code, &invite.Role, &expiresAt,
		&maxUses, &invite.Uses, &invite.IsActive, &invite.CreatedBy, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Invite{}, fmt.Errorf("%s: %w", op, storage.ErrInviteNotFound)
		}

		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}
	invite.ExpiresAt = fromNullTime(expiresAt)
	invite.MaxUses = fromNullInt(maxUses)
	invite.CreatedAt = fromMicro(createdAt)

	return invite, nil
}

// AcceptInvite adds user to the invite's team and counts the use.
func (s *Storage) AcceptInvite(ctx context.Context, invite models.Invite, userID int64) (models.Membership, error) {
	const op = "storage.sqlite.AcceptInvite"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	team, err := s.acceptInviteSubTeam(tx, ctx, invite.TeamID)
	if err != nil {
		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	member := models.Membership{
		TeamID:   invite.TeamID,
		UserID:   userID,
		Role:     invite.Role,
		JoinedAt: time.Now().UTC(),
		Team:     team,
	}
	member.ID, err = s.saveMembership(tx, ctx, member)
	if err != nil {
		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.acceptInviteSubUse(tx, ctx, invite.ID); err != nil {
		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	return member, nil
}

func (s *Storage) acceptInviteSubTeam(tx statementBuilder, ctx context.Context, teamID int64) (models.Team, error) {
	const op = "acceptInviteSubTeam"

	stmt, err := tx.PrepareContext(ctx, "SELECT id, name, level, season_label, created_by, created_at FROM teams WHERE id = ?")
	if err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	team, err := scanTeam(stmt.QueryRowContext(ctx, teamID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Team{}, fmt.Errorf("%s: %w", op, storage.ErrTeamNotFound)
		}

		return models.Team{}, fmt.Errorf("%s: %w", op, err)
	}

	return team, nil
}

func (s *Storage) acceptInviteSubUse(tx statementBuilder, ctx context.Context, inviteID int64) error {
	const op = "acceptInviteSubUse"

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE team_invites SET uses = uses + 1
		WHERE id = ? AND (max_uses IS NULL OR uses < max_uses)
	`)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, inviteID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affectedRows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affectedRows == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrInviteUsedUp)
	}

	return nil
}
