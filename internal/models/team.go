package models

import "time"

const (
	RoleCoach  = "coach"
	RoleMember = "member"
	RoleAdmin  = "admin"
)

type Team struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Level       *string   `json:"level"`
	SeasonLabel *string   `json:"season_label"`
	CreatedBy   *int64    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

type Membership struct {
	ID       int64     `json:"id"`
	TeamID   int64     `json:"-"`
	UserID   int64     `json:"-"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	Team     Team      `json:"team"`
}

// CanManage reports whether the member may issue invites.
func (m Membership) CanManage() bool {
	return m.Role == RoleCoach || m.Role == RoleAdmin
}

type InviteIn struct {
	Role           *string `json:"role"`
	ExpiresInHours *int    `json:"expires_in_hours"`
	MaxUses        *int    `json:"max_uses"`
}

type Invite struct {
	ID        int64      `json:"id"`
	TeamID    int64      `json:"team_id"`
	Code      string     `json:"code"`
	Role      string     `json:"role"`
	ExpiresAt *time.Time `json:"expires_at"`
	MaxUses   *int       `json:"max_uses"`
	Uses      int        `json:"uses"`
	IsActive  bool       `json:"-"`
	CreatedBy int64      `json:"-"`
	CreatedAt time.Time  `json:"-"`
}

// Expired reports whether invite is expired at t.
func (i Invite) Expired(t time.Time) bool {
	return i.ExpiresAt != nil && !t.Before(*i.ExpiresAt)
}

// UsedUp reports whether invite has no uses left.
func (i Invite) UsedUp() bool {
	return i.MaxUses != nil && i.Uses >= *i.MaxUses
}
