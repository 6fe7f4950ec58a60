package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user exists")
	ErrUserNotFound       = errors.New("user not found")

	ErrInvalidToken = errors.New("invalid token")

	ErrTeamNotFound   = errors.New("team not found")
	ErrNotMember      = errors.New("not a team member")
	ErrForbidden      = errors.New("forbidden")
	ErrInviteNotFound = errors.New("invite not found")
	ErrInviteExpired  = errors.New("invite expired")
	ErrInviteUsedUp   = errors.New("invite has no uses left")
	ErrInvalidRole    = errors.New("invalid role")

	ErrGameNotFound       = errors.New("game not found")
	ErrPossessionNotFound = errors.New("possession not found")
	ErrUploadNotFound     = errors.New("upload not found")
	ErrSegmentNotFound    = errors.New("segment not found")
	ErrClipNotFound       = errors.New("clip not found")

	ErrInvalidRange   = errors.New("end must be greater than start")
	ErrInvalidFile    = errors.New("invalid file")
	ErrMissingMatchup = errors.New("matchup is required")
)

// RowError reports invalid spreadsheet row.
type RowError struct {
	Line  int
	Field string
	Msg   string
}

func (e *RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Msg)
}
