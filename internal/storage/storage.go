package storage

import "errors"

var (
	ErrUserExists         = errors.New("user exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrMemberNotFound     = errors.New("membership not found")
	ErrMemberExists       = errors.New("membership exists")
	ErrInviteExists       = errors.New("invite exists")
	ErrInviteNotFound     = errors.New("invite not found")
	ErrInviteUsedUp       = errors.New("invite has no uses left")
	ErrGameNotFound       = errors.New("game not found")
	ErrPossessionNotFound = errors.New("possession not found")
	ErrUploadNotFound     = errors.New("upload not found")
	ErrSegmentNotFound    = errors.New("segment not found")
	ErrClipNotFound       = errors.New("clip not found")
)
