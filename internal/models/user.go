package models

import "time"

type UserIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	PassHash  []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

const ErrUserID int64 = 0
