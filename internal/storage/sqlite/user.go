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

// SaveUser saves user.
func (s *Storage) SaveUser(ctx context.Context, email string, fullName string, passHash []byte) (int64, error) {
	const op = "storage.sqlite.SaveUser"

	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO users(email, full_name, pass_hash, created_at) VALUES(?, ?, ?, ?)")
	if err != nil {
		return models.ErrUserID, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, email, fullName, passHash, time.Now().UnixMicro())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return models.ErrUserID, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}

		return models.ErrUserID, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.ErrUserID, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// User returns user by id.
func (s *Storage) User(ctx context.Context, id int64) (models.User, error) {
	const op = "storage.sqlite.User"

	user, err := s.userBy(ctx, "id", id)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UserByEmail returns user by email.
func (s *Storage) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.sqlite.UserByEmail"

	user, err := s.userBy(ctx, "email", email)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Storage) userBy(ctx context.Context, column string, value any) (models.User, error) {
	stmt, err := s.db.PrepareContext(ctx, "SELECT id, email, full_name, pass_hash, created_at FROM users WHERE "+column+" = ?")
	if err != nil {
		return models.User{}, err
	}
	defer stmt.Close()

	var (
		user      models.User
		createdAt int64
	)
	err = stmt.QueryRowContext(ctx, value).Scan(&user.ID, &user.Email, &user.FullName, &user.PassHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}
	user.CreatedAt = fromMicro(createdAt)

	return user, nil
}
