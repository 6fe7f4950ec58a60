package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimsports/aim-backend/internal/lib/logger/slogdiscard"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
	jwtService "github.com/aimsports/aim-backend/internal/service/jwt"
	"github.com/aimsports/aim-backend/internal/storage"
)

type fakeUsers struct {
	users map[string]models.User
	err   error
}

func (f *fakeUsers) SaveUser(_ context.Context, email string, fullName string, passHash []byte) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if _, ok := f.users[email]; ok {
		return 0, storage.ErrUserExists
	}

	id := int64(len(f.users) + 1)
	f.users[email] = models.User{ID: id, Email: email, FullName: fullName, PassHash: passHash}

	return id, nil
}

func (f *fakeUsers) UserByEmail(_ context.Context, email string) (models.User, error) {
	if f.err != nil {
		return models.User{}, f.err
	}
	user, ok := f.users[email]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUsers) User(_ context.Context, id int64) (models.User, error) {
	if f.err != nil {
		return models.User{}, f.err
	}
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return models.User{}, storage.ErrUserNotFound
}

func TestRegisterLogin(t *testing.T) {
	ctx := context.Background()
	secret := []byte(gofakeit.Password(true, true, true, false, false, 16))
	users := &fakeUsers{users: make(map[string]models.User)}

	a := New(slogdiscard.NewDiscardLogger(), users, jwtService.New(secret), time.Hour)

	pass := gofakeit.Password(true, true, true, true, false, 12)
	user, err := a.Register(ctx, models.UserIn{Email: " Coach@Example.com ", Password: pass, FullName: "Ava Coach"})
	require.NoError(t, err)
	assert.Equal(t, "coach@example.com", user.Email)
	assert.Equal(t, int64(1), user.ID)

	_, err = a.Register(ctx, models.UserIn{Email: "coach@example.com", Password: pass, FullName: "Other"})
	assert.ErrorIs(t, err, service.ErrUserExists)

	token, err := a.Login(ctx, "COACH@example.com", pass)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	assert.Equal(t, float64(1), claims["uid"])
	assert.Equal(t, "coach@example.com", claims["email"])

	_, err = a.Login(ctx, "coach@example.com", "wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = a.Login(ctx, "nobody@example.com", pass)
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	found, err := a.User(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "coach@example.com", found.Email)

	_, err = a.User(ctx, 42)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestStorageFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	users := &fakeUsers{users: make(map[string]models.User), err: boom}

	a := New(slogdiscard.NewDiscardLogger(), users, jwtService.New([]byte("secret")), time.Hour)

	_, err := a.Register(ctx, models.UserIn{Email: "a@b.c", Password: "pass", FullName: "A"})
	assert.ErrorIs(t, err, boom)

	_, err = a.Login(ctx, "a@b.c", "pass")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = a.User(ctx, 1)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, service.ErrUserNotFound)
}
