package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aimsports/aim-backend/internal/lib/logger/sl"
	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
	"github.com/aimsports/aim-backend/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

type Auth struct {
	log         *slog.Logger
	userStorage UserStorage
	jwtMaker    jwtMaker
	tokenTTL    time.Duration
}

type jwtMaker interface {
	NewToken(user models.User, duration time.Duration) (string, error)
}

type UserStorage interface {
	SaveUser(ctx context.Context, email string, fullName string, passHash []byte) (int64, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	User(ctx context.Context, id int64) (models.User, error)
}

// New returns new instance of authentication service
func New(
	log *slog.Logger,
	userStorage UserStorage,
	jwtMaker jwtMaker,
	tokenTTL time.Duration,
) *Auth {
	return &Auth{
		log:         log,
		userStorage: userStorage,
		jwtMaker:    jwtMaker,
		tokenTTL:    tokenTTL,
	}
}

// Register creates new user account.
func (a *Auth) Register(ctx context.Context, form models.UserIn) (models.User, error) {
	const op = "Auth.Register"

	email := strings.ToLower(strings.TrimSpace(form.Email))

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("registering user")

	passHash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.userStorage.SaveUser(ctx, email, form.FullName, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists", sl.Err(err))

			return models.User{}, fmt.Errorf("%s: %w", op, service.ErrUserExists)
		}

		log.Error("failed to save user", sl.Err(err))

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.Int64("id", id))

	return models.User{
		ID:        id,
		Email:     email,
		FullName:  form.FullName,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Login checks if user with given credentials exists in the system and returns access token.
//
// If user exists, but password is incorrect, returns error.
// If user doesn't exist, returns error.
func (a *Auth) Login(ctx context.Context, email string, password string) (string, error) {
	const op = "Auth.Login"

	email = strings.ToLower(strings.TrimSpace(email))

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("attempting to login user")

	user, err := a.userStorage.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found", sl.Err(err))

			return "", fmt.Errorf("%s: %w", op, service.ErrInvalidCredentials)
		}

		log.Error("failed to get user", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, service.ErrInvalidCredentials)
	}

	log.Info("user logged in successfully")

	token, err := a.jwtMaker.NewToken(user, a.tokenTTL)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// User returns user the token was issued for.
func (a *Auth) User(ctx context.Context, id int64) (models.User, error) {
	const op = "Auth.User"

	user, err := a.userStorage.User(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, service.ErrUserNotFound)
		}

		a.log.Error("failed to get user", slog.String("op", op), sl.Err(err))

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
