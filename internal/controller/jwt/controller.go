package jwtController

import (
	"context"
	"errors"
	"time"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
)

var ErrNoUser = errors.New("no user in token")

type JWT struct {
	secret  []byte
	users   Users
	timeout time.Duration
}

type Users interface {
	User(ctx context.Context, id int64) (models.User, error)
}

func New(secret []byte, users Users, timeout time.Duration) *JWT {
	return &JWT{
		secret:  secret,
		users:   users,
		timeout: timeout,
	}
}

// AuthRequired validates the bearer token and
// rejects tokens of users that no longer exist.
func (jwtController *JWT) AuthRequired() func(*fiber.Ctx) error {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: jwtController.secret},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication error",
			})
		},
		SuccessHandler: jwtController.userExists,
	})
}

func (jwtController *JWT) userExists(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), jwtController.timeout)
	defer cancel()

	uid, err := UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid token payload",
		})
	}

	if _, err := jwtController.users.User(ctx, uid); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "user not found",
			})
		}

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Next()
}

// UserID returns id of the user the request
// was authorized for by AuthRequired.
func UserID(c *fiber.Ctx) (int64, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return 0, ErrNoUser
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrNoUser
	}

	uid, ok := claims["uid"].(float64)
	if !ok {
		return 0, ErrNoUser
	}

	return int64(uid), nil
}
