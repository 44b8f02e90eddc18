package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/samduuf/elibrary/app/models"
	"github.com/samduuf/elibrary/internal/pkg/accounts"
	"github.com/samduuf/elibrary/internal/pkg/session"
	"github.com/samduuf/elibrary/internal/pkg/usercontext"
)

// TokenAuthenticator resolves a credential key to its user.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, key string) (*models.User, error)
}

// UserLoader loads the user stored in a browser session.
type UserLoader interface {
	GetByID(id uint) (*models.User, error)
}

// Authenticate sets the user context from an Authorization header or, when
// absent, from the browser session. Anonymous requests pass through; a
// presented but unknown token is rejected.
func Authenticate(tokens TokenAuthenticator, users UserLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key, present := extractToken(c); present {
			user, err := tokens.Authenticate(c.UserContext(), key)
			if err != nil {
				if isUnauthorized(err) {
					return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid token"})
				}
				log.Errorf("[Auth] token lookup failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Token verification failed"})
			}
			usercontext.SetUser(c, user, usercontext.AuthMethodToken)
			return c.Next()
		}

		if id := session.GetSessionUserID(c); id != 0 && users != nil {
			user, err := users.GetByID(id)
			if err == nil {
				usercontext.SetUser(c, user, usercontext.AuthMethodSession)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Warnf("[Auth] session user %d could not be loaded: %v", id, err)
			}
		}
		return c.Next()
	}
}

// extractToken accepts "Token <key>" and "Bearer <key>".
func extractToken(c *fiber.Ctx) (string, bool) {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if auth == "" {
		return "", false
	}
	scheme, key, found := strings.Cut(auth, " ")
	if !found {
		return "", false
	}
	switch strings.ToLower(scheme) {
	case "token", "bearer":
		return strings.TrimSpace(key), true
	default:
		return "", false
	}
}

func isUnauthorized(err error) bool {
	return errors.Is(err, accounts.ErrInvalidToken) || errors.Is(err, gorm.ErrRecordNotFound)
}
