package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samduuf/elibrary/app/models"
)

// UserContext represents the complete user context for a request
type UserContext struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	UserType   string `json:"user_type"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin"`
}

// SetUser stores the authenticated user and derived context on the request.
func SetUser(c *fiber.Ctx, user *models.User, method string) {
	c.Locals(KeyUser, user)
	c.Locals(KeyAuthMethod, method)
	c.Locals(KeyUserContext, UserContext{
		UserID:     user.ID,
		Username:   user.Username,
		UserType:   user.UserType,
		IsLoggedIn: true,
		IsAdmin:    user.IsAdmin(),
	})
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}

// GetUser returns the authenticated user or nil.
func GetUser(c *fiber.Ctx) *models.User {
	if u, ok := c.Locals(KeyUser).(*models.User); ok {
		return u
	}
	return nil
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
