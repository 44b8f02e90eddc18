package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/samduuf/elibrary/app/repository"
	"github.com/samduuf/elibrary/internal/pkg/accounts"
	"github.com/samduuf/elibrary/internal/pkg/session"
	"github.com/samduuf/elibrary/internal/pkg/usercontext"
)

// AccountController handles local login, profile and favourites.
type AccountController struct {
	accounts *accounts.Service
	users    repository.UserRepository
	media    URLResolver
}

func NewAccountController(svc *accounts.Service, users repository.UserRepository, media URLResolver) *AccountController {
	return &AccountController{accounts: svc, users: users, media: media}
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" form:"old_password"`
	NewPassword string `json:"new_password" form:"new_password"`
}

// HandleLogin authenticates a local account and returns its token.
func (ac *AccountController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Username and password are required")
	}

	res, err := ac.accounts.LoginWithPassword(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			return jsonError(c, fiber.StatusBadRequest, "invalid_credentials", "Invalid username or password")
		}
		log.Errorf("[Accounts] login failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
	}

	user := res.User
	if full, err := ac.users.GetWithFavourites(user.ID); err == nil {
		user = full
	}
	return c.JSON(fiber.Map{
		"token": res.Token.Key,
		"user":  userResponse(user, ac.media),
	})
}

// HandleLogout ends the browser session. Token credentials stay valid.
func (ac *AccountController) HandleLogout(c *fiber.Ctx) error {
	if err := session.Destroy(c); err != nil {
		log.Warnf("[Accounts] session destroy failed: %v", err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// HandleChangePassword replaces the password of the current user.
func (ac *AccountController) HandleChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "old_password and new_password are required")
	}

	err := ac.accounts.ChangePassword(c.UserContext(), usercontext.GetUserID(c), req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"message": "Password changed"})
	case errors.Is(err, accounts.ErrWrongPassword):
		return jsonError(c, fiber.StatusBadRequest, "wrong_password", "Old password is incorrect")
	case errors.Is(err, accounts.ErrWeakPassword):
		return jsonError(c, fiber.StatusBadRequest, "weak_password", err.Error())
	default:
		return storageError(c, err, "User")
	}
}

// HandleGetProfile returns the current user with favourites.
func (ac *AccountController) HandleGetProfile(c *fiber.Ctx) error {
	user, err := ac.users.GetWithFavourites(usercontext.GetUserID(c))
	if err != nil {
		return storageError(c, err, "User")
	}
	return c.JSON(userResponse(user, ac.media))
}

// HandleUpdateProfile updates first name, last name and email.
func (ac *AccountController) HandleUpdateProfile(c *fiber.Ctx) error {
	fields, err := formFields(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	user, err := ac.users.GetByID(usercontext.GetUserID(c))
	if err != nil {
		return storageError(c, err, "User")
	}
	if v, ok := fields["first_name"]; ok {
		user.FirstName = strings.TrimSpace(v)
	}
	if v, ok := fields["last_name"]; ok {
		user.LastName = strings.TrimSpace(v)
	}
	if v, ok := fields["email"]; ok {
		user.Email = strings.TrimSpace(v)
	}
	if err := user.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	if err := ac.users.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update profile")
	}

	return ac.HandleGetProfile(c)
}

// HandleToggleFavourite adds or removes a book from the current user's favourites.
func (ac *AccountController) HandleToggleFavourite(c *fiber.Ctx) error {
	bookID, err := paramID(c, "book_id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	added, err := ac.users.ToggleFavourite(usercontext.GetUserID(c), bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Book not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update favourites")
	}
	if added {
		return c.JSON(fiber.Map{"status": "added", "message": "Added to favourites"})
	}
	return c.JSON(fiber.Map{"status": "removed", "message": "Removed from favourites"})
}

// HandleListUsers lists accounts for the admin dashboard.
func (ac *AccountController) HandleListUsers(c *fiber.Ctx) error {
	offset, limit := pagination(c, 500)
	users, err := ac.users.List(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load users")
	}
	if total, err := ac.users.Count(); err == nil {
		c.Set("X-Total-Count", itoa(total))
	}

	out := make([]fiber.Map, 0, len(users))
	for i := range users {
		out = append(out, userResponse(&users[i], ac.media))
	}
	return c.JSON(out)
}
