package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/samduuf/elibrary/app/repository"
	"github.com/samduuf/elibrary/internal/pkg/accounts"
	"github.com/samduuf/elibrary/internal/pkg/hemis"
	"github.com/samduuf/elibrary/internal/pkg/session"
)

// AuthURLBuilder builds the provider front door URL.
type AuthURLBuilder interface {
	AuthURL(role hemis.Role, state string) string
}

// HemisController serves the delegated login endpoints.
type HemisController struct {
	accounts *accounts.Service
	urls     AuthURLBuilder
	users    repository.UserRepository
	media    URLResolver
}

func NewHemisController(svc *accounts.Service, urls AuthURLBuilder, users repository.UserRepository, media URLResolver) *HemisController {
	return &HemisController{accounts: svc, urls: urls, users: users, media: media}
}

type loginCallbackRequest struct {
	Code  string `json:"code" form:"code"`
	State string `json:"state" form:"state"`
	Role  string `json:"role" form:"role"`
}

// HandleLoginURL returns the provider authorize URL and remembers a one-time
// state plus the role hint in the server session.
func (hc *HemisController) HandleLoginURL(c *fiber.Ctx) error {
	roleParam := c.Query("role")
	if roleParam == "" {
		roleParam = c.Query("user_type")
	}
	role := hemis.ParseRole(roleParam)

	state := uuid.NewString()
	if err := session.SetSessionValue(c, session.KeyLoginState, state); err != nil {
		log.Warnf("[Hemis] login state not stored, continuing without: %v", err)
		state = ""
	} else if err := session.SetSessionValue(c, session.KeyLoginRole, string(role)); err != nil {
		log.Warnf("[Hemis] role hint %q not stored, callback will infer the role: %v", role, err)
	}

	authURL := hc.urls.AuthURL(role, state)
	return c.JSON(fiber.Map{
		"authUrl": authURL,
		"state":   state,
	})
}

// HandleLoginCallback finishes a delegated login for an authorization code.
func (hc *HemisController) HandleLoginCallback(c *fiber.Ctx) error {
	var req loginCallbackRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if req.Code == "" {
		req.Code = c.Query("code")
	}
	if req.State == "" {
		req.State = c.Query("state")
	}
	if req.Code == "" {
		return hemisError(c, hemis.ErrMissingCode)
	}

	stored := session.PopSessionValue(c, session.KeyLoginState)
	storedRole := session.PopSessionValue(c, session.KeyLoginRole)
	if req.State != "" && req.State != stored {
		return hemisError(c, hemis.ErrStateMismatch)
	}

	roleHint := hemis.Role(storedRole)
	if req.Role != "" {
		roleHint = hemis.ParseRole(req.Role)
	}

	res, err := hc.accounts.LoginWithCode(c.UserContext(), req.Code, roleHint)
	if err != nil {
		return hemisError(c, err)
	}

	user := res.User
	if full, err := hc.users.GetWithFavourites(user.ID); err == nil {
		user = full
	}

	return c.JSON(fiber.Map{
		"token": res.Token.Key,
		"user":  userResponse(user, hc.media),
	})
}

// hemisError maps broker failures to client errors; none of them is fatal.
func hemisError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, hemis.ErrMissingCode):
		return jsonError(c, fiber.StatusBadRequest, "missing_code", "Code is required")
	case errors.Is(err, hemis.ErrStateMismatch):
		return jsonError(c, fiber.StatusBadRequest, "state_mismatch", "Login state does not match, please start again")
	case errors.Is(err, hemis.ErrTokenRejected):
		log.Warnf("[Hemis] token exchange failed: %v", err)
		return jsonError(c, fiber.StatusBadRequest, "authentication_failed", "Failed to get access token from Hemis")
	case errors.Is(err, hemis.ErrProfileUnavailable):
		log.Warnf("[Hemis] profile fetch failed: %v", err)
		return jsonError(c, fiber.StatusBadRequest, "profile_unavailable", "Failed to get user info from Hemis")
	case errors.Is(err, hemis.ErrIdentityUnresolved):
		return jsonError(c, fiber.StatusBadRequest, "identity_unresolved", "Hemis profile has no usable identifier")
	default:
		log.Errorf("[Hemis] login failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
	}
}
