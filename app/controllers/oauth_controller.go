package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/samduuf/elibrary/internal/pkg/accounts"
	"github.com/samduuf/elibrary/internal/pkg/hemis"
	"github.com/samduuf/elibrary/internal/pkg/session"
)

// OAuthController runs the browser redirect login through goth.
type OAuthController struct {
	accounts    *accounts.Service
	redirectURL string
	complete    func(c *fiber.Ctx) (goth.User, error)
}

func NewOAuthController(svc *accounts.Service, redirectURL string) *OAuthController {
	if redirectURL == "" {
		redirectURL = "/"
	}
	return &OAuthController{
		accounts:    svc,
		redirectURL: redirectURL,
		complete: func(c *fiber.Ctx) (goth.User, error) {
			return gothfiber.CompleteUserAuth(c)
		},
	}
}

// HandleBegin redirects to the provider named by :provider.
func (oc *OAuthController) HandleBegin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleCallback provisions the account and logs the browser session in.
func (oc *OAuthController) HandleCallback(c *fiber.Ctx) error {
	u, err := oc.complete(c)
	if err != nil {
		if isBrokerError(err) {
			return hemisError(c, err)
		}
		log.Warnf("[OAuth] callback rejected: %v", err)
		return jsonError(c, fiber.StatusBadRequest, "authentication_failed", "Login could not be completed")
	}

	res, err := oc.accounts.Provision(c.UserContext(),
		hemis.ProfileFromUser(u),
		hemis.InferRole(hemis.ProfileFromUser(u), hemis.RoleForProvider(u.Provider)),
		hemis.DomainFromUser(u),
	)
	if err != nil {
		return hemisError(c, err)
	}

	if err := session.SetSessionValue(c, session.KeyUserID, res.User.ID); err != nil {
		log.Errorf("[OAuth] could not store session for user %d: %v", res.User.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Session unavailable")
	}
	return c.Redirect(oc.redirectURL, fiber.StatusSeeOther)
}

func isBrokerError(err error) bool {
	return errors.Is(err, hemis.ErrMissingCode) ||
		errors.Is(err, hemis.ErrTokenRejected) ||
		errors.Is(err, hemis.ErrProfileUnavailable) ||
		errors.Is(err, hemis.ErrIdentityUnresolved)
}
