package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samduuf/elibrary/app/models"
	"github.com/samduuf/elibrary/app/repository/repotest"
	"github.com/samduuf/elibrary/internal/pkg/accounts"
	"github.com/samduuf/elibrary/internal/pkg/hemis"
	"github.com/samduuf/elibrary/internal/pkg/session"
)

func decodeBody(t *testing.T, r io.Reader) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body
}

func newOAuthApp(t *testing.T, complete func(c *fiber.Ctx) (goth.User, error)) (*fiber.App, *repotest.Store) {
	t.Helper()
	session.UseStore(fibersession.New())
	t.Cleanup(func() { session.UseStore(nil) })

	store := repotest.NewStore()
	repos := store.Repositories()
	svc := accounts.NewService(repos.User, repos.Token, nil, hemis.DefaultConfig())

	oc := NewOAuthController(svc, "/library")
	oc.complete = complete

	app := fiber.New()
	app.Get("/auth/:provider/callback", oc.HandleCallback)
	return app, store
}

func TestOAuthCallbackProvisionsAndRedirects(t *testing.T) {
	app, store := newOAuthApp(t, func(c *fiber.Ctx) (goth.User, error) {
		return goth.User{
			Provider: c.Params("provider"),
			RawData: map[string]interface{}{
				"employee_id_number": "E55",
				"firstname":          "Nodira",
				"surname":            "Rashidova",
				hemis.FoundDomainKey: "hemis.samduuf.uz",
			},
		}, nil
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/auth/hemis-staff/callback?code=x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/library", resp.Header.Get("Location"))
	assert.NotEmpty(t, resp.Header.Get("Set-Cookie"))

	assert.Equal(t, 1, store.UserCount())
	u, err := store.Repositories().User.GetByUsername("E55")
	require.NoError(t, err)
	assert.Equal(t, models.USER_TYPE_EMPLOYEE, u.UserType)
	assert.Equal(t, "Nodira", u.FirstName)
}

func TestOAuthCallbackErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"missing code", hemis.ErrMissingCode, "missing_code"},
		{"rejected", hemis.ErrTokenRejected, "authentication_failed"},
		{"profile", hemis.ErrProfileUnavailable, "profile_unavailable"},
		{"goth failure", errors.New("select a provider"), "authentication_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, store := newOAuthApp(t, func(*fiber.Ctx) (goth.User, error) {
				return goth.User{}, tt.err
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/auth/hemis-student/callback", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			body := decodeBody(t, resp.Body)
			assert.Equal(t, tt.code, body["error"])
			assert.Zero(t, store.UserCount())
		})
	}
}

func TestOAuthCallbackUnresolvedIdentity(t *testing.T) {
	app, store := newOAuthApp(t, func(c *fiber.Ctx) (goth.User, error) {
		return goth.User{
			Provider: c.Params("provider"),
			RawData:  map[string]interface{}{"firstname": "Anon"},
		}, nil
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/auth/hemis-student/callback?code=x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "identity_unresolved", decodeBody(t, resp.Body)["error"])
	assert.Zero(t, store.UserCount())
}
