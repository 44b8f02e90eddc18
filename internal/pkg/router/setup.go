package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/samduuf/elibrary/app/repository"
	"github.com/samduuf/elibrary/internal/pkg/accounts"
	"github.com/samduuf/elibrary/internal/pkg/hemis"
	"github.com/samduuf/elibrary/internal/pkg/media"
	"github.com/samduuf/elibrary/internal/pkg/statistics"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the services the routes are built from.
type Dependencies struct {
	Repos    *repository.Repositories
	Accounts *accounts.Service
	Broker   *hemis.Broker
	Stats    *statistics.Service
	Uploader *media.Uploader
	Gatherer prometheus.Gatherer

	// MediaDir is served under /uploads when media is stored locally.
	MediaDir string
	// LoginRedirect is where the browser lands after a redirect login.
	LoginRedirect string
}

func InstallRouter(app *fiber.App, deps *Dependencies) {
	// The HTTP router installs the authentication middleware the API relies on.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
