package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samduuf/elibrary/app/controllers"
	"github.com/samduuf/elibrary/internal/pkg/middleware"
)

type HttpRouter struct {
	deps *Dependencies
}

func NewHttpRouter(deps *Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Token or session authentication for every request; anonymous passes through.
	app.Use(middleware.Authenticate(h.deps.Accounts, h.deps.Repos.User))

	if h.deps.MediaDir != "" {
		app.Static("/uploads", h.deps.MediaDir)
	}

	if h.deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(h.deps.Gatherer, promhttp.HandlerOpts{})))
	}
	app.Get("/monitor", middleware.RequireAdmin, monitor.New(monitor.Config{Title: "E-Library Monitor"}))

	// Browser redirect login through goth
	oauth := controllers.NewOAuthController(h.deps.Accounts, h.deps.LoginRedirect)
	app.Get("/auth/:provider", oauth.HandleBegin)
	app.Get("/auth/:provider/callback", oauth.HandleCallback)
}
