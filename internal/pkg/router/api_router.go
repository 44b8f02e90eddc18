package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/samduuf/elibrary/app/controllers"
	"github.com/samduuf/elibrary/internal/pkg/env"
	"github.com/samduuf/elibrary/internal/pkg/middleware"
)

type ApiRouter struct {
	deps *Dependencies
}

func NewApiRouter(deps *Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api",
		cors.New(cors.Config{
			AllowOrigins:     env.GetEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			AllowCredentials: false,
		}),
		limiter.New(limiter.Config{
			Max:        120,
			Expiration: time.Minute,
		}),
	)
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	h.registerAccountRoutes(v1)
	h.registerBookRoutes(v1)
	h.registerNewsRoutes(v1)
}

func (h ApiRouter) registerAccountRoutes(v1 fiber.Router) {
	deps := h.deps
	hemisCtrl := controllers.NewHemisController(deps.Accounts, deps.Broker, deps.Repos.User, deps.Uploader)
	accountCtrl := controllers.NewAccountController(deps.Accounts, deps.Repos.User, deps.Uploader)

	accounts := v1.Group("/accounts")
	accounts.Get("/login-url", hemisCtrl.HandleLoginURL)
	accounts.Post("/login-callback", hemisCtrl.HandleLoginCallback)
	// Paths used by the first web client.
	accounts.Get("/hemis/login", hemisCtrl.HandleLoginURL)
	accounts.Post("/hemis/callback", hemisCtrl.HandleLoginCallback)

	accounts.Post("/login", accountCtrl.HandleLogin)
	accounts.Post("/logout", accountCtrl.HandleLogout)
	accounts.Post("/change-password", middleware.RequireAuth, accountCtrl.HandleChangePassword)
	accounts.Get("/profile", middleware.RequireAuth, accountCtrl.HandleGetProfile)
	accounts.Patch("/profile", middleware.RequireAuth, accountCtrl.HandleUpdateProfile)
	accounts.Get("/users", middleware.RequireAdmin, accountCtrl.HandleListUsers)
	accounts.Post("/favorites/:book_id", middleware.RequireAuth, accountCtrl.HandleToggleFavourite)
}

func (h ApiRouter) registerBookRoutes(v1 fiber.Router) {
	bookCtrl := controllers.NewBookController(h.deps.Repos.Book, h.deps.Stats, h.deps.Uploader)

	books := v1.Group("/books")
	books.Get("/stats", bookCtrl.HandleStats)
	books.Get("/admin/stats", middleware.RequireAdmin, bookCtrl.HandleAdminStats)
	books.Get("/popular", bookCtrl.HandlePopular)
	books.Get("/", bookCtrl.HandleList)
	books.Get("/:id", bookCtrl.HandleGet)
	books.Post("/", middleware.RequireAdmin, bookCtrl.HandleCreate)
	books.Put("/:id", middleware.RequireAdmin, bookCtrl.HandleUpdate)
	books.Patch("/:id", middleware.RequireAdmin, bookCtrl.HandleUpdate)
	books.Delete("/:id", middleware.RequireAdmin, bookCtrl.HandleDelete)
}

func (h ApiRouter) registerNewsRoutes(v1 fiber.Router) {
	newsCtrl := controllers.NewNewsController(h.deps.Repos.News, h.deps.Uploader)

	news := v1.Group("/news")
	news.Get("/", newsCtrl.HandleList)
	news.Get("/:id", newsCtrl.HandleGet)
	news.Post("/", middleware.RequireAdmin, newsCtrl.HandleCreate)
	news.Put("/:id", middleware.RequireAdmin, newsCtrl.HandleUpdate)
	news.Patch("/:id", middleware.RequireAdmin, newsCtrl.HandleUpdate)
	news.Delete("/:id", middleware.RequireAdmin, newsCtrl.HandleDelete)
}
