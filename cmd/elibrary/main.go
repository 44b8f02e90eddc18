package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/samduuf/elibrary/app/repository"
	"github.com/samduuf/elibrary/internal/pkg/accounts"
	"github.com/samduuf/elibrary/internal/pkg/cache"
	"github.com/samduuf/elibrary/internal/pkg/database"
	"github.com/samduuf/elibrary/internal/pkg/env"
	"github.com/samduuf/elibrary/internal/pkg/hemis"
	"github.com/samduuf/elibrary/internal/pkg/media"
	"github.com/samduuf/elibrary/internal/pkg/oauth"
	"github.com/samduuf/elibrary/internal/pkg/router"
	"github.com/samduuf/elibrary/internal/pkg/session"
	"github.com/samduuf/elibrary/internal/pkg/statistics"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "8000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	session.NewSessionStore()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/elibrary to project root
		"../../../", // Fallback
	}
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		panic("Could not find project root directory")
	}

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := hemis.NewMetrics(reg)

	hemisCfg := hemis.ConfigFromEnv()
	if hemisCfg.ClientID == "" || hemisCfg.ClientSecret == "" {
		log.Println("HEMIS_CLIENT_ID or HEMIS_CLIENT_SECRET is empty, delegated login will fail")
	}
	broker := hemis.NewBroker(hemisCfg, hemis.WithMetrics(metrics))
	oauth.Setup(broker)

	mediaCfg, err := media.LoadConfig()
	if err != nil {
		log.Fatalf("media config: %v", err)
	}
	store, err := media.NewStore(context.Background(), mediaCfg)
	if err != nil {
		log.Fatalf("media store: %v", err)
	}
	mediaDir := ""
	if mediaCfg.Backend != media.BackendS3 {
		mediaDir = mediaCfg.LocalDir
	}

	deps := &router.Dependencies{
		Repos:         repos,
		Accounts:      accounts.NewService(repos.User, repos.Token, broker, hemisCfg).WithMetrics(metrics),
		Broker:        broker,
		Stats:         statistics.NewService(repos.Book, repos.User, cache.Store{}),
		Uploader:      media.NewUploader(store, mediaCfg.CoverMaxWidth),
		Gatherer:      reg,
		MediaDir:      mediaDir,
		LoginRedirect: env.GetEnv("LOGIN_REDIRECT_URL", "/"),
	}

	app := fiber.New(fiber.Config{
		BodyLimit: int(media.MaxFileSize) + 1<<20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, deps)

	return app
}
