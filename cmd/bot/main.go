package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/samduuf/elibrary/app/repository"
	"github.com/samduuf/elibrary/internal/pkg/bot"
	"github.com/samduuf/elibrary/internal/pkg/database"
	"github.com/samduuf/elibrary/internal/pkg/env"
	"github.com/samduuf/elibrary/internal/pkg/media"
)

func main() {
	env.SetupEnvFile()

	token := env.GetEnv("TELEGRAM_BOT_TOKEN", "")
	if token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is not set")
	}

	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mediaCfg, err := media.LoadConfig()
	if err != nil {
		log.Fatalf("media config: %v", err)
	}
	store, err := media.NewStore(ctx, mediaCfg)
	if err != nil {
		log.Fatalf("media store: %v", err)
	}

	pollTimeout := env.GetEnvDuration("TELEGRAM_POLL_TIMEOUT", 30*time.Second)
	api, err := bot.NewAPI(token, env.GetEnv("TELEGRAM_API_URL", ""), pollTimeout)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}

	b := bot.New(bot.Config{
		SiteURL:     env.GetEnv("SITE_URL", "https://e-library.samduuf.uz"),
		PollTimeout: pollTimeout,
	}, api, repository.GetGlobalFactory().GetBookRepository(), store)

	log.Printf("Starting Telegram bot @%s...", api.Self.UserName)
	if err := b.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
