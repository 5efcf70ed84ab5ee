package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/chat-moderator-bot/internal/app"
	"github.com/lueurxax/chat-moderator-bot/internal/platform/config"
)

const (
	modeBot     = "bot"
	modeMigrate = "migrate"
)

func main() {
	mode := flag.String("mode", modeBot, "Service mode (bot, migrate)")

	flag.Parse()

	if *mode != modeBot && *mode != modeMigrate {
		log.Fatalf("Usage: %s --mode=[bot|migrate]", os.Args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Opening the store applies pending migrations for either driver.
	store, err := app.OpenStore(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	if *mode == modeMigrate {
		logger.Info().Str("driver", cfg.StorageDriver).Msg("migrations applied")

		return
	}

	application := app.New(cfg, store, &logger)

	if err := application.RunBot(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")

			return
		}

		logger.Error().Err(err).Msg("application error")
		store.Close()
		os.Exit(1)
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
