package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buildpos/internal/config"
	"buildpos/internal/infra"
	"buildpos/internal/mirror"
	"buildpos/internal/repository"
	"buildpos/internal/router"
	"buildpos/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	memoryMode := flag.Bool("memory", false, "run with in-memory snapshot/sequence backends (no Postgres/Redis)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	deps := router.Deps{Hub: mirror.NewHub()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *memoryMode {
		log.Warn().Msg("memory mode: snapshots are not persisted across restarts")
		deps.Snapshots = repository.NewMemSnapshotRepository()
		deps.Sequences = repository.NewMemSequenceRepository()
	} else {
		db, err := infra.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		snapshots, err := repository.NewGormSnapshotRepository(db)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to migrate snapshot schema")
		}

		rdb, err := infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}

		deps.DB = db
		deps.RDB = rdb
		deps.Snapshots = snapshots
		deps.Sequences = repository.NewRedisSequenceRepository(rdb)

		// Debt reminder pipeline: cron scans debtors, pool drains the queue
		// into Telegram. Disabled when no bot token is configured.
		notifier, err := infra.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init telegram notifier")
		}
		if notifier != nil {
			dispatcher := worker.NewDispatcher(rdb)
			worker.StartPool(ctx, rdb, notifier, cfg.WorkerPoolSize)
			worker.StartReminderCron(ctx, worker.ReminderCronConfig{
				Snapshots:    snapshots,
				Dispatcher:   dispatcher,
				ReminderDays: cfg.ReminderDays,
			})
		}
	}

	go deps.Hub.Run()
	defer deps.Hub.Close()

	r := router.New(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("BuildPOS snapshot store listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
