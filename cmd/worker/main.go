// Command worker drains the inbound queue and runs the inactivity reaper without serving HTTP.
// Events reach dashboards through the server process, over HTTP or Redis.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"support-relay/internal/app"
	"support-relay/internal/config"
	"support-relay/internal/infrastructure/database"
	"support-relay/internal/infrastructure/logger"
	"support-relay/internal/infrastructure/observability"
	"support-relay/internal/realtime"
)

func main() {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	cfg.ServiceName += "-worker"
	log := logger.New(cfg)

	if cfg.NotifyMode == config.NotifyModeInProcess {
		log.Warn().Msg("NOTIFY_MODE is inprocess, dashboards will not see events from this worker; use http or redis")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := app.NewGormDB(ctx, app.NewDatabaseConfig(cfg), log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	rdb, err := app.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	store := app.NewConversationService(db)
	taskQueue := app.NewTaskQueue(db, log)
	publisher := app.NewPublisher(cfg, realtime.NewHub(log), rdb, log)
	engine := app.NewEngine(cfg, store,
		app.NewResponder(cfg, app.NewCompleter(cfg, log), log),
		app.NewDeliveryService(cfg, app.NewSender(cfg, log), log),
		publisher,
		app.NewLocker(cfg, rdb, log),
		log,
	)

	background := app.NewBackground(
		app.NewWorkerPool(cfg, taskQueue, engine, log),
		app.NewCrontab(cfg, app.NewReaper(cfg, store, publisher, log), taskQueue, log),
		nil,
		log,
	)
	if err := background.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start worker")
	}

	log.Info().Int("workers", cfg.WorkerCount).Msg("worker running")
	<-ctx.Done()
	log.Info().Msg("shutting down worker")
	background.Stop()
	log.Info().Msg("worker exited cleanly")
}
