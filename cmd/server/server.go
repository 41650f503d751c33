package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"support-relay/internal/app"
	"support-relay/internal/config"
	"support-relay/internal/infrastructure/auth"
	"support-relay/internal/infrastructure/database"
	"support-relay/internal/infrastructure/logger"
	"support-relay/internal/infrastructure/notifier"
	"support-relay/internal/infrastructure/observability"
	"support-relay/internal/interfaces/httpserver"
	"support-relay/internal/interfaces/httpserver/handlers"
	"support-relay/internal/realtime"
)

// @title Support Relay API
// @version 1.0
// @description WhatsApp support relay: inbound webhook, agent dashboard API and realtime events.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	background *app.Background
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, background *app.Background, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		background: background,
		log:        log,
	}
}

// Start runs the background components and blocks on the HTTP server.
func (a *Application) Start(ctx context.Context) error {
	if err := a.background.Start(ctx); err != nil {
		return fmt.Errorf("start background: %w", err)
	}
	defer a.background.Stop()
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

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
	defer closeDB(db, log)

	rdb, err := app.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer closeRedis(rdb, log)

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}
	defer authValidator.Close()

	store := app.NewConversationService(db)
	taskQueue := app.NewTaskQueue(db, log)
	hub := realtime.NewHub(log)

	publisher := app.NewPublisher(cfg, hub, rdb, log)
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
		app.NewRedisBridge(cfg, rdb, hub, log),
		log,
	)
	if !cfg.WorkerEnabled {
		log.Info().Msg("embedded workers disabled, run cmd/worker to process inbound messages")
		background.WithoutWorkers()
	}

	handlerProvider := handlers.NewProvider(taskQueue, store, engine, hub, notifier.NewHubPublisher(hub, log), log)
	httpServer := httpserver.New(cfg, log, handlerProvider, app.ReadinessCheck(db, rdb), authValidator)
	application := NewApplication(httpServer, background, log)

	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}

func closeDB(db *gorm.DB, log zerolog.Logger) {
	if err := database.Close(db); err != nil {
		log.Error().Err(err).Msg("close database")
	}
}

func closeRedis(rdb redis.UniversalClient, log zerolog.Logger) {
	if rdb == nil {
		return
	}
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("close redis")
	}
}
