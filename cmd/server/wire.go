//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"support-relay/internal/app"
	"support-relay/internal/config"
	"support-relay/internal/domain/conversation"
	"support-relay/internal/domain/routing"
	"support-relay/internal/infrastructure/auth"
	"support-relay/internal/infrastructure/logger"
	"support-relay/internal/infrastructure/notifier"
	"support-relay/internal/infrastructure/queue"
	"support-relay/internal/interfaces/httpserver"
	"support-relay/internal/interfaces/httpserver/handlers"
	"support-relay/internal/realtime"
)

// BuildApplication demonstrates how to assemble the relay server with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		app.StoreSet,
		app.RoutingSet,
		app.BackgroundSet,
		wire.Bind(new(handlers.AgentService), new(*routing.Engine)),
		newAuthValidator,
		newHandlerProvider,
		newReadinessCheck,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

func newHandlerProvider(
	producer queue.Producer,
	store conversation.Service,
	agents handlers.AgentService,
	hub *realtime.Hub,
	log zerolog.Logger,
) *handlers.Provider {
	return handlers.NewProvider(producer, store, agents, hub, notifier.NewHubPublisher(hub, log), log)
}

func newReadinessCheck(db *gorm.DB, rdb redis.UniversalClient) httpserver.ReadinessCheck {
	return app.ReadinessCheck(db, rdb)
}
