// Package app assembles the relay's components for the server and worker binaries.
package app

import (
	"context"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"support-relay/internal/config"
	"support-relay/internal/domain/conversation"
	"support-relay/internal/domain/delivery"
	"support-relay/internal/domain/notify"
	"support-relay/internal/domain/reaper"
	"support-relay/internal/domain/responder"
	"support-relay/internal/domain/routing"
	"support-relay/internal/infrastructure/crontab"
	"support-relay/internal/infrastructure/database"
	"support-relay/internal/infrastructure/llmprovider"
	"support-relay/internal/infrastructure/lock"
	"support-relay/internal/infrastructure/notifier"
	"support-relay/internal/infrastructure/queue"
	"support-relay/internal/infrastructure/redisclient"
	conversationrepo "support-relay/internal/infrastructure/repository/conversation"
	"support-relay/internal/infrastructure/twilio"
	"support-relay/internal/realtime"
	"support-relay/internal/worker"
)

const lockPrefix = "support-relay:lock:"

// StoreSet builds the conversation store and the task queue on one database.
var StoreSet = wire.NewSet(
	NewDatabaseConfig,
	NewGormDB,
	NewConversationService,
	wire.Bind(new(conversation.Service), new(*conversation.DefaultService)),
	NewTaskQueue,
	wire.Bind(new(queue.Producer), new(*queue.PostgresQueue)),
	wire.Bind(new(queue.Consumer), new(*queue.PostgresQueue)),
)

// RoutingSet builds the routing engine and everything it calls out to.
var RoutingSet = wire.NewSet(
	NewRedisClient,
	realtime.NewHub,
	NewPublisher,
	NewLocker,
	NewSender,
	NewCompleter,
	NewResponder,
	wire.Bind(new(routing.Responder), new(*responder.Responder)),
	NewDeliveryService,
	wire.Bind(new(routing.Deliverer), new(*delivery.Service)),
	NewEngine,
)

// BackgroundSet builds the worker pool and the scheduled jobs.
var BackgroundSet = wire.NewSet(
	NewWorkerPool,
	NewReaper,
	NewCrontab,
	NewRedisBridge,
	NewBackground,
)

// NewDatabaseConfig maps service config to connection settings.
func NewDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

// NewGormDB connects and applies pending migrations.
func NewGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db, log); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return db, nil
}

// NewConversationService wires the store over the gorm repositories.
func NewConversationService(db *gorm.DB) *conversation.DefaultService {
	return conversation.NewService(
		conversationrepo.NewCustomerRepository(db),
		conversationrepo.NewPostgresRepository(db),
		conversationrepo.NewMessageRepository(db),
	)
}

// NewTaskQueue creates the durable inbound queue.
func NewTaskQueue(db *gorm.DB, log zerolog.Logger) *queue.PostgresQueue {
	return queue.NewPostgresQueue(db, queue.DefaultMaxAttempts, log)
}

// NewRedisClient connects to Redis when REDIS_URL is set and returns nil otherwise.
func NewRedisClient(ctx context.Context, cfg *config.Config) (redis.UniversalClient, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	return redisclient.New(ctx, cfg.RedisURL)
}

// NewPublisher picks how events reach the process hosting the realtime hub.
func NewPublisher(cfg *config.Config, hub *realtime.Hub, rdb redis.UniversalClient, log zerolog.Logger) notify.Publisher {
	switch cfg.NotifyMode {
	case config.NotifyModeHTTP:
		return notifier.NewHTTPPublisher(cfg.InternalAPIURL, cfg.InternalAPIToken, cfg.NotifyTimeout, log)
	case config.NotifyModeRedis:
		if rdb != nil {
			return notifier.NewRedisPublisher(rdb, cfg.NotifyChannel)
		}
		log.Warn().Msg("NOTIFY_MODE is redis but no redis client is available, publishing in-process")
	}
	return notifier.NewHubPublisher(hub, log)
}

// NewLocker serializes turns per customer, across processes when Redis is available.
func NewLocker(cfg *config.Config, rdb redis.UniversalClient, log zerolog.Logger) routing.Locker {
	if rdb != nil {
		return lock.NewRedisLocker(rdb, lockPrefix, cfg.TaskTimeout+cfg.ReplyBudget(), log)
	}
	return lock.NewKeyedMutex()
}

// NewSender returns the Twilio client, or a logging sender when Twilio is disabled.
func NewSender(cfg *config.Config, log zerolog.Logger) delivery.Sender {
	if !cfg.TwilioEnabled {
		log.Warn().Msg("twilio disabled, outbound messages are only logged")
		return delivery.NewLogSender(log)
	}
	return twilio.NewClient(twilio.Config{
		BaseURL:        cfg.TwilioBaseURL,
		AccountSID:     cfg.TwilioAccountSID,
		AuthToken:      cfg.TwilioAuthToken,
		WhatsAppNumber: cfg.TwilioWhatsAppNumber,
		Timeout:        cfg.DeliveryTimeout,
	}, log)
}

// NewCompleter creates the chat completion client.
func NewCompleter(cfg *config.Config, log zerolog.Logger) responder.Completer {
	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is empty, every AI reply will use the fallback text")
	}
	return llmprovider.NewClient(llmprovider.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: cfg.OpenAITemperature,
		Timeout:     cfg.AITimeout,
	}, log)
}

// NewResponder builds the assistant from the business profile.
func NewResponder(cfg *config.Config, completer responder.Completer, log zerolog.Logger) *responder.Responder {
	return responder.New(completer, responder.Config{
		EscalationKeywords: cfg.EscalationKeywords,
		EscalationReply:    cfg.EscalationReply,
		FallbackReply:      cfg.FallbackReply,
		SystemPrompt:       responder.BuildSystemPrompt(cfg.Business),
		Timeout:            cfg.AITimeout,
		Policy:             cfg.ProviderPolicy(),
	}, log)
}

// NewDeliveryService wraps the sender with timeouts and retries.
func NewDeliveryService(cfg *config.Config, sender delivery.Sender, log zerolog.Logger) *delivery.Service {
	return delivery.NewService(sender, cfg.ProviderPolicy(), cfg.DeliveryTimeout, log)
}

// NewEngine creates the routing engine.
func NewEngine(
	cfg *config.Config,
	store conversation.Service,
	resp routing.Responder,
	deliverer routing.Deliverer,
	publisher notify.Publisher,
	locker routing.Locker,
	log zerolog.Logger,
) *routing.Engine {
	return routing.NewEngine(store, resp, deliverer, publisher, log,
		routing.WithLocker(locker),
		routing.WithNotifyTimeout(cfg.NotifyTimeout),
		routing.WithReplyTimeout(cfg.ReplyBudget()),
	)
}

// NewWorkerPool creates the pool that drains the inbound queue.
func NewWorkerPool(cfg *config.Config, consumer queue.Consumer, engine *routing.Engine, log zerolog.Logger) *worker.Pool {
	return worker.NewPool(consumer, engine, worker.Config{
		WorkerCount:  cfg.WorkerCount,
		TaskTimeout:  cfg.TaskTimeout,
		PollInterval: cfg.WorkerPollInterval,
	}, log)
}

// NewReaper creates the inactivity reaper.
func NewReaper(cfg *config.Config, store conversation.Service, publisher notify.Publisher, log zerolog.Logger) *reaper.Reaper {
	return reaper.New(store, publisher, cfg.InactivityThreshold, log)
}

// NewCrontab schedules the reaper and the stale task requeue.
func NewCrontab(cfg *config.Config, r *reaper.Reaper, consumer queue.Consumer, log zerolog.Logger) *crontab.Crontab {
	var sweeper crontab.Sweeper
	if cfg.ReaperEnabled {
		sweeper = r
	}
	return crontab.NewCrontab(sweeper, consumer, crontab.Config{
		SweepSchedule: cfg.ReaperSchedule,
		JobTimeout:    cfg.ReaperRunTimeout,
		Visibility:    cfg.TaskVisibilityLimit,
	}, log)
}

// NewRedisBridge replays events published by other processes into the local hub.
// It returns nil unless notifications travel over Redis.
func NewRedisBridge(cfg *config.Config, rdb redis.UniversalClient, hub *realtime.Hub, log zerolog.Logger) *notifier.RedisBridge {
	if cfg.NotifyMode != config.NotifyModeRedis || rdb == nil {
		return nil
	}
	return notifier.NewRedisBridge(rdb, cfg.NotifyChannel, hub, log)
}

// ReadinessCheck pings the database and, when configured, Redis.
func ReadinessCheck(db *gorm.DB, rdb redis.UniversalClient) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := database.Ping(ctx, db); err != nil {
			return err
		}
		if rdb != nil {
			return rdb.Ping(ctx).Err()
		}
		return nil
	}
}
