package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"support-relay/internal/infrastructure/crontab"
	"support-relay/internal/infrastructure/notifier"
	"support-relay/internal/worker"
)

const shutdownWait = 10 * time.Second

// Background runs the worker pool, the scheduled jobs and the Redis bridge.
// Any of them may be nil.
type Background struct {
	pool   *worker.Pool
	cron   *crontab.Crontab
	bridge *notifier.RedisBridge
	log    zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBackground groups the long-running components.
func NewBackground(pool *worker.Pool, cron *crontab.Crontab, bridge *notifier.RedisBridge, log zerolog.Logger) *Background {
	return &Background{
		pool:   pool,
		cron:   cron,
		bridge: bridge,
		log:    log.With().Str("component", "background").Logger(),
	}
}

// WithoutWorkers drops the pool and the scheduled jobs and keeps only the bridge.
func (b *Background) WithoutWorkers() *Background {
	b.pool = nil
	b.cron = nil
	return b
}

// Start launches everything and returns immediately.
func (b *Background) Start(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(ctx)

	if b.bridge != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := b.bridge.Run(ctx, nil); err != nil {
				b.log.Error().Err(err).Msg("redis bridge stopped")
			}
		}()
	}

	if b.pool != nil {
		if err := b.pool.Start(ctx); err != nil {
			b.cancel()
			return err
		}
	}

	if b.cron != nil {
		if err := b.cron.Schedule(ctx); err != nil {
			b.cancel()
			return err
		}
	}
	return nil
}

// Stop shuts everything down and waits for in-flight work.
func (b *Background) Stop() {
	if b.cancel == nil {
		return
	}
	if b.cron != nil {
		b.cron.Shutdown()
	}
	if b.pool != nil {
		b.pool.Stop()
	}
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownWait):
		b.log.Warn().Msg("background shutdown timed out")
	}
}
