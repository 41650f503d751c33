// Package crontab schedules the inactivity sweep and queue housekeeping.
package crontab

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"support-relay/internal/domain/reaper"
	"support-relay/internal/utils/platformerrors"
)

const (
	DefaultSweepSchedule   = "* * * * *"
	DefaultRequeueSchedule = "*/5 * * * *"
	DefaultJobTimeout      = 45 * time.Second
)

// Sweeper closes idle conversations.
type Sweeper interface {
	Sweep(ctx context.Context) (reaper.Result, error)
}

// StaleRequeuer returns abandoned tasks to the queue.
type StaleRequeuer interface {
	RequeueStale(ctx context.Context, visibility time.Duration) (int64, error)
}

// Config holds the job schedules.
type Config struct {
	SweepSchedule   string
	RequeueSchedule string
	JobTimeout      time.Duration
	Visibility      time.Duration
}

type Crontab struct {
	ctab     *crontab.Crontab
	sweeper  Sweeper
	requeuer StaleRequeuer
	cfg      Config
	log      zerolog.Logger

	sweeping  atomic.Bool
	requeuing atomic.Bool
}

// NewCrontab creates the scheduler. requeuer may be nil when this process does not own the queue.
func NewCrontab(sweeper Sweeper, requeuer StaleRequeuer, cfg Config, log zerolog.Logger) *Crontab {
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = DefaultSweepSchedule
	}
	if cfg.RequeueSchedule == "" {
		cfg.RequeueSchedule = DefaultRequeueSchedule
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	if cfg.Visibility <= 0 {
		cfg.Visibility = 5 * time.Minute
	}
	return &Crontab{
		ctab:     crontab.New(),
		sweeper:  sweeper,
		requeuer: requeuer,
		cfg:      cfg,
		log:      log.With().Str("component", "crontab").Logger(),
	}
}

// Run schedules the jobs and blocks until ctx is done.
func (c *Crontab) Run(ctx context.Context) error {
	if err := c.Schedule(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

// Schedule registers the jobs without blocking.
func (c *Crontab) Schedule(ctx context.Context) error {
	if c.sweeper != nil {
		if err := c.ctab.AddJob(c.cfg.SweepSchedule, func() { c.RunSweep(ctx) }); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add inactivity sweep job")
		}
		c.log.Info().Str("schedule", c.cfg.SweepSchedule).Msg("inactivity sweep scheduled")
	}
	if c.requeuer != nil {
		if err := c.ctab.AddJob(c.cfg.RequeueSchedule, func() { c.RunRequeue(ctx) }); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add stale task job")
		}
		c.log.Info().Str("schedule", c.cfg.RequeueSchedule).Msg("stale task requeue scheduled")
	}
	return nil
}

// Shutdown stops the scheduler.
func (c *Crontab) Shutdown() {
	c.ctab.Shutdown()
}

// RunSweep runs one bounded sweep unless the previous one is still going.
func (c *Crontab) RunSweep(ctx context.Context) {
	if !c.sweeping.CompareAndSwap(false, true) {
		c.log.Warn().Msg("previous sweep still running, skipping")
		return
	}
	defer c.sweeping.Store(false)

	jobCtx, cancel := context.WithTimeout(ctx, c.cfg.JobTimeout)
	defer cancel()
	if _, err := c.sweeper.Sweep(jobCtx); err != nil {
		c.log.Error().Err(err).Msg("inactivity sweep failed")
	}
}

// RunRequeue returns tasks stuck in progress to the queue.
func (c *Crontab) RunRequeue(ctx context.Context) {
	if !c.requeuing.CompareAndSwap(false, true) {
		return
	}
	defer c.requeuing.Store(false)

	jobCtx, cancel := context.WithTimeout(ctx, c.cfg.JobTimeout)
	defer cancel()
	if _, err := c.requeuer.RequeueStale(jobCtx, c.cfg.Visibility); err != nil {
		c.log.Error().Err(err).Msg("requeue stale tasks failed")
	}
}
