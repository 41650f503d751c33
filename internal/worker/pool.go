package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"support-relay/internal/infrastructure/metrics"
	"support-relay/internal/infrastructure/queue"
)

// Pool manages multiple background workers.
type Pool struct {
	workers      []*Worker
	queue        queue.Consumer
	handler      InboundHandler
	workerCount  int
	taskTimeout  time.Duration
	pollInterval time.Duration
	log          zerolog.Logger
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

// Config contains worker pool configuration.
type Config struct {
	WorkerCount  int
	TaskTimeout  time.Duration
	PollInterval time.Duration
}

// NewPool creates a new worker pool.
func NewPool(
	queue queue.Consumer,
	handler InboundHandler,
	cfg Config,
	log zerolog.Logger,
) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Pool{
		queue:        queue,
		handler:      handler,
		workerCount:  cfg.WorkerCount,
		taskTimeout:  cfg.TaskTimeout,
		pollInterval: cfg.PollInterval,
		log:          log.With().Str("component", "worker-pool").Logger(),
		stopChan:     make(chan struct{}),
	}
}

// Start initializes and starts all workers.
func (p *Pool) Start(ctx context.Context) error {
	p.log.Info().Int("worker_count", p.workerCount).Msg("starting worker pool")

	p.workers = make([]*Worker, p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		worker := NewWorker(
			i+1,
			p.queue,
			p.handler,
			p.taskTimeout,
			p.pollInterval,
			p.log,
		)
		p.workers[i] = worker

		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Start(ctx)
		}(worker)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.reportQueueDepth(ctx)
	}()

	p.log.Info().Msg("worker pool started")

	return nil
}

// Stop gracefully shuts down all workers.
func (p *Pool) Stop() {
	p.log.Info().Msg("stopping worker pool")

	p.stopOnce.Do(func() {
		close(p.stopChan)
		for _, worker := range p.workers {
			worker.Stop()
		}
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info().Msg("all workers stopped gracefully")
	case <-time.After(30 * time.Second):
		p.log.Warn().Msg("worker pool shutdown timed out")
	}
}

// GetQueueDepth returns the current queue depth.
func (p *Pool) GetQueueDepth(ctx context.Context) (int64, error) {
	return p.queue.GetQueueDepth(ctx)
}

func (p *Pool) reportQueueDepth(ctx context.Context) {
	ticker := time.NewTicker(5 * p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			depth, err := p.queue.GetQueueDepth(ctx)
			if err != nil {
				p.log.Warn().Err(err).Msg("failed to read queue depth")
				continue
			}
			metrics.SetQueueDepth(depth)
		}
	}
}
