package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	providerErrors "support-relay/internal/domain/errors"
	"support-relay/internal/domain/routing"
	"support-relay/internal/infrastructure/metrics"
	"support-relay/internal/infrastructure/observability"
	"support-relay/internal/infrastructure/queue"
	"support-relay/internal/utils/platformerrors"
)

// InboundHandler routes one customer message.
type InboundHandler interface {
	HandleInbound(ctx context.Context, msg routing.InboundMessage) (*routing.Outcome, error)
}

// Task outcomes recorded in metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeReleased  = "released"
)

// Worker processes inbound tasks from the queue.
type Worker struct {
	id           int
	queue        queue.Consumer
	handler      InboundHandler
	taskTimeout  time.Duration
	pollInterval time.Duration
	log          zerolog.Logger
	stopChan     chan struct{}
}

// NewWorker creates a new background worker.
func NewWorker(
	id int,
	queue queue.Consumer,
	handler InboundHandler,
	taskTimeout time.Duration,
	pollInterval time.Duration,
	log zerolog.Logger,
) *Worker {
	return &Worker{
		id:           id,
		queue:        queue,
		handler:      handler,
		taskTimeout:  taskTimeout,
		pollInterval: pollInterval,
		log:          log.With().Int("worker_id", id).Str("component", "worker").Logger(),
		stopChan:     make(chan struct{}),
	}
}

// Start begins processing tasks from the queue.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info().Msg("worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker stopped by context")
			return
		case <-w.stopChan:
			w.log.Info().Msg("worker stopped")
			return
		case <-ticker.C:
			// drain the queue before waiting for the next tick
			for w.ProcessNext(ctx) {
				select {
				case <-ctx.Done():
					return
				case <-w.stopChan:
					return
				default:
				}
			}
		}
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	close(w.stopChan)
}

// ProcessNext handles one task. It returns false when the queue was empty or unreadable.
func (w *Worker) ProcessNext(ctx context.Context) bool {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to dequeue task")
		return false
	}
	if task == nil {
		return false
	}

	log := w.log.With().
		Str("task_id", task.PublicID).
		Str("from", observability.MaskAddress(task.Address.String())).
		Int("attempt", task.Attempts).
		Logger()
	log.Info().Msg("processing inbound task")

	taskCtx := ctx
	if w.taskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, w.taskTimeout)
		defer cancel()
	}
	taskCtx = platformerrors.WithRequestID(taskCtx, task.PublicID)

	outcome, err := w.handler.HandleInbound(taskCtx, routing.InboundMessage{
		From:              task.Address,
		Body:              task.Body,
		ProviderMessageID: task.ProviderMessageID,
	})
	w.settle(ctx, log, task, outcome, err)
	return true
}

// settle records the task result. Any failure after the customer message was stored
// is final; re-running the task would append that message again.
func (w *Worker) settle(ctx context.Context, log zerolog.Logger, task *queue.Task, outcome *routing.Outcome, err error) {
	if err == nil {
		if markErr := w.queue.MarkCompleted(ctx, task.PublicID); markErr != nil {
			log.Error().Err(markErr).Msg("failed to mark task completed")
		}
		metrics.RecordTask(OutcomeCompleted)
		event := log.Info()
		if outcome != nil {
			event = event.Uint("conversation_id", outcome.ConversationID).Str("action", string(outcome.Action))
		}
		event.Msg("task completed")
		return
	}

	code, final := classify(err)
	if !final && outcome != nil && outcome.Inbound != nil {
		final = true
		log.Warn().Uint("conversation_id", outcome.ConversationID).Str("code", code).Msg("customer message already stored, not retrying")
	}
	if final {
		if markErr := w.queue.MarkFailed(ctx, task.PublicID, code, err); markErr != nil {
			log.Error().Err(markErr).Msg("failed to mark task failed")
		}
		metrics.RecordTask(OutcomeFailed)
		log.Error().Err(err).Str("code", code).Msg("task failed")
		return
	}

	if relErr := w.queue.Release(ctx, task.PublicID, code, err); relErr != nil {
		log.Error().Err(relErr).Msg("failed to release task")
	}
	metrics.RecordTask(OutcomeReleased)
	log.Warn().Err(err).Str("code", code).Msg("task released for retry")
}

// classify maps a routing error to an error code and whether retrying the task is pointless.
func classify(err error) (string, bool) {
	if routing.IsDeliveryError(err) {
		return "delivery_" + string(providerErrors.CategoryOf(err)), true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout", false
	}
	switch platformerrors.TypeOf(err) {
	case platformerrors.ErrorTypeValidation:
		return "validation", true
	case platformerrors.ErrorTypeNotFound:
		return "not_found", true
	case platformerrors.ErrorTypeConflict:
		return "conflict", false
	case platformerrors.ErrorTypeUnavailable:
		return "unavailable", false
	case platformerrors.ErrorTypeDatabase:
		return "store_error", false
	default:
		return "internal", false
	}
}
