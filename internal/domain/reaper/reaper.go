// Package reaper closes conversations that have been idle for too long.
package reaper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"support-relay/internal/domain/conversation"
	"support-relay/internal/domain/notify"
	"support-relay/internal/infrastructure/metrics"
	"support-relay/internal/infrastructure/observability"
)

// DefaultThreshold is the idle time after which a conversation is closed.
const DefaultThreshold = 5 * time.Minute

// Result counts what one sweep did.
type Result struct {
	Closed int `json:"closed"`
	Failed int `json:"failed"`
}

// Reaper ends stale bot and human conversations.
type Reaper struct {
	store         conversation.Service
	publisher     notify.Publisher
	threshold     time.Duration
	notifyTimeout time.Duration
	now           func() time.Time
	log           zerolog.Logger
}

// New creates a reaper. A non-positive threshold falls back to DefaultThreshold.
func New(store conversation.Service, publisher notify.Publisher, threshold time.Duration, log zerolog.Logger) *Reaper {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if publisher == nil {
		publisher = notify.Noop
	}
	return &Reaper{
		store:         store,
		publisher:     publisher,
		threshold:     threshold,
		notifyTimeout: 3 * time.Second,
		now:           func() time.Time { return time.Now().UTC() },
		log:           log.With().Str("component", "reaper").Logger(),
	}
}

// WithClock overrides the time source.
func (r *Reaper) WithClock(now func() time.Time) *Reaper {
	r.now = now
	return r
}

// Sweep closes every conversation idle since before now minus the threshold.
// Each conversation is closed independently; the error is only for the listing.
func (r *Reaper) Sweep(ctx context.Context) (Result, error) {
	ctx, span := observability.StartSweepSpan(ctx)
	defer span.End()

	cutoff := r.now().Add(-r.threshold)
	stale, err := r.store.ListStaleConversations(ctx, cutoff)
	if err != nil {
		observability.RecordError(span, err)
		r.log.Error().Err(err).Msg("list stale conversations")
		return Result{}, err
	}

	var result Result
	for _, conv := range stale {
		if ctx.Err() != nil {
			r.log.Warn().Int("remaining", len(stale)-result.Closed-result.Failed).Msg("sweep interrupted")
			break
		}
		updated, changed, err := r.store.TransitionStatus(ctx, conv.ID, conversation.StatusEnded)
		if err != nil {
			result.Failed++
			r.log.Error().Err(err).Uint("conversation_id", conv.ID).Msg("close stale conversation")
			continue
		}
		if !changed {
			continue
		}
		result.Closed++
		metrics.RecordStatusTransition(string(conversation.StatusEnded), "inactivity")
		notify.PublishBestEffort(ctx, r.publisher, r.notifyTimeout, notify.StatusChangedEvent(conv.ID, updated.Status), r.log)
		r.log.Info().
			Uint("conversation_id", conv.ID).
			Str("from", string(conv.Status)).
			Time("last_activity_at", conv.LastActivityAt).
			Msg("conversation closed for inactivity")
	}

	metrics.RecordSweep(result.Closed, result.Failed)
	if result.Closed > 0 || result.Failed > 0 {
		r.log.Info().Int("closed", result.Closed).Int("failed", result.Failed).Msg("sweep finished")
	}
	return result, nil
}
