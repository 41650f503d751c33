package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"support-relay/internal/infrastructure/metrics"
)

// PublishBestEffort publishes event within timeout, detached from ctx cancellation.
// Failures are counted and logged, never returned.
func PublishBestEffort(ctx context.Context, p Publisher, timeout time.Duration, event Event, log zerolog.Logger) bool {
	if p == nil {
		return false
	}
	pubCtx := context.WithoutCancel(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(pubCtx, timeout)
		defer cancel()
	}
	if err := p.Publish(pubCtx, event); err != nil {
		metrics.RecordNotificationFailure(string(event.Type))
		log.Warn().Err(err).Str("event", string(event.Type)).Uint("conversation_id", event.ConversationID).Msg("notification dropped")
		return false
	}
	return true
}
