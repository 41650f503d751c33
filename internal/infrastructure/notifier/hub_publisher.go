// Package notifier carries real-time events from the routing engine to the hub,
// either in process, over the internal HTTP API, or through Redis pub/sub.
package notifier

import (
	"context"

	"github.com/rs/zerolog"

	"support-relay/internal/domain/notify"
	"support-relay/internal/realtime"
)

// HubPublisher publishes directly into an in-process hub.
type HubPublisher struct {
	hub *realtime.Hub
	log zerolog.Logger
}

// NewHubPublisher creates a publisher bound to hub.
func NewHubPublisher(hub *realtime.Hub, log zerolog.Logger) *HubPublisher {
	return &HubPublisher{hub: hub, log: log.With().Str("component", "hub-publisher").Logger()}
}

// Publish fans the event out to the conversation's observers.
func (p *HubPublisher) Publish(_ context.Context, event notify.Event) error {
	delivered := p.hub.Publish(event.ConversationID, event)
	p.log.Debug().
		Str("event", string(event.Type)).
		Uint("conversation_id", event.ConversationID).
		Int("delivered", delivered).
		Msg("event published")
	return nil
}

var _ notify.Publisher = (*HubPublisher)(nil)
