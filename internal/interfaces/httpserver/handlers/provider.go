package handlers

import (
	"github.com/rs/zerolog"

	"support-relay/internal/domain/conversation"
	"support-relay/internal/domain/notify"
	"support-relay/internal/infrastructure/queue"
	"support-relay/internal/realtime"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Webhook      *WebhookHandler
	Conversation *ConversationHandler
	Stats        *StatsHandler
	Internal     *InternalHandler
	Realtime     *RealtimeHandler
}

// NewProvider constructs the handler provider with domain services.
// local publishes straight into hub and backs the internal notify endpoints.
func NewProvider(
	producer queue.Producer,
	store conversation.Service,
	agents AgentService,
	hub *realtime.Hub,
	local notify.Publisher,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Webhook:      NewWebhookHandler(producer, log),
		Conversation: NewConversationHandler(store, agents, log),
		Stats:        NewStatsHandler(store),
		Internal:     NewInternalHandler(local, log),
		Realtime:     NewRealtimeHandler(hub, log),
	}
}
