package routing

import (
	"context"
	"fmt"

	"support-relay/internal/domain/conversation"
	"support-relay/internal/domain/delivery"
	providerErrors "support-relay/internal/domain/errors"
	"support-relay/internal/domain/responder"
)

// InboundMessage is a normalized customer message taken off the queue.
type InboundMessage struct {
	From              conversation.ChannelAddress
	Body              string
	ProviderMessageID string
}

// Action describes what the engine did with a message.
type Action string

const (
	ActionAIReply       Action = "ai_reply"
	ActionFallback      Action = "fallback"
	ActionEscalated     Action = "escalated"
	ActionAwaitingAgent Action = "awaiting_agent"
	ActionAgentReply    Action = "agent_reply"
	// ActionSuperseded means an agent took over or the conversation ended while the
	// reply was being prepared, so no automated reply was stored or sent.
	ActionSuperseded Action = "superseded"
)

// Outcome summarizes one routing turn.
type Outcome struct {
	CustomerID          uint                  `json:"customer_id,omitempty"`
	ConversationID      uint                  `json:"conversation_id"`
	ConversationCreated bool                  `json:"conversation_created"`
	Status              conversation.Status   `json:"status"`
	Action              Action                `json:"action"`
	Inbound             *conversation.Message `json:"inbound,omitempty"`
	Outbound            *conversation.Message `json:"outbound,omitempty"`
	Delivery            *delivery.Result      `json:"delivery,omitempty"`
}

// Delivered reports whether an outbound message reached the gateway.
func (o *Outcome) Delivered() bool {
	return o != nil && o.Delivery != nil && o.Delivery.Success
}

// DeliveryError is returned when the reply was stored but could not be delivered.
type DeliveryError struct {
	ConversationID uint
	MessageID      uint
	Err            *providerErrors.ProviderError
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver message %d of conversation %d: %v", e.MessageID, e.ConversationID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Locker serializes work per customer address.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Responder produces replies in bot mode.
type Responder interface {
	WantsHuman(text string) bool
	EscalationReply() responder.Reply
	Generate(ctx context.Context, text string) responder.Reply
}

// Deliverer sends outbound text to a customer.
type Deliverer interface {
	Deliver(ctx context.Context, to conversation.ChannelAddress, body string) (*delivery.Result, error)
}
