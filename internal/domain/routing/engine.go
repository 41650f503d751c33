// Package routing decides, for every customer message, whether the assistant or a
// human agent answers, and keeps the store, the observers and the customer in step.
package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"support-relay/internal/domain/conversation"
	"support-relay/internal/domain/delivery"
	providerErrors "support-relay/internal/domain/errors"
	"support-relay/internal/domain/notify"
	"support-relay/internal/domain/responder"
	"support-relay/internal/infrastructure/metrics"
	"support-relay/internal/infrastructure/observability"
	"support-relay/internal/utils/platformerrors"
)

// Engine orchestrates inbound turns and agent actions.
type Engine struct {
	store         conversation.Service
	responder     Responder
	deliverer     Deliverer
	publisher     notify.Publisher
	locker        Locker
	notifyTimeout time.Duration
	replyTimeout  time.Duration
	log           zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker replaces the per-customer locker.
func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithNotifyTimeout bounds each publish call.
func WithNotifyTimeout(d time.Duration) Option {
	return func(e *Engine) { e.notifyTimeout = d }
}

// WithReplyTimeout bounds storing and delivering one outbound reply. The reply runs
// detached from the caller's deadline so a turn that used its time on the completion
// service still answers the customer.
func WithReplyTimeout(d time.Duration) Option {
	return func(e *Engine) { e.replyTimeout = d }
}

// NewEngine creates an engine. Without WithLocker turns are not serialized.
func NewEngine(store conversation.Service, resp Responder, deliverer Deliverer, publisher notify.Publisher, log zerolog.Logger, opts ...Option) *Engine {
	if publisher == nil {
		publisher = notify.Noop
	}
	e := &Engine{
		store:         store,
		responder:     resp,
		deliverer:     deliverer,
		publisher:     publisher,
		notifyTimeout: 3 * time.Second,
		replyTimeout:  time.Minute,
		log:           log.With().Str("component", "routing").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleInbound runs one customer turn. The customer message is committed before any
// reply logic; a *DeliveryError means everything was stored but the customer was not reached.
func (e *Engine) HandleInbound(ctx context.Context, msg InboundMessage) (*Outcome, error) {
	start := time.Now()
	ctx, span := observability.StartInboundSpan(ctx, msg.From.String())
	defer span.End()

	if strings.TrimSpace(msg.Body) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"inbound message body is empty", nil, "inbound-empty-body")
	}

	unlock, err := e.lock(ctx, msg.From.String())
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	log := e.log.With().Str("from", observability.MaskAddress(msg.From.String())).Str("provider_message_id", msg.ProviderMessageID).Logger()

	customer, err := e.store.FindOrCreateCustomer(ctx, msg.From)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	conv, created, inbound, err := e.appendInbound(ctx, customer.ID, msg.Body, log)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	e.publish(ctx, notify.NewMessageEvent(inbound))

	outcome := &Outcome{
		CustomerID:          customer.ID,
		ConversationID:      conv.ID,
		ConversationCreated: created,
		Status:              conv.Status,
		Inbound:             inbound,
	}

	if conv.Status == conversation.StatusHuman {
		outcome.Action = ActionAwaitingAgent
		metrics.RecordInbound(string(outcome.Action), time.Since(start))
		log.Debug().Uint("conversation_id", conv.ID).Msg("conversation is with an agent, no automated reply")
		return outcome, nil
	}

	var (
		reply  responder.Reply
		sender conversation.Sender
		owner  conversation.Status
	)
	if e.responder.WantsHuman(msg.Body) {
		updated, changed, err := e.store.TransitionStatus(ctx, conv.ID, conversation.StatusHuman)
		if errors.Is(err, conversation.ErrInvalidTransition) {
			return e.superseded(outcome, start, log), nil
		}
		if err != nil {
			observability.RecordError(span, err)
			return outcome, err
		}
		outcome.Status = updated.Status
		outcome.Action = ActionEscalated
		if changed {
			observability.AddStatusTransition(span, string(conversation.StatusBot), string(conversation.StatusHuman))
			metrics.RecordStatusTransition(string(conversation.StatusHuman), "keyword")
			e.publish(ctx, notify.StatusChangedEvent(conv.ID, updated.Status))
			log.Info().Uint("conversation_id", conv.ID).Msg("customer asked for a human, conversation escalated")
		}
		reply = e.responder.EscalationReply()
		sender = conversation.SenderHuman
		owner = conversation.StatusHuman
	} else {
		reply = e.responder.Generate(ctx, msg.Body)
		sender = conversation.SenderBot
		owner = conversation.StatusBot
		outcome.Action = ActionAIReply
		if reply.Intent == conversation.IntentFallback {
			outcome.Action = ActionFallback
		}
	}

	outbound, result, err := e.reply(ctx, conv.ID, msg.From, sender, reply.Content, reply.Intent, owner)
	if errors.Is(err, conversation.ErrStatusChanged) {
		return e.superseded(outcome, start, log), nil
	}
	outcome.Outbound = outbound
	outcome.Delivery = result
	metrics.RecordInbound(string(outcome.Action), time.Since(start))
	if err != nil {
		observability.RecordError(span, err)
		log.Error().Err(err).Uint("conversation_id", conv.ID).Str("action", string(outcome.Action)).Msg("reply not delivered")
		return outcome, err
	}
	return outcome, nil
}

// SendAgentMessage stores an agent's message and delivers it to the customer.
// Ended conversations reject new messages.
func (e *Engine) SendAgentMessage(ctx context.Context, conversationID uint, content string) (*Outcome, error) {
	ctx, span := observability.StartConversationSpan(ctx, "agent_message", conversationID)
	defer span.End()

	if strings.TrimSpace(content) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"message content is empty", nil, "agent-message-empty")
	}

	conv, err := e.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == conversation.StatusEnded {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("conversation %d has ended", conversationID), nil, "conversation-ended")
	}
	if conv.Customer == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			fmt.Sprintf("conversation %d has no customer loaded", conversationID), nil, "")
	}
	to, ok := conv.Customer.Address()
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("customer %d has no reachable address", conv.CustomerID), nil, "customer-unreachable")
	}

	unlock, err := e.lock(ctx, to.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	outcome := &Outcome{
		CustomerID:     conv.CustomerID,
		ConversationID: conv.ID,
		Status:         conv.Status,
		Action:         ActionAgentReply,
	}
	outbound, result, err := e.reply(ctx, conv.ID, to, conversation.SenderHuman, content, conversation.IntentAgent,
		conversation.StatusBot, conversation.StatusHuman)
	outcome.Outbound = outbound
	outcome.Delivery = result
	if err != nil {
		observability.RecordError(span, err)
		e.log.Error().Err(err).Uint("conversation_id", conv.ID).Msg("agent message not delivered")
		return outcome, err
	}
	return outcome, nil
}

// TakeControl hands the conversation to a human agent.
func (e *Engine) TakeControl(ctx context.Context, conversationID uint) (*conversation.Conversation, error) {
	return e.transition(ctx, conversationID, conversation.StatusHuman, "agent")
}

// Close ends the conversation. Closing an ended conversation is a no-op.
func (e *Engine) Close(ctx context.Context, conversationID uint) (*conversation.Conversation, error) {
	return e.transition(ctx, conversationID, conversation.StatusEnded, "agent")
}

func (e *Engine) transition(ctx context.Context, conversationID uint, target conversation.Status, source string) (*conversation.Conversation, error) {
	ctx, span := observability.StartConversationSpan(ctx, "transition", conversationID)
	defer span.End()

	conv, changed, err := e.store.TransitionStatus(ctx, conversationID, target)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if changed {
		metrics.RecordStatusTransition(string(target), source)
		e.publish(ctx, notify.StatusChangedEvent(conversationID, conv.Status))
		e.log.Info().Uint("conversation_id", conversationID).Str("status", string(conv.Status)).Str("source", source).Msg("conversation status changed")
	}
	return conv, nil
}

// appendInbound stores the customer message on the active conversation. A conversation
// closed between resolving and appending is replaced by a fresh one.
func (e *Engine) appendInbound(ctx context.Context, customerID uint, body string, log zerolog.Logger) (*conversation.Conversation, bool, *conversation.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		conv, created, err := e.store.ResolveActiveConversation(ctx, customerID)
		if err != nil {
			return nil, false, nil, err
		}
		if created {
			log.Info().Uint("conversation_id", conv.ID).Msg("conversation opened")
		}
		inbound, err := e.store.AppendMessage(ctx, conv.ID, conversation.SenderCustomer, body, nil,
			conversation.StatusBot, conversation.StatusHuman)
		if err == nil {
			return conv, created, inbound, nil
		}
		if !errors.Is(err, conversation.ErrStatusChanged) {
			return nil, false, nil, err
		}
		lastErr = err
		log.Info().Uint("conversation_id", conv.ID).Msg("conversation ended before the message was stored, reopening")
	}
	return nil, false, nil, lastErr
}

// superseded finishes a turn whose reply lost the conversation to an agent or a close.
// The customer message stays stored; nothing is sent.
func (e *Engine) superseded(outcome *Outcome, start time.Time, log zerolog.Logger) *Outcome {
	outcome.Action = ActionSuperseded
	metrics.RecordInbound(string(outcome.Action), time.Since(start))
	log.Info().Uint("conversation_id", outcome.ConversationID).Msg("conversation changed hands during the turn, reply dropped")
	return outcome
}

// reply persists an outbound message, announces it and delivers it. The append only
// happens while the conversation is in one of owners; ErrStatusChanged means nothing was stored or sent.
func (e *Engine) reply(ctx context.Context, conversationID uint, to conversation.ChannelAddress, sender conversation.Sender, content string, intent conversation.Intent, owners ...conversation.Status) (*conversation.Message, *delivery.Result, error) {
	if e.replyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), e.replyTimeout)
		defer cancel()
	}

	outbound, err := e.store.AppendMessage(ctx, conversationID, sender, content, &intent, owners...)
	if err != nil {
		return nil, nil, err
	}
	e.publish(ctx, notify.NewMessageEvent(outbound))

	result, err := e.deliverer.Deliver(ctx, to, content)
	if err != nil {
		pe := providerErrors.Classify("gateway", err)
		metrics.RecordDelivery(string(pe.Category))
		if result == nil {
			result = &delivery.Result{Error: pe}
		}
		return outbound, result, &DeliveryError{ConversationID: conversationID, MessageID: outbound.ID, Err: pe}
	}
	metrics.RecordDelivery("success")
	return outbound, result, nil
}

func (e *Engine) publish(ctx context.Context, event notify.Event) {
	notify.PublishBestEffort(ctx, e.publisher, e.notifyTimeout, event, e.log)
}

func (e *Engine) lock(ctx context.Context, key string) (func(), error) {
	if e.locker == nil {
		return func() {}, nil
	}
	unlock, err := e.locker.Lock(ctx, key)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnavailable,
			fmt.Sprintf("could not lock %s", key), err, "customer-lock")
	}
	return unlock, nil
}

// IsDeliveryError reports whether err is a delivery failure after a successful store.
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}
