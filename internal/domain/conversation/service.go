package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"support-relay/internal/utils/platformerrors"
)

// Service defines the conversation store operations used by the routing engine,
// the agent API and the inactivity reaper.
type Service interface {
	// FindOrCreateCustomer resolves the customer owning addr, creating it on first contact.
	FindOrCreateCustomer(ctx context.Context, addr ChannelAddress) (*Customer, error)

	// FindActiveConversation returns the customer's non-ended conversation or nil.
	FindActiveConversation(ctx context.Context, customerID uint) (*Conversation, error)

	// CreateConversation opens a new conversation in bot mode.
	CreateConversation(ctx context.Context, customerID uint) (*Conversation, error)

	// ResolveActiveConversation returns the active conversation, creating one when absent.
	ResolveActiveConversation(ctx context.Context, customerID uint) (*Conversation, bool, error)

	// AppendMessage records a message and bumps the conversation activity. When allowed
	// is given the append only happens while the conversation is in one of those statuses;
	// otherwise it fails with a Conflict wrapping ErrStatusChanged.
	AppendMessage(ctx context.Context, conversationID uint, sender Sender, content string, intent *Intent, allowed ...Status) (*Message, error)

	// TransitionStatus moves the conversation to target. changed is false when already there.
	TransitionStatus(ctx context.Context, conversationID uint, target Status) (*Conversation, bool, error)

	// GetConversation returns the conversation with its messages.
	GetConversation(ctx context.Context, conversationID uint) (*Conversation, error)

	ListConversations(ctx context.Context, filter *Filter) ([]*Summary, int64, error)
	ListMessages(ctx context.Context, conversationID uint) ([]*Message, error)
	ListStaleConversations(ctx context.Context, cutoff time.Time) ([]*Conversation, error)
	Stats(ctx context.Context) (*Stats, error)
}

const maxTransitionAttempts = 3

// DefaultService implements the Service interface.
type DefaultService struct {
	customers     CustomerRepository
	conversations Repository
	messages      MessageRepository
	now           func() time.Time
}

// NewService creates a new conversation service.
func NewService(customers CustomerRepository, conversations Repository, messages MessageRepository) *DefaultService {
	return &DefaultService{
		customers:     customers,
		conversations: conversations,
		messages:      messages,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *DefaultService) WithClock(now func() time.Time) *DefaultService {
	s.now = now
	return s
}

// FindOrCreateCustomer resolves the customer owning addr, creating it on first contact.
func (s *DefaultService) FindOrCreateCustomer(ctx context.Context, addr ChannelAddress) (*Customer, error) {
	if !addr.Channel.IsValid() || strings.TrimSpace(addr.Address) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("invalid channel address %q", addr.String()), nil, "")
	}

	existing, err := s.customers.FindByAddress(ctx, addr)
	if err == nil {
		return existing, nil
	}
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "find customer")
	}

	customer := &Customer{CreatedAt: s.now()}
	address := addr.Address
	switch addr.Channel {
	case ChannelWhatsApp:
		customer.PhoneNumber = &address
	case ChannelWeb:
		customer.SessionID = &address
	}

	if err := s.customers.Create(ctx, customer); err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			// lost the race against a concurrent first contact
			return s.customers.FindByAddress(ctx, addr)
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create customer")
	}
	return customer, nil
}

// FindActiveConversation returns the customer's non-ended conversation or nil.
func (s *DefaultService) FindActiveConversation(ctx context.Context, customerID uint) (*Conversation, error) {
	conv, err := s.conversations.FindActiveByCustomer(ctx, customerID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "find active conversation")
	}
	return conv, nil
}

// CreateConversation opens a new conversation in bot mode. When the customer already
// has an active conversation the existing one is returned.
func (s *DefaultService) CreateConversation(ctx context.Context, customerID uint) (*Conversation, error) {
	conv, _, err := s.createConversation(ctx, customerID)
	return conv, err
}

func (s *DefaultService) createConversation(ctx context.Context, customerID uint) (*Conversation, bool, error) {
	now := s.now()
	conv := &Conversation{
		CustomerID:     customerID,
		Status:         StatusBot,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastActivityAt: now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			active, findErr := s.FindActiveConversation(ctx, customerID)
			if findErr != nil {
				return nil, false, findErr
			}
			if active != nil {
				return active, false, nil
			}
		}
		return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create conversation")
	}
	return conv, true, nil
}

// ResolveActiveConversation returns the active conversation, creating one when absent.
// created reports whether a new conversation was opened.
func (s *DefaultService) ResolveActiveConversation(ctx context.Context, customerID uint) (*Conversation, bool, error) {
	active, err := s.FindActiveConversation(ctx, customerID)
	if err != nil {
		return nil, false, err
	}
	if active != nil {
		return active, false, nil
	}
	return s.createConversation(ctx, customerID)
}

// AppendMessage records a message and bumps the conversation activity.
func (s *DefaultService) AppendMessage(ctx context.Context, conversationID uint, sender Sender, content string, intent *Intent, allowed ...Status) (*Message, error) {
	if !sender.IsValid() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("invalid sender %q", sender), nil, "")
	}
	if strings.TrimSpace(content) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"message content is empty", nil, "")
	}

	msg := &Message{
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		IntentDetected: intent,
		CreatedAt:      s.now(),
	}
	if err := s.messages.Append(ctx, msg, allowed...); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "append message")
	}
	return msg, nil
}

// TransitionStatus moves the conversation to target following ValidTransitions.
// Moving to the current status is a no-op. A concurrent change between read and
// write is re-evaluated against the fresh status.
func (s *DefaultService) TransitionStatus(ctx context.Context, conversationID uint, target Status) (*Conversation, bool, error) {
	if !target.IsValid() {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("invalid target status %q", target), nil, "")
	}

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		conv, err := s.conversations.FindByID(ctx, conversationID)
		if err != nil {
			return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load conversation")
		}
		if conv.Status == target {
			return conv, false, nil
		}
		if _, err := conv.Status.TransitionTo(target); err != nil {
			return conv, false, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				fmt.Sprintf("cannot move conversation %d from %s to %s", conversationID, conv.Status, target), err, "",
				map[string]any{"conversation_id": conversationID, "from": conv.Status, "to": target})
		}

		now := s.now()
		updated, err := s.conversations.UpdateStatus(ctx, conversationID, conv.Status, target, now)
		if err != nil {
			return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "update conversation status")
		}
		if updated {
			conv.Status = target
			conv.UpdatedAt = now
			return conv, true, nil
		}
	}

	return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
		fmt.Sprintf("conversation %d changed concurrently", conversationID), nil, "")
}

// GetConversation returns the conversation with its messages.
func (s *DefaultService) GetConversation(ctx context.Context, conversationID uint) (*Conversation, error) {
	conv, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "get conversation")
	}
	messages, err := s.messages.ListByConversationID(ctx, conversationID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list messages")
	}
	conv.Messages = messages
	return conv, nil
}

// ListConversations returns dashboard rows, newest activity first.
func (s *DefaultService) ListConversations(ctx context.Context, filter *Filter) ([]*Summary, int64, error) {
	if filter == nil {
		filter = NewFilter()
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("invalid status filter %q", *filter.Status), nil, "")
	}
	filter.Normalize()
	rows, total, err := s.conversations.List(ctx, filter)
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list conversations")
	}
	return rows, total, nil
}

// ListMessages returns the conversation's messages in (created_at, id) order.
func (s *DefaultService) ListMessages(ctx context.Context, conversationID uint) ([]*Message, error) {
	if _, err := s.conversations.FindByID(ctx, conversationID); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load conversation")
	}
	messages, err := s.messages.ListByConversationID(ctx, conversationID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list messages")
	}
	return messages, nil
}

// ListStaleConversations returns active conversations idle since before cutoff.
func (s *DefaultService) ListStaleConversations(ctx context.Context, cutoff time.Time) ([]*Conversation, error) {
	stale, err := s.conversations.ListStale(ctx, cutoff)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list stale conversations")
	}
	return stale, nil
}

// Stats aggregates counts for the dashboard.
func (s *DefaultService) Stats(ctx context.Context) (*Stats, error) {
	byStatus, err := s.conversations.CountByStatus(ctx)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "count conversations")
	}
	bySender, err := s.messages.CountBySender(ctx)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "count messages")
	}

	stats := &Stats{
		ConversationsByStatus: map[Status]int64{StatusBot: 0, StatusHuman: 0, StatusEnded: 0},
		MessagesBySender:      map[Sender]int64{SenderCustomer: 0, SenderBot: 0, SenderHuman: 0},
	}
	for status, n := range byStatus {
		stats.ConversationsByStatus[status] = n
		stats.TotalConversations += n
	}
	for sender, n := range bySender {
		stats.MessagesBySender[sender] = n
		stats.TotalMessages += n
	}
	return stats, nil
}
