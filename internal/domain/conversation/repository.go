package conversation

import (
	"context"
	"time"
)

// CustomerRepository persists customers.
type CustomerRepository interface {
	// FindByAddress returns a NotFound platform error when no customer owns the address.
	FindByAddress(ctx context.Context, addr ChannelAddress) (*Customer, error)
	// Create returns a Conflict platform error when the identity is already taken.
	Create(ctx context.Context, customer *Customer) error
}

// Repository persists conversations.
type Repository interface {
	// Create returns a Conflict platform error when the customer already has an active conversation.
	Create(ctx context.Context, conversation *Conversation) error
	FindByID(ctx context.Context, id uint) (*Conversation, error)
	// FindActiveByCustomer returns nil, nil when the customer has no active conversation.
	FindActiveByCustomer(ctx context.Context, customerID uint) (*Conversation, error)
	// UpdateStatus moves id from one status to another only if it is still in from.
	UpdateStatus(ctx context.Context, id uint, from, to Status, at time.Time) (bool, error)
	List(ctx context.Context, filter *Filter) ([]*Summary, int64, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]*Conversation, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}

// MessageRepository persists the append-only message log.
type MessageRepository interface {
	// Append inserts the message and bumps the conversation activity timestamps atomically.
	// With allowed statuses it fails with ErrStatusChanged unless the conversation is in one of them.
	Append(ctx context.Context, message *Message, allowed ...Status) error
	ListByConversationID(ctx context.Context, conversationID uint) ([]*Message, error)
	CountBySender(ctx context.Context) (map[Sender]int64, error)
}
