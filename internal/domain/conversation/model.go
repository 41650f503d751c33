package conversation

import (
	"fmt"
	"strings"
	"time"
)

// ===============================================
// Enumerations
// ===============================================

// Status is the routing mode of a conversation.
type Status string

const (
	StatusBot   Status = "bot"
	StatusHuman Status = "human"
	StatusEnded Status = "ended"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusBot, StatusHuman, StatusEnded:
		return true
	}
	return false
}

// IsActive reports whether the conversation still accepts traffic.
func (s Status) IsActive() bool {
	return s == StatusBot || s == StatusHuman
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts raw input into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown conversation status %q", raw)
	}
	return s, nil
}

// Sender identifies the author of a message.
type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderBot      Sender = "bot"
	SenderHuman    Sender = "human"
)

// IsValid reports whether s is one of the known senders.
func (s Sender) IsValid() bool {
	switch s {
	case SenderCustomer, SenderBot, SenderHuman:
		return true
	}
	return false
}

// ParseSender converts raw input into a Sender.
func ParseSender(raw string) (Sender, error) {
	s := Sender(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown message sender %q", raw)
	}
	return s, nil
}

// Channel is the transport a customer reached us through.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelWeb      Channel = "web"
)

// IsValid reports whether c is one of the known channels.
func (c Channel) IsValid() bool {
	return c == ChannelWhatsApp || c == ChannelWeb
}

// ParseChannel converts raw input into a Channel.
func ParseChannel(raw string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(raw)))
	if !c.IsValid() {
		return "", fmt.Errorf("unknown channel %q", raw)
	}
	return c, nil
}

// Intent annotates why a message was produced. Debug only.
type Intent string

const (
	IntentEscalation Intent = "escalation"
	IntentAIReply    Intent = "ai_reply"
	IntentFallback   Intent = "fallback"
	IntentAgent      Intent = "agent"
)

// ===============================================
// Entities
// ===============================================

// ChannelAddress identifies a customer on a channel, e.g. "whatsapp:+50212345678".
type ChannelAddress struct {
	Channel Channel
	Address string
}

func (a ChannelAddress) String() string {
	if strings.HasPrefix(a.Address, string(a.Channel)+":") {
		return a.Address
	}
	return fmt.Sprintf("%s:%s", a.Channel, a.Address)
}

// ParseWhatsAppAddress builds an address from the gateway's "From" value.
// The "whatsapp:" prefix is kept so replies go back through the same channel.
func ParseWhatsAppAddress(raw string) (ChannelAddress, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ChannelAddress{}, fmt.Errorf("sender address is empty")
	}
	if !strings.HasPrefix(raw, "whatsapp:") {
		raw = "whatsapp:" + raw
	}
	return ChannelAddress{Channel: ChannelWhatsApp, Address: raw}, nil
}

// Customer is a person who has contacted the business.
type Customer struct {
	ID          uint      `json:"id"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	SessionID   *string   `json:"session_id,omitempty"`
	Name        *string   `json:"name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Address returns the channel address the customer can be reached on.
func (c *Customer) Address() (ChannelAddress, bool) {
	if c.PhoneNumber != nil && *c.PhoneNumber != "" {
		return ChannelAddress{Channel: ChannelWhatsApp, Address: *c.PhoneNumber}, true
	}
	if c.SessionID != nil && *c.SessionID != "" {
		return ChannelAddress{Channel: ChannelWeb, Address: *c.SessionID}, true
	}
	return ChannelAddress{}, false
}

// Conversation is one support session with a customer.
type Conversation struct {
	ID             uint       `json:"id"`
	CustomerID     uint       `json:"customer_id"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	Customer       *Customer  `json:"customer,omitempty"`
	Messages       []*Message `json:"messages,omitempty"`
}

// Message is a single immutable entry in a conversation.
type Message struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"conversation_id"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	IntentDetected *Intent   `json:"intent_detected,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summary is a conversation row as shown in the agent dashboard list.
type Summary struct {
	Conversation
	CustomerPhone   *string    `json:"customer_phone"`
	LastMessage     *string    `json:"last_message"`
	LastMessageTime *time.Time `json:"last_message_time"`
	UnreadCount     int        `json:"unread_count"`
}

// Stats aggregates conversation and message counts.
type Stats struct {
	TotalConversations    int64            `json:"total_conversations"`
	TotalMessages         int64            `json:"total_messages"`
	ConversationsByStatus map[Status]int64 `json:"conversations_by_status"`
	MessagesBySender      map[Sender]int64 `json:"messages_by_sender"`
}
