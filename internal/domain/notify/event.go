// Package notify defines the real-time events emitted when conversations change.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"support-relay/internal/domain/conversation"
)

// EventType identifies the event category pushed to observers.
type EventType string

const (
	EventNewMessage    EventType = "new_message"
	EventStatusChanged EventType = "status_changed"
)

// Event is the frame delivered to observers of a conversation.
type Event struct {
	Type           EventType       `json:"event"`
	ConversationID uint            `json:"conversation_id"`
	Data           json.RawMessage `json:"data"`
}

// StatusPayload is the data of a status_changed event.
type StatusPayload struct {
	ConversationID uint                `json:"conversation_id"`
	Status         conversation.Status `json:"status"`
}

// Publisher delivers events to whoever observes a conversation.
// Implementations are best effort; callers log and ignore errors.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// NewMessageEvent builds the event announcing a persisted message.
func NewMessageEvent(message *conversation.Message) Event {
	data, _ := json.Marshal(message)
	return Event{
		Type:           EventNewMessage,
		ConversationID: message.ConversationID,
		Data:           data,
	}
}

// StatusChangedEvent builds the event announcing a new conversation status.
func StatusChangedEvent(conversationID uint, status conversation.Status) Event {
	data, _ := json.Marshal(StatusPayload{ConversationID: conversationID, Status: status})
	return Event{
		Type:           EventStatusChanged,
		ConversationID: conversationID,
		Data:           data,
	}
}

// DecodeMessage extracts the message carried by a new_message event.
func (e Event) DecodeMessage() (*conversation.Message, error) {
	if e.Type != EventNewMessage {
		return nil, fmt.Errorf("event %s carries no message", e.Type)
	}
	var msg conversation.Message
	if err := json.Unmarshal(e.Data, &msg); err != nil {
		return nil, fmt.Errorf("decode message payload: %w", err)
	}
	return &msg, nil
}

// DecodeStatus extracts the status carried by a status_changed event.
func (e Event) DecodeStatus() (conversation.Status, error) {
	if e.Type != EventStatusChanged {
		return "", fmt.Errorf("event %s carries no status", e.Type)
	}
	var payload StatusPayload
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return "", fmt.Errorf("decode status payload: %w", err)
	}
	if !payload.Status.IsValid() {
		return "", fmt.Errorf("invalid status %q", payload.Status)
	}
	return payload.Status, nil
}

// Noop discards every event.
var Noop Publisher = PublisherFunc(func(context.Context, Event) error { return nil })
