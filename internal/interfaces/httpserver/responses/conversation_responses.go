package responses

import (
	"time"

	"support-relay/internal/domain/conversation"
	"support-relay/internal/domain/delivery"
)

// ConversationSummaryResponse is one row of the dashboard list.
type ConversationSummaryResponse struct {
	ID              uint       `json:"id" example:"12"`
	CustomerID      uint       `json:"customer_id" example:"4"`
	CustomerPhone   *string    `json:"customer_phone" example:"+50255551234"`
	Status          string     `json:"status" example:"bot"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastActivityAt  time.Time  `json:"last_activity_at"`
	LastMessage     *string    `json:"last_message"`
	LastMessageTime *time.Time `json:"last_message_time"`
	UnreadCount     int        `json:"unread_count"`
}

// ConversationListResponse wraps a page of conversations.
type ConversationListResponse struct {
	Data   []ConversationSummaryResponse `json:"data"`
	Total  int64                         `json:"total"`
	Limit  int                           `json:"limit"`
	Offset int                           `json:"offset"`
}

// CustomerResponse describes the conversation's customer.
type CustomerResponse struct {
	ID          uint      `json:"id"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	SessionID   *string   `json:"session_id,omitempty"`
	Name        *string   `json:"name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// MessageResponse is a stored conversation message.
type MessageResponse struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"conversation_id"`
	Sender         string    `json:"sender" example:"customer"`
	Content        string    `json:"content"`
	IntentDetected *string   `json:"intent_detected,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationResponse is a conversation with its customer and full history.
type ConversationResponse struct {
	ID             uint              `json:"id"`
	CustomerID     uint              `json:"customer_id"`
	Status         string            `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	Customer       *CustomerResponse `json:"customer,omitempty"`
	Messages       []MessageResponse `json:"messages"`
}

// MessageListResponse wraps a conversation's messages.
type MessageListResponse struct {
	Data []MessageResponse `json:"data"`
}

// StatusChangeResponse is returned by take-control and close.
type StatusChangeResponse struct {
	ConversationID uint   `json:"conversation_id"`
	Status         string `json:"status" example:"human"`
}

// DeliveryResponse reports what happened at the gateway.
type DeliveryResponse struct {
	Success           bool   `json:"success"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Attempts          int    `json:"attempts"`
	ErrorCategory     string `json:"error_category,omitempty"`
	Retryable         bool   `json:"retryable,omitempty"`
}

// AgentMessageResponse is returned after an agent sends a message.
// The message is stored even when delivery failed.
type AgentMessageResponse struct {
	Message  MessageResponse   `json:"message"`
	Delivery *DeliveryResponse `json:"delivery,omitempty"`
}

// StatsResponse aggregates store counters.
type StatsResponse struct {
	TotalConversations    int64            `json:"total_conversations"`
	TotalMessages         int64            `json:"total_messages"`
	ConversationsByStatus map[string]int64 `json:"conversations_by_status"`
	MessagesBySender      map[string]int64 `json:"messages_by_sender"`
}

// MapSummary converts a store summary row.
func MapSummary(s *conversation.Summary) ConversationSummaryResponse {
	return ConversationSummaryResponse{
		ID:              s.ID,
		CustomerID:      s.CustomerID,
		CustomerPhone:   s.CustomerPhone,
		Status:          string(s.Status),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
		LastActivityAt:  s.LastActivityAt,
		LastMessage:     s.LastMessage,
		LastMessageTime: s.LastMessageTime,
		UnreadCount:     s.UnreadCount,
	}
}

// MapSummaries converts a page of summary rows.
func MapSummaries(rows []*conversation.Summary) []ConversationSummaryResponse {
	out := make([]ConversationSummaryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, MapSummary(row))
	}
	return out
}

// MapMessage converts a stored message.
func MapMessage(m *conversation.Message) MessageResponse {
	resp := MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         string(m.Sender),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	if m.IntentDetected != nil {
		intent := string(*m.IntentDetected)
		resp.IntentDetected = &intent
	}
	return resp
}

// MapMessages converts messages in their stored order.
func MapMessages(messages []*conversation.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, MapMessage(m))
	}
	return out
}

// MapConversation converts a conversation with its history.
func MapConversation(c *conversation.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:             c.ID,
		CustomerID:     c.CustomerID,
		Status:         string(c.Status),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		LastActivityAt: c.LastActivityAt,
		Messages:       MapMessages(c.Messages),
	}
	if c.Customer != nil {
		resp.Customer = &CustomerResponse{
			ID:          c.Customer.ID,
			PhoneNumber: c.Customer.PhoneNumber,
			SessionID:   c.Customer.SessionID,
			Name:        c.Customer.Name,
			CreatedAt:   c.Customer.CreatedAt,
		}
	}
	return resp
}

// MapDelivery converts a delivery result; nil when nothing was attempted.
func MapDelivery(r *delivery.Result) *DeliveryResponse {
	if r == nil {
		return nil
	}
	resp := &DeliveryResponse{
		Success:           r.Success,
		ProviderMessageID: r.ProviderMessageID,
		Attempts:          r.Attempts,
	}
	if r.Error != nil {
		resp.ErrorCategory = string(r.Error.Category)
		resp.Retryable = r.Error.Retryable
	}
	return resp
}

// MapStats converts store counters.
func MapStats(s *conversation.Stats) StatsResponse {
	resp := StatsResponse{
		TotalConversations:    s.TotalConversations,
		TotalMessages:         s.TotalMessages,
		ConversationsByStatus: make(map[string]int64, len(s.ConversationsByStatus)),
		MessagesBySender:      make(map[string]int64, len(s.MessagesBySender)),
	}
	for status, n := range s.ConversationsByStatus {
		resp.ConversationsByStatus[string(status)] = n
	}
	for sender, n := range s.MessagesBySender {
		resp.MessagesBySender[string(sender)] = n
	}
	return resp
}
