package requests

import (
	"encoding/json"

	"support-relay/internal/domain/conversation"
)

// TwilioWebhookRequest is the form posted by the messaging gateway.
type TwilioWebhookRequest struct {
	From       string `form:"From"`
	Body       string `form:"Body"`
	MessageSid string `form:"MessageSid"`
}

// ListConversationsQuery holds list filters and pagination.
type ListConversationsQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=bot human ended"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

// ConversationURI binds the :id path parameter.
type ConversationURI struct {
	ID uint `uri:"id" binding:"required,min=1"`
}

// SendMessageRequest is an agent's outbound message.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// NotifyMessageRequest announces a stored message to the hub.
type NotifyMessageRequest struct {
	ConversationID uint            `json:"conversation_id" binding:"required"`
	Message        json.RawMessage `json:"message" binding:"required"`
}

// NotifyStatusRequest announces a status change to the hub.
type NotifyStatusRequest struct {
	ConversationID uint                `json:"conversation_id" binding:"required"`
	Status         conversation.Status `json:"status" binding:"required,oneof=bot human ended"`
}
