package entities

import (
	"time"

	"support-relay/internal/domain/conversation"
)

// Message represents the database schema for the append-only message log.
type Message struct {
	ID             uint                `gorm:"primaryKey"`
	ConversationID uint                `gorm:"not null;index:idx_messages_conversation_order,priority:1"`
	Sender         conversation.Sender `gorm:"type:varchar(16);not null"`
	Content        string              `gorm:"type:text;not null"`
	IntentDetected *string             `gorm:"type:varchar(32)"`
	CreatedAt      time.Time           `gorm:"not null;index:idx_messages_conversation_order,priority:2"`

	Conversation *Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// NewSchemaMessage converts a domain message to its row.
func NewSchemaMessage(m *conversation.Message) *Message {
	row := &Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         m.Sender,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	if m.IntentDetected != nil {
		intent := string(*m.IntentDetected)
		row.IntentDetected = &intent
	}
	return row
}

// EtoD converts the row to the domain message.
func (m *Message) EtoD() *conversation.Message {
	msg := &conversation.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         m.Sender,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	if m.IntentDetected != nil {
		intent := conversation.Intent(*m.IntentDetected)
		msg.IntentDetected = &intent
	}
	return msg
}
