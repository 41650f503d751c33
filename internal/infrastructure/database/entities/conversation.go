package entities

import (
	"time"

	"support-relay/internal/domain/conversation"
)

// Conversation represents the database schema for conversations.
// The one-active-conversation-per-customer rule is a partial unique index created by the migrations.
type Conversation struct {
	ID             uint                `gorm:"primaryKey"`
	CustomerID     uint                `gorm:"not null;index"`
	Status         conversation.Status `gorm:"type:varchar(16);not null;default:'bot';index:idx_conversations_status_activity"`
	CreatedAt      time.Time           `gorm:"not null"`
	UpdatedAt      time.Time           `gorm:"not null;index"`
	LastActivityAt time.Time           `gorm:"not null;index:idx_conversations_status_activity"`

	Customer *Customer `gorm:"foreignKey:CustomerID"`
}

// TableName specifies the table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// NewSchemaConversation converts a domain conversation to its row.
func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	return &Conversation{
		ID:             c.ID,
		CustomerID:     c.CustomerID,
		Status:         c.Status,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		LastActivityAt: c.LastActivityAt,
	}
}

// EtoD converts the row to the domain conversation.
func (c *Conversation) EtoD() *conversation.Conversation {
	conv := &conversation.Conversation{
		ID:             c.ID,
		CustomerID:     c.CustomerID,
		Status:         c.Status,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		LastActivityAt: c.LastActivityAt,
	}
	if c.Customer != nil {
		conv.Customer = c.Customer.EtoD()
	}
	return conv
}
