package entities

import (
	"time"

	"support-relay/internal/domain/conversation"
)

// Customer represents the database schema for customers.
type Customer struct {
	ID          uint      `gorm:"primaryKey"`
	PhoneNumber *string   `gorm:"type:varchar(64);uniqueIndex"`
	SessionID   *string   `gorm:"type:varchar(128);uniqueIndex"`
	Name        *string   `gorm:"type:varchar(255)"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName specifies the table name for Customer.
func (Customer) TableName() string {
	return "customers"
}

// NewSchemaCustomer converts a domain customer to its row.
func NewSchemaCustomer(c *conversation.Customer) *Customer {
	return &Customer{
		ID:          c.ID,
		PhoneNumber: c.PhoneNumber,
		SessionID:   c.SessionID,
		Name:        c.Name,
		CreatedAt:   c.CreatedAt,
	}
}

// EtoD converts the row to the domain customer.
func (c *Customer) EtoD() *conversation.Customer {
	return &conversation.Customer{
		ID:          c.ID,
		PhoneNumber: c.PhoneNumber,
		SessionID:   c.SessionID,
		Name:        c.Name,
		CreatedAt:   c.CreatedAt,
	}
}
