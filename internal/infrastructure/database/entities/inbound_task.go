package entities

import (
	"time"

	"gorm.io/datatypes"
)

// Inbound task states.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// InboundTask is a durable queue row holding one inbound customer message.
type InboundTask struct {
	ID                uint           `gorm:"primaryKey"`
	PublicID          string         `gorm:"type:varchar(64);uniqueIndex;not null"`
	Channel           string         `gorm:"type:varchar(16);not null"`
	SenderAddress     string         `gorm:"type:varchar(128);not null;index:idx_inbound_tasks_sender_status"`
	Body              string         `gorm:"type:text;not null"`
	ProviderMessageID *string        `gorm:"type:varchar(64)"`
	Status            string         `gorm:"type:varchar(16);not null;default:'pending';index:idx_inbound_tasks_status_queued;index:idx_inbound_tasks_sender_status"`
	Attempts          int            `gorm:"not null;default:0"`
	ErrorCode         *string        `gorm:"type:varchar(64)"`
	ErrorMessage      *string        `gorm:"type:text"`
	Metadata          datatypes.JSON `gorm:"type:jsonb"`
	QueuedAt          time.Time      `gorm:"not null;index:idx_inbound_tasks_status_queued"`
	StartedAt         *time.Time
	CompletedAt       *time.Time
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName specifies the table name for InboundTask.
func (InboundTask) TableName() string {
	return "inbound_tasks"
}
