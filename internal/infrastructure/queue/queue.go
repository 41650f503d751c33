package queue

import (
	"context"
	"time"

	"support-relay/internal/domain/conversation"
)

// Task is one inbound customer message waiting to be routed.
type Task struct {
	ID                uint
	PublicID          string
	Address           conversation.ChannelAddress
	Body              string
	ProviderMessageID string
	Attempts          int
	Metadata          map[string]string
	QueuedAt          time.Time
}

// Producer accepts inbound messages from the webhook.
type Producer interface {
	// Enqueue persists the task; it must be durable before the webhook answers.
	Enqueue(ctx context.Context, task *Task) error
}

// Consumer hands tasks to workers with at-least-once semantics.
type Consumer interface {
	// Dequeue claims the oldest runnable task, or returns nil when there is none.
	// A task is not runnable while an earlier task from the same sender is pending or in progress.
	Dequeue(ctx context.Context) (*Task, error)

	// MarkCompleted finishes the task.
	MarkCompleted(ctx context.Context, publicID string) error

	// MarkFailed records a terminal failure with a machine readable code.
	MarkFailed(ctx context.Context, publicID string, code string, taskErr error) error

	// Release puts the task back for another attempt, or fails it once attempts run out.
	Release(ctx context.Context, publicID string, code string, taskErr error) error

	// RequeueStale returns tasks stuck in progress for longer than visibility to the queue.
	RequeueStale(ctx context.Context, visibility time.Duration) (int64, error)

	// GetQueueDepth returns the number of pending tasks.
	GetQueueDepth(ctx context.Context) (int64, error)
}

// TaskQueue is both ends of the inbound queue.
type TaskQueue interface {
	Producer
	Consumer
}
