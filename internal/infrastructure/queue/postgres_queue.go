package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"support-relay/internal/domain/conversation"
	"support-relay/internal/infrastructure/database/entities"
)

// DefaultMaxAttempts bounds how often a released task is handed out again.
const DefaultMaxAttempts = 3

const selectRunnableSQL = `
SELECT t.id FROM inbound_tasks t
WHERE t.status = ?
  AND NOT EXISTS (
      SELECT 1 FROM inbound_tasks e
      WHERE e.sender_address = t.sender_address
        AND e.id <> t.id
        AND (e.status = ?
             OR (e.status = ? AND (e.queued_at < t.queued_at OR (e.queued_at = t.queued_at AND e.id < t.id))))
  )
ORDER BY t.queued_at ASC, t.id ASC
LIMIT 1%s`

// PostgresQueue implements TaskQueue on the inbound_tasks table.
type PostgresQueue struct {
	db          *gorm.DB
	log         zerolog.Logger
	maxAttempts int
	now         func() time.Time
}

// NewPostgresQueue creates a new PostgreSQL-backed task queue.
func NewPostgresQueue(db *gorm.DB, maxAttempts int, log zerolog.Logger) *PostgresQueue {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &PostgresQueue{
		db:          db,
		log:         log.With().Str("component", "postgres-queue").Logger(),
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue inserts a pending task.
func (q *PostgresQueue) Enqueue(ctx context.Context, task *Task) error {
	if task.PublicID == "" {
		task.PublicID = "task_" + uuid.NewString()
	}
	if task.QueuedAt.IsZero() {
		task.QueuedAt = q.now()
	}

	entity := &entities.InboundTask{
		PublicID:      task.PublicID,
		Channel:       string(task.Address.Channel),
		SenderAddress: task.Address.Address,
		Body:          task.Body,
		Status:        entities.TaskStatusPending,
		QueuedAt:      task.QueuedAt,
		UpdatedAt:     task.QueuedAt,
	}
	if task.ProviderMessageID != "" {
		sid := task.ProviderMessageID
		entity.ProviderMessageID = &sid
	}
	if len(task.Metadata) > 0 {
		raw, err := json.Marshal(task.Metadata)
		if err != nil {
			return fmt.Errorf("marshal task metadata: %w", err)
		}
		entity.Metadata = datatypes.JSON(raw)
	}

	if err := q.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	task.ID = entity.ID
	return nil
}

// Dequeue claims the next runnable task using FOR UPDATE SKIP LOCKED.
func (q *PostgresQueue) Dequeue(ctx context.Context) (*Task, error) {
	locking := " FOR UPDATE SKIP LOCKED"
	if q.db.Dialector.Name() == "sqlite" {
		locking = ""
	}

	var claimed *entities.InboundTask
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Raw(fmt.Sprintf(selectRunnableSQL, locking),
			entities.TaskStatusPending,
			entities.TaskStatusInProgress,
			entities.TaskStatusPending).
			Scan(&ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		now := q.now()
		if err := tx.Model(&entities.InboundTask{}).
			Where("id = ?", ids[0]).
			Updates(map[string]any{
				"status":     entities.TaskStatusInProgress,
				"attempts":   gorm.Expr("attempts + 1"),
				"started_at": now,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		var entity entities.InboundTask
		if err := tx.First(&entity, ids[0]).Error; err != nil {
			return err
		}
		claimed = &entity
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dequeue task: %w", err)
	}
	if claimed == nil {
		return nil, nil
	}
	return toTask(claimed), nil
}

// MarkCompleted updates the task status to completed.
func (q *PostgresQueue) MarkCompleted(ctx context.Context, publicID string) error {
	now := q.now()
	result := q.db.WithContext(ctx).
		Model(&entities.InboundTask{}).
		Where("public_id = ?", publicID).
		Updates(map[string]any{
			"status":       entities.TaskStatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return fmt.Errorf("mark completed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task not found: %s", publicID)
	}
	return nil
}

// MarkFailed updates the task status to failed and keeps the error for inspection.
func (q *PostgresQueue) MarkFailed(ctx context.Context, publicID string, code string, taskErr error) error {
	now := q.now()
	message := ""
	if taskErr != nil {
		message = taskErr.Error()
	}
	result := q.db.WithContext(ctx).
		Model(&entities.InboundTask{}).
		Where("public_id = ?", publicID).
		Updates(map[string]any{
			"status":        entities.TaskStatusFailed,
			"error_code":    code,
			"error_message": message,
			"completed_at":  now,
			"updated_at":    now,
		})
	if result.Error != nil {
		return fmt.Errorf("mark failed: %w", result.Error)
	}
	return nil
}

// Release returns the task to pending, or fails it when it used up its attempts.
func (q *PostgresQueue) Release(ctx context.Context, publicID string, code string, taskErr error) error {
	var entity entities.InboundTask
	if err := q.db.WithContext(ctx).Where("public_id = ?", publicID).First(&entity).Error; err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if entity.Attempts >= q.maxAttempts {
		q.log.Warn().Str("task_id", publicID).Int("attempts", entity.Attempts).Msg("task exhausted its attempts")
		return q.MarkFailed(ctx, publicID, code, taskErr)
	}

	message := ""
	if taskErr != nil {
		message = taskErr.Error()
	}
	if err := q.db.WithContext(ctx).
		Model(&entities.InboundTask{}).
		Where("public_id = ? AND status = ?", publicID, entities.TaskStatusInProgress).
		Updates(map[string]any{
			"status":        entities.TaskStatusPending,
			"error_code":    code,
			"error_message": message,
			"started_at":    nil,
			"updated_at":    q.now(),
		}).Error; err != nil {
		return fmt.Errorf("release task: %w", err)
	}
	return nil
}

// RequeueStale returns abandoned in-progress tasks to the queue.
func (q *PostgresQueue) RequeueStale(ctx context.Context, visibility time.Duration) (int64, error) {
	now := q.now()
	result := q.db.WithContext(ctx).
		Model(&entities.InboundTask{}).
		Where("status = ? AND started_at < ?", entities.TaskStatusInProgress, now.Add(-visibility)).
		Updates(map[string]any{
			"status":     entities.TaskStatusPending,
			"started_at": nil,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("requeue stale tasks: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		q.log.Warn().Int64("count", result.RowsAffected).Msg("requeued stale tasks")
	}
	return result.RowsAffected, nil
}

// GetQueueDepth returns the number of pending tasks.
func (q *PostgresQueue) GetQueueDepth(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&entities.InboundTask{}).
		Where("status = ?", entities.TaskStatusPending).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("get queue depth: %w", err)
	}
	return count, nil
}

func toTask(entity *entities.InboundTask) *Task {
	task := &Task{
		ID:       entity.ID,
		PublicID: entity.PublicID,
		Address: conversation.ChannelAddress{
			Channel: conversation.Channel(entity.Channel),
			Address: entity.SenderAddress,
		},
		Body:     entity.Body,
		Attempts: entity.Attempts,
		QueuedAt: entity.QueuedAt,
	}
	if entity.ProviderMessageID != nil {
		task.ProviderMessageID = *entity.ProviderMessageID
	}
	if len(entity.Metadata) > 0 {
		_ = json.Unmarshal(entity.Metadata, &task.Metadata)
	}
	return task
}
