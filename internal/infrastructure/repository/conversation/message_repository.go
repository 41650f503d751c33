package conversation

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	domain "support-relay/internal/domain/conversation"
	"support-relay/internal/infrastructure/database/entities"
	"support-relay/internal/utils/platformerrors"
)

// MessageRepository persists the append-only message log.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs the message repository.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append inserts the message and bumps the conversation timestamps in one transaction.
// The bump is conditional on allowed statuses so a close or takeover racing the append wins.
func (r *MessageRepository) Append(ctx context.Context, message *domain.Message, allowed ...domain.Status) error {
	entity := entities.NewSchemaMessage(message)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&entities.Conversation{}).Where("id = ?", message.ConversationID)
		if len(allowed) > 0 {
			query = query.Where("status IN ?", statusValues(allowed))
		}
		result := query.Updates(map[string]any{
			"updated_at":       message.CreatedAt,
			"last_activity_at": message.CreatedAt,
		})
		if result.Error != nil {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
				"failed to bump conversation activity", result.Error, "message-touch-error")
		}
		if result.RowsAffected == 0 {
			return r.missingConversation(ctx, tx, message.ConversationID, allowed)
		}
		if err := tx.Create(entity).Error; err != nil {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
				"failed to create message", err, "message-create-error")
		}
		return nil
	})
	if err != nil {
		return err
	}

	message.ID = entity.ID
	return nil
}

func (r *MessageRepository) missingConversation(ctx context.Context, tx *gorm.DB, conversationID uint, allowed []domain.Status) error {
	if len(allowed) > 0 {
		var current entities.Conversation
		err := tx.Select("id", "status").Where("id = ?", conversationID).Limit(1).Find(&current).Error
		if err != nil {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
				"failed to load conversation status", err, "message-status-error")
		}
		if current.ID != 0 {
			return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
				fmt.Sprintf("conversation %d is %s", conversationID, current.Status), domain.ErrStatusChanged, "message-status-changed",
				map[string]any{"conversation_id": conversationID, "status": current.Status})
		}
	}
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
		fmt.Sprintf("conversation not found: %d", conversationID), nil, "message-conversation-not-found")
}

func statusValues(statuses []domain.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// ListByConversationID returns messages in (created_at, id) order.
func (r *MessageRepository) ListByConversationID(ctx context.Context, conversationID uint) ([]*domain.Message, error) {
	var rows []entities.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
			"failed to list messages", err, "message-list-error")
	}

	out := make([]*domain.Message, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

// CountBySender groups message counts by sender.
func (r *MessageRepository) CountBySender(ctx context.Context) (map[domain.Sender]int64, error) {
	var rows []struct {
		Sender domain.Sender
		Total  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Select("sender, COUNT(*) AS total").
		Group("sender").
		Scan(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
			"failed to count messages by sender", err, "message-stats-error")
	}

	out := make(map[domain.Sender]int64, len(rows))
	for _, row := range rows {
		out[row.Sender] = row.Total
	}
	return out, nil
}
