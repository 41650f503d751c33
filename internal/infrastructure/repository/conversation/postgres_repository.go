package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "support-relay/internal/domain/conversation"
	"support-relay/internal/infrastructure/database"
	"support-relay/internal/infrastructure/database/entities"
	"support-relay/internal/utils/platformerrors"
)

// PostgresRepository persists conversations with GORM.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository constructs the conversation repository.
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a conversation. A second active conversation for the customer yields a Conflict error.
func (r *PostgresRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	entity := entities.NewSchemaConversation(conversation)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
				fmt.Sprintf("customer %d already has an active conversation", conversation.CustomerID), err, "conversation-active-exists")
		}
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
			"failed to create conversation", err, "conversation-create-error")
	}
	conversation.ID = entity.ID
	return nil
}

// FindByID retrieves a conversation with its customer.
func (r *PostgresRepository) FindByID(ctx context.Context, id uint) (*domain.Conversation, error) {
	var entity entities.Conversation
	if err := r.db.WithContext(ctx).Preload("Customer").First(&entity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("conversation not found: %d", id), nil, "conversation-not-found")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
			"failed to find conversation", err, "conversation-find-error")
	}
	return entity.EtoD(), nil
}

// FindActiveByCustomer returns the newest non-ended conversation, or nil when there is none.
func (r *PostgresRepository) FindActiveByCustomer(ctx context.Context, customerID uint) (*domain.Conversation, error) {
	var rows []entities.Conversation
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status <> ?", customerID, domain.StatusEnded).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
			"failed to find active conversation", err, "conversation-find-active-error")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].EtoD(), nil
}

// UpdateStatus performs a conditional status change and reports whether the row moved.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uint, from, to domain.Status, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
			"failed to update conversation status", result.Error, "conversation-status-error")
	}
	return result.RowsAffected == 1, nil
}

// List returns dashboard rows ordered by most recent update.
func (r *PostgresRepository) List(ctx context.Context, filter *domain.Filter) ([]*domain.Summary, int64, error) {
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&entities.Conversation{})
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
			"failed to count conversations", err, "conversation-count-error")
	}

	var rows []entities.Conversation
	if err := scoped().
		Preload("Customer").
		Order("updated_at DESC, id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
			"failed to list conversations", err, "conversation-list-error")
	}

	ids := make([]uint, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].ID)
	}
	lastMessages, err := r.lastMessages(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]*domain.Summary, 0, len(rows))
	for i := range rows {
		summary := &domain.Summary{Conversation: *rows[i].EtoD()}
		if rows[i].Customer != nil {
			summary.CustomerPhone = rows[i].Customer.PhoneNumber
		}
		if last, ok := lastMessages[rows[i].ID]; ok {
			content := last.Content
			createdAt := last.CreatedAt
			summary.LastMessage = &content
			summary.LastMessageTime = &createdAt
		}
		summaries = append(summaries, summary)
	}
	return summaries, total, nil
}

func (r *PostgresRepository) lastMessages(ctx context.Context, conversationIDs []uint) (map[uint]entities.Message, error) {
	out := make(map[uint]entities.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}

	latest := r.db.Model(&entities.Message{}).
		Select("MAX(id)").
		Where("conversation_id IN ?", conversationIDs).
		Group("conversation_id")

	var messages []entities.Message
	if err := r.db.WithContext(ctx).Where("id IN (?)", latest).Find(&messages).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
			"failed to load last messages", err, "conversation-last-message-error")
	}
	for _, m := range messages {
		out[m.ConversationID] = m
	}
	return out, nil
}

// ListStale returns bot or human conversations whose last activity is before cutoff.
func (r *PostgresRepository) ListStale(ctx context.Context, cutoff time.Time) ([]*domain.Conversation, error) {
	var rows []entities.Conversation
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []domain.Status{domain.StatusBot, domain.StatusHuman}).
		Where("last_activity_at < ?", cutoff).
		Order("last_activity_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
			"failed to list stale conversations", err, "conversation-stale-error")
	}

	out := make([]*domain.Conversation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

// CountByStatus groups conversation counts by status.
func (r *PostgresRepository) CountByStatus(ctx context.Context) (map[domain.Status]int64, error) {
	var rows []struct {
		Status domain.Status
		Total  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
			"failed to count conversations by status", err, "conversation-stats-error")
	}

	out := make(map[domain.Status]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}
