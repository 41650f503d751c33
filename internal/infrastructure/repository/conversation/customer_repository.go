package conversation

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "support-relay/internal/domain/conversation"
	"support-relay/internal/infrastructure/database"
	"support-relay/internal/infrastructure/database/entities"
	"support-relay/internal/utils/platformerrors"
)

// CustomerRepository persists customers.
type CustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository constructs the customer repository.
func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func identityColumn(channel domain.Channel) (string, error) {
	switch channel {
	case domain.ChannelWhatsApp:
		return "phone_number", nil
	case domain.ChannelWeb:
		return "session_id", nil
	}
	return "", fmt.Errorf("unsupported channel %q", channel)
}

// FindByAddress looks the customer up by the identity column of the channel.
func (r *CustomerRepository) FindByAddress(ctx context.Context, addr domain.ChannelAddress) (*domain.Customer, error) {
	column, err := identityColumn(addr.Channel)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeValidation,
			err.Error(), nil, "customer-unsupported-channel")
	}

	var entity entities.Customer
	if err := r.db.WithContext(ctx).Where(column+" = ?", addr.Address).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("customer not found: %s", addr), nil, "customer-not-found")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
			"failed to find customer", err, "customer-find-error")
	}
	return entity.EtoD(), nil
}

// Create inserts a customer. A taken identity yields a Conflict error.
func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	entity := entities.NewSchemaCustomer(customer)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
				"customer identity already exists", err, "customer-duplicate")
		}
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase,
			"failed to create customer", err, "customer-create-error")
	}
	customer.ID = entity.ID
	customer.CreatedAt = entity.CreatedAt
	return nil
}
