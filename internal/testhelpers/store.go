package testhelpers

import (
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	domain "support-relay/internal/domain/conversation"
	repo "support-relay/internal/infrastructure/repository/conversation"
)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewStore wires a conversation service over a fresh SQLite database.
func NewStore(t *testing.T) (*domain.DefaultService, *Clock, *gorm.DB) {
	t.Helper()
	db := NewTestDB(t)
	clock := NewClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := domain.NewService(
		repo.NewCustomerRepository(db),
		repo.NewPostgresRepository(db),
		repo.NewMessageRepository(db),
	).WithClock(clock.Now)
	return svc, clock, db
}
