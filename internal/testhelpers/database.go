// Package testhelpers provides shared fixtures for package tests.
package testhelpers

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"support-relay/internal/infrastructure/database/entities"
)

var dbCounter atomic.Int64

// NewTestDB opens an isolated in-memory SQLite database with the relay schema,
// including the partial unique index that allows one active conversation per customer.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:relaytest_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)&_time_format=sqlite", dbCounter.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&entities.Customer{},
		&entities.Conversation{},
		&entities.Message{},
		&entities.InboundTask{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS uq_conversations_active_customer ON conversations (customer_id) WHERE status <> 'ended'").Error; err != nil {
		t.Fatalf("partial index: %v", err)
	}
	return db
}
