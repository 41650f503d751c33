package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"support-relay/internal/domain/conversation"
	providerErrors "support-relay/internal/domain/errors"
	"support-relay/internal/domain/routing"
	"support-relay/internal/infrastructure/database/entities"
	"support-relay/internal/infrastructure/queue"
	"support-relay/internal/testhelpers"
	"support-relay/internal/utils/platformerrors"
	"support-relay/internal/worker"
)

type MockHandler struct {
	mu                sync.Mutex
	seen              []routing.InboundMessage
	HandleInboundFunc func(ctx context.Context, msg routing.InboundMessage) (*routing.Outcome, error)
}

func (m *MockHandler) HandleInbound(ctx context.Context, msg routing.InboundMessage) (*routing.Outcome, error) {
	m.mu.Lock()
	m.seen = append(m.seen, msg)
	m.mu.Unlock()
	if m.HandleInboundFunc != nil {
		return m.HandleInboundFunc(ctx, msg)
	}
	return &routing.Outcome{ConversationID: 1, Action: routing.ActionAIReply}, nil
}

func (m *MockHandler) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

func setup(t *testing.T) (*gorm.DB, *queue.PostgresQueue) {
	t.Helper()
	db := testhelpers.NewTestDB(t)
	return db, queue.NewPostgresQueue(db, 2, zerolog.Nop())
}

func enqueue(t *testing.T, q *queue.PostgresQueue, body string) *queue.Task {
	t.Helper()
	task := &queue.Task{
		Address:           conversation.ChannelAddress{Channel: conversation.ChannelWhatsApp, Address: "whatsapp:+50212345678"},
		Body:              body,
		ProviderMessageID: "SM" + body,
	}
	require.NoError(t, q.Enqueue(context.Background(), task))
	return task
}

func load(t *testing.T, db *gorm.DB, publicID string) entities.InboundTask {
	t.Helper()
	var row entities.InboundTask
	require.NoError(t, db.Where("public_id = ?", publicID).First(&row).Error)
	return row
}

func newWorker(q queue.Consumer, h worker.InboundHandler) *worker.Worker {
	return worker.NewWorker(1, q, h, time.Second, 10*time.Millisecond, zerolog.Nop())
}

func TestProcessNext_EmptyQueue(t *testing.T) {
	_, q := setup(t)
	assert.False(t, newWorker(q, &MockHandler{}).ProcessNext(context.Background()))
}

func TestProcessNext_CompletesTask(t *testing.T) {
	db, q := setup(t)
	task := enqueue(t, q, "hola")
	handler := &MockHandler{}

	assert.True(t, newWorker(q, handler).ProcessNext(context.Background()))

	require.Equal(t, 1, handler.count())
	assert.Equal(t, "hola", handler.seen[0].Body)
	assert.Equal(t, "whatsapp:+50212345678", handler.seen[0].From.Address)
	assert.Equal(t, "SMhola", handler.seen[0].ProviderMessageID)
	assert.Equal(t, entities.TaskStatusCompleted, load(t, db, task.PublicID).Status)
}

func TestProcessNext_ErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus string
		wantCode   string
	}{
		{
			name: "delivery failure is final",
			err: &routing.DeliveryError{ConversationID: 1, MessageID: 2,
				Err: providerErrors.NewProviderError("twilio", providerErrors.CategoryInvalidDestination, "bad number")},
			wantStatus: entities.TaskStatusFailed,
			wantCode:   "delivery_invalid_destination",
		},
		{
			name: "exhausted transient delivery is final too",
			err: &routing.DeliveryError{ConversationID: 1, MessageID: 2,
				Err: providerErrors.NewProviderError("twilio", providerErrors.CategoryRateLimited, "429")},
			wantStatus: entities.TaskStatusFailed,
			wantCode:   "delivery_rate_limited",
		},
		{
			name: "validation error is final",
			err: platformerrors.NewError(context.Background(), platformerrors.LayerDomain,
				platformerrors.ErrorTypeValidation, "empty body", nil, ""),
			wantStatus: entities.TaskStatusFailed,
			wantCode:   "validation",
		},
		{
			name: "store error is retried",
			err: platformerrors.NewError(context.Background(), platformerrors.LayerRepository,
				platformerrors.ErrorTypeDatabase, "connection refused", errors.New("dial"), ""),
			wantStatus: entities.TaskStatusPending,
			wantCode:   "store_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, q := setup(t)
			task := enqueue(t, q, "hola")
			handler := &MockHandler{HandleInboundFunc: func(context.Context, routing.InboundMessage) (*routing.Outcome, error) {
				return &routing.Outcome{ConversationID: 1}, tt.err
			}}

			newWorker(q, handler).ProcessNext(context.Background())

			row := load(t, db, task.PublicID)
			assert.Equal(t, tt.wantStatus, row.Status)
			require.NotNil(t, row.ErrorCode)
			assert.Equal(t, tt.wantCode, *row.ErrorCode)
		})
	}
}

func TestProcessNext_FailureAfterInboundStoredIsFinal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "task timeout", err: fmt.Errorf("append reply: %w", context.DeadlineExceeded), wantCode: "timeout"},
		{
			name: "store error",
			err: platformerrors.NewError(context.Background(), platformerrors.LayerRepository,
				platformerrors.ErrorTypeDatabase, "connection reset", errors.New("reset"), ""),
			wantCode: "store_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, q := setup(t)
			task := enqueue(t, q, "hola")
			handler := &MockHandler{HandleInboundFunc: func(context.Context, routing.InboundMessage) (*routing.Outcome, error) {
				return &routing.Outcome{
					ConversationID: 1,
					Inbound:        &conversation.Message{ID: 10, ConversationID: 1, Sender: conversation.SenderCustomer, Content: "hola"},
				}, tt.err
			}}
			w := newWorker(q, handler)

			assert.True(t, w.ProcessNext(context.Background()))
			row := load(t, db, task.PublicID)
			assert.Equal(t, entities.TaskStatusFailed, row.Status)
			require.NotNil(t, row.ErrorCode)
			assert.Equal(t, tt.wantCode, *row.ErrorCode)

			assert.False(t, w.ProcessNext(context.Background()))
			assert.Equal(t, 1, handler.count())
		})
	}
}

func TestProcessNext_RetriedTaskFailsAfterMaxAttempts(t *testing.T) {
	db, q := setup(t)
	task := enqueue(t, q, "hola")
	handler := &MockHandler{HandleInboundFunc: func(context.Context, routing.InboundMessage) (*routing.Outcome, error) {
		return nil, context.DeadlineExceeded
	}}
	w := newWorker(q, handler)

	assert.True(t, w.ProcessNext(context.Background()))
	assert.Equal(t, entities.TaskStatusPending, load(t, db, task.PublicID).Status)
	assert.True(t, w.ProcessNext(context.Background()))

	row := load(t, db, task.PublicID)
	assert.Equal(t, entities.TaskStatusFailed, row.Status)
	assert.Equal(t, 2, row.Attempts)
	assert.Equal(t, "timeout", *row.ErrorCode)
	assert.Equal(t, 2, handler.count())
}

func TestPool_DrainsQueueInOrder(t *testing.T) {
	db, q := setup(t)
	tasks := []*queue.Task{enqueue(t, q, "uno"), enqueue(t, q, "dos"), enqueue(t, q, "tres")}
	handler := &MockHandler{}

	pool := worker.NewPool(q, handler, worker.Config{WorkerCount: 2, TaskTimeout: time.Second, PollInterval: 10 * time.Millisecond}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	require.Eventually(t, func() bool { return handler.count() == 3 }, 2*time.Second, 10*time.Millisecond)
	pool.Stop()

	handler.mu.Lock()
	bodies := []string{handler.seen[0].Body, handler.seen[1].Body, handler.seen[2].Body}
	handler.mu.Unlock()
	// same sender: the queue hands tasks out one at a time
	assert.Equal(t, []string{"uno", "dos", "tres"}, bodies)

	for _, task := range tasks {
		assert.Equal(t, entities.TaskStatusCompleted, load(t, db, task.PublicID).Status)
	}
	depth, err := pool.GetQueueDepth(context.Background())
	require.NoError(t, err)
	assert.Zero(t, depth)
}
