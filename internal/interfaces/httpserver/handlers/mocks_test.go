package handlers_test

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"support-relay/internal/domain/conversation"
	"support-relay/internal/domain/notify"
	"support-relay/internal/domain/routing"
	"support-relay/internal/infrastructure/queue"
	"support-relay/internal/interfaces/httpserver/handlers"
	"support-relay/internal/interfaces/httpserver/middlewares"
	"support-relay/internal/interfaces/httpserver/routes"
	"support-relay/internal/realtime"
)

// MockConversationService is a mock implementation of conversation.Service for testing.
type MockConversationService struct {
	FindOrCreateCustomerFunc      func(ctx context.Context, addr conversation.ChannelAddress) (*conversation.Customer, error)
	FindActiveConversationFunc    func(ctx context.Context, customerID uint) (*conversation.Conversation, error)
	CreateConversationFunc        func(ctx context.Context, customerID uint) (*conversation.Conversation, error)
	ResolveActiveConversationFunc func(ctx context.Context, customerID uint) (*conversation.Conversation, bool, error)
	AppendMessageFunc             func(ctx context.Context, conversationID uint, sender conversation.Sender, content string, intent *conversation.Intent, allowed ...conversation.Status) (*conversation.Message, error)
	TransitionStatusFunc          func(ctx context.Context, conversationID uint, target conversation.Status) (*conversation.Conversation, bool, error)
	GetConversationFunc           func(ctx context.Context, conversationID uint) (*conversation.Conversation, error)
	ListConversationsFunc         func(ctx context.Context, filter *conversation.Filter) ([]*conversation.Summary, int64, error)
	ListMessagesFunc              func(ctx context.Context, conversationID uint) ([]*conversation.Message, error)
	ListStaleConversationsFunc    func(ctx context.Context, cutoff time.Time) ([]*conversation.Conversation, error)
	StatsFunc                     func(ctx context.Context) (*conversation.Stats, error)
}

func (m *MockConversationService) FindOrCreateCustomer(ctx context.Context, addr conversation.ChannelAddress) (*conversation.Customer, error) {
	if m.FindOrCreateCustomerFunc != nil {
		return m.FindOrCreateCustomerFunc(ctx, addr)
	}
	return nil, nil
}

func (m *MockConversationService) FindActiveConversation(ctx context.Context, customerID uint) (*conversation.Conversation, error) {
	if m.FindActiveConversationFunc != nil {
		return m.FindActiveConversationFunc(ctx, customerID)
	}
	return nil, nil
}

func (m *MockConversationService) CreateConversation(ctx context.Context, customerID uint) (*conversation.Conversation, error) {
	if m.CreateConversationFunc != nil {
		return m.CreateConversationFunc(ctx, customerID)
	}
	return nil, nil
}

func (m *MockConversationService) ResolveActiveConversation(ctx context.Context, customerID uint) (*conversation.Conversation, bool, error) {
	if m.ResolveActiveConversationFunc != nil {
		return m.ResolveActiveConversationFunc(ctx, customerID)
	}
	return nil, false, nil
}

func (m *MockConversationService) AppendMessage(ctx context.Context, conversationID uint, sender conversation.Sender, content string, intent *conversation.Intent, allowed ...conversation.Status) (*conversation.Message, error) {
	if m.AppendMessageFunc != nil {
		return m.AppendMessageFunc(ctx, conversationID, sender, content, intent, allowed...)
	}
	return nil, nil
}

func (m *MockConversationService) TransitionStatus(ctx context.Context, conversationID uint, target conversation.Status) (*conversation.Conversation, bool, error) {
	if m.TransitionStatusFunc != nil {
		return m.TransitionStatusFunc(ctx, conversationID, target)
	}
	return nil, false, nil
}

func (m *MockConversationService) GetConversation(ctx context.Context, conversationID uint) (*conversation.Conversation, error) {
	if m.GetConversationFunc != nil {
		return m.GetConversationFunc(ctx, conversationID)
	}
	return nil, nil
}

func (m *MockConversationService) ListConversations(ctx context.Context, filter *conversation.Filter) ([]*conversation.Summary, int64, error) {
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *MockConversationService) ListMessages(ctx context.Context, conversationID uint) ([]*conversation.Message, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, conversationID)
	}
	return nil, nil
}

func (m *MockConversationService) ListStaleConversations(ctx context.Context, cutoff time.Time) ([]*conversation.Conversation, error) {
	if m.ListStaleConversationsFunc != nil {
		return m.ListStaleConversationsFunc(ctx, cutoff)
	}
	return nil, nil
}

func (m *MockConversationService) Stats(ctx context.Context) (*conversation.Stats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &conversation.Stats{}, nil
}

// MockAgentService is a mock implementation of handlers.AgentService.
type MockAgentService struct {
	TakeControlFunc      func(ctx context.Context, conversationID uint) (*conversation.Conversation, error)
	CloseFunc            func(ctx context.Context, conversationID uint) (*conversation.Conversation, error)
	SendAgentMessageFunc func(ctx context.Context, conversationID uint, content string) (*routing.Outcome, error)
}

func (m *MockAgentService) TakeControl(ctx context.Context, conversationID uint) (*conversation.Conversation, error) {
	if m.TakeControlFunc != nil {
		return m.TakeControlFunc(ctx, conversationID)
	}
	return &conversation.Conversation{ID: conversationID, Status: conversation.StatusHuman}, nil
}

func (m *MockAgentService) Close(ctx context.Context, conversationID uint) (*conversation.Conversation, error) {
	if m.CloseFunc != nil {
		return m.CloseFunc(ctx, conversationID)
	}
	return &conversation.Conversation{ID: conversationID, Status: conversation.StatusEnded}, nil
}

func (m *MockAgentService) SendAgentMessage(ctx context.Context, conversationID uint, content string) (*routing.Outcome, error) {
	if m.SendAgentMessageFunc != nil {
		return m.SendAgentMessageFunc(ctx, conversationID, content)
	}
	return nil, nil
}

// MockProducer is a mock implementation of queue.Producer.
type MockProducer struct {
	EnqueueFunc func(ctx context.Context, task *queue.Task) error
}

func (m *MockProducer) Enqueue(ctx context.Context, task *queue.Task) error {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, task)
	}
	return nil
}

type testDeps struct {
	producer  *MockProducer
	store     *MockConversationService
	agents    *MockAgentService
	hub       *realtime.Hub
	publisher notify.Publisher
	token     string
}

func newTestDeps() *testDeps {
	return &testDeps{
		producer:  &MockProducer{},
		store:     &MockConversationService{},
		agents:    &MockAgentService{},
		hub:       realtime.NewHub(zerolog.Nop()),
		publisher: notify.Noop,
	}
}

func setupTestRouter(deps *testDeps) http.Handler {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middlewares.RequestID())

	provider := handlers.NewProvider(deps.producer, deps.store, deps.agents, deps.hub, deps.publisher, zerolog.Nop())
	routes.NewProvider(provider, deps.token).Register(router)
	return router
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
