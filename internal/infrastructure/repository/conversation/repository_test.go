package conversation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "support-relay/internal/domain/conversation"
	repo "support-relay/internal/infrastructure/repository/conversation"
	"support-relay/internal/testhelpers"
	"support-relay/internal/utils/platformerrors"
)

func newService(t *testing.T) (*domain.DefaultService, *testhelpers.Clock) {
	t.Helper()
	svc, clock, _ := testhelpers.NewStore(t)
	return svc, clock
}

func whatsapp(number string) domain.ChannelAddress {
	return domain.ChannelAddress{Channel: domain.ChannelWhatsApp, Address: "whatsapp:" + number}
}

func TestFindOrCreateCustomer_IsIdempotent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.FindOrCreateCustomer(ctx, whatsapp("+50212345678"))
	require.NoError(t, err)
	second, err := svc.FindOrCreateCustomer(ctx, whatsapp("+50212345678"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, first.PhoneNumber)
	assert.Equal(t, "whatsapp:+50212345678", *first.PhoneNumber)
	assert.Nil(t, first.SessionID)

	web, err := svc.FindOrCreateCustomer(ctx, domain.ChannelAddress{Channel: domain.ChannelWeb, Address: "sess-1"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, web.ID)
	require.NotNil(t, web.SessionID)
}

func TestFindOrCreateCustomer_RejectsEmptyAddress(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.FindOrCreateCustomer(context.Background(), domain.ChannelAddress{Channel: domain.ChannelWhatsApp})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestCustomerRepository_DuplicateIsConflict(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	customers := repo.NewCustomerRepository(db)
	phone := "whatsapp:+50299999999"

	require.NoError(t, customers.Create(context.Background(), &domain.Customer{PhoneNumber: &phone, CreatedAt: time.Now().UTC()}))
	err := customers.Create(context.Background(), &domain.Customer{PhoneNumber: &phone, CreatedAt: time.Now().UTC()})

	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict), "got %v", err)
}

func TestResolveActiveConversation_ReusesActive(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	customer, err := svc.FindOrCreateCustomer(ctx, whatsapp("+50211112222"))
	require.NoError(t, err)

	conv, created, err := svc.ResolveActiveConversation(ctx, customer.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.StatusBot, conv.Status)

	again, created, err := svc.ResolveActiveConversation(ctx, customer.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)
}

func TestCreateConversation_SecondActiveReturnsExisting(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	customer, err := svc.FindOrCreateCustomer(ctx, whatsapp("+50233334444"))
	require.NoError(t, err)

	first, err := svc.CreateConversation(ctx, customer.ID)
	require.NoError(t, err)
	second, err := svc.CreateConversation(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, _, err = svc.TransitionStatus(ctx, first.ID, domain.StatusEnded)
	require.NoError(t, err)

	third, created, err := svc.ResolveActiveConversation(ctx, customer.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestAppendMessage_OrdersAndBumpsActivity(t *testing.T) {
	svc, clock := newService(t)
	ctx := context.Background()
	customer, _ := svc.FindOrCreateCustomer(ctx, whatsapp("+50255556666"))
	conv, _, err := svc.ResolveActiveConversation(ctx, customer.ID)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = svc.AppendMessage(ctx, conv.ID, domain.SenderCustomer, "hola", nil)
	require.NoError(t, err)
	intent := domain.IntentAIReply
	_, err = svc.AppendMessage(ctx, conv.ID, domain.SenderBot, "¡Hola! ¿En qué te ayudo?", &intent)
	require.NoError(t, err)
	// same timestamp: id breaks the tie
	_, err = svc.AppendMessage(ctx, conv.ID, domain.SenderCustomer, "precio laptop", nil)
	require.NoError(t, err)

	got, err := svc.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "hola", got.Messages[0].Content)
	assert.Equal(t, domain.SenderBot, got.Messages[1].Sender)
	require.NotNil(t, got.Messages[1].IntentDetected)
	assert.Equal(t, domain.IntentAIReply, *got.Messages[1].IntentDetected)
	assert.Equal(t, "precio laptop", got.Messages[2].Content)
	assert.True(t, got.LastActivityAt.Equal(clock.Now()), "last activity %v", got.LastActivityAt)
	assert.True(t, got.UpdatedAt.Equal(clock.Now()))
}

func TestAppendMessage_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AppendMessage(ctx, 1, domain.SenderCustomer, "   ", nil)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = svc.AppendMessage(ctx, 1, domain.Sender("robot"), "hi", nil)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = svc.AppendMessage(ctx, 999, domain.SenderCustomer, "hi", nil)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound), "got %v", err)
}

func TestAppendMessage_RestrictedToStatuses(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	customer, _ := svc.FindOrCreateCustomer(ctx, whatsapp("+50212121212"))
	conv, _, err := svc.ResolveActiveConversation(ctx, customer.ID)
	require.NoError(t, err)

	_, err = svc.AppendMessage(ctx, conv.ID, domain.SenderCustomer, "hola", nil, domain.StatusBot)
	require.NoError(t, err)

	_, _, err = svc.TransitionStatus(ctx, conv.ID, domain.StatusHuman)
	require.NoError(t, err)
	intent := domain.IntentAIReply
	_, err = svc.AppendMessage(ctx, conv.ID, domain.SenderBot, "¡Hola!", &intent, domain.StatusBot)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict), "got %v", err)
	assert.ErrorIs(t, err, domain.ErrStatusChanged)

	_, err = svc.AppendMessage(ctx, conv.ID, domain.SenderHuman, "Soy Ana.", nil, domain.StatusBot, domain.StatusHuman)
	require.NoError(t, err)

	_, _, err = svc.TransitionStatus(ctx, conv.ID, domain.StatusEnded)
	require.NoError(t, err)
	_, err = svc.AppendMessage(ctx, conv.ID, domain.SenderHuman, "¿Sigue ahí?", nil, domain.StatusBot, domain.StatusHuman)
	assert.ErrorIs(t, err, domain.ErrStatusChanged)

	_, err = svc.AppendMessage(ctx, 999, domain.SenderCustomer, "hi", nil, domain.StatusBot)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound), "got %v", err)

	messages, err := svc.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestTransitionStatus_KeepsLastActivity(t *testing.T) {
	svc, clock := newService(t)
	ctx := context.Background()
	customer, _ := svc.FindOrCreateCustomer(ctx, whatsapp("+50213131313"))
	conv, _, err := svc.ResolveActiveConversation(ctx, customer.ID)
	require.NoError(t, err)
	_, err = svc.AppendMessage(ctx, conv.ID, domain.SenderCustomer, "hola", nil)
	require.NoError(t, err)
	active := clock.Now()

	clock.Advance(10 * time.Minute)
	_, _, err = svc.TransitionStatus(ctx, conv.ID, domain.StatusHuman)
	require.NoError(t, err)

	got, err := svc.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusHuman, got.Status)
	assert.True(t, got.LastActivityAt.Equal(active), "last activity %v", got.LastActivityAt)
	assert.True(t, got.UpdatedAt.Equal(clock.Now()))
}

func TestTransitionStatus_StateMachine(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	customer, _ := svc.FindOrCreateCustomer(ctx, whatsapp("+50277778888"))
	conv, _, err := svc.ResolveActiveConversation(ctx, customer.ID)
	require.NoError(t, err)

	updated, changed, err := svc.TransitionStatus(ctx, conv.ID, domain.StatusHuman)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.StatusHuman, updated.Status)

	_, changed, err = svc.TransitionStatus(ctx, conv.ID, domain.StatusHuman)
	require.NoError(t, err)
	assert.False(t, changed, "same-status transition is a no-op")

	_, _, err = svc.TransitionStatus(ctx, conv.ID, domain.StatusBot)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	_, changed, err = svc.TransitionStatus(ctx, conv.ID, domain.StatusEnded)
	require.NoError(t, err)
	assert.True(t, changed)

	for _, target := range []domain.Status{domain.StatusBot, domain.StatusHuman} {
		_, _, err = svc.TransitionStatus(ctx, conv.ID, target)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "ended must be terminal")
	}
	_, changed, err = svc.TransitionStatus(ctx, conv.ID, domain.StatusEnded)
	require.NoError(t, err)
	assert.False(t, changed)

	_, _, err = svc.TransitionStatus(ctx, 4242, domain.StatusEnded)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestListConversations_RowsCarryDashboardData(t *testing.T) {
	svc, clock := newService(t)
	ctx := context.Background()

	alice, _ := svc.FindOrCreateCustomer(ctx, whatsapp("+50210000001"))
	bob, _ := svc.FindOrCreateCustomer(ctx, whatsapp("+50210000002"))
	aliceConv, _, _ := svc.ResolveActiveConversation(ctx, alice.ID)
	bobConv, _, _ := svc.ResolveActiveConversation(ctx, bob.ID)

	clock.Advance(time.Second)
	_, err := svc.AppendMessage(ctx, aliceConv.ID, domain.SenderCustomer, "primero", nil)
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = svc.AppendMessage(ctx, bobConv.ID, domain.SenderCustomer, "hola", nil)
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = svc.AppendMessage(ctx, bobConv.ID, domain.SenderBot, "respuesta", nil)
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, _, err = svc.TransitionStatus(ctx, aliceConv.ID, domain.StatusHuman)
	require.NoError(t, err)

	rows, total, err := svc.ListConversations(ctx, domain.NewFilter())
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 2)

	// alice was touched last by the take-control transition
	assert.Equal(t, aliceConv.ID, rows[0].ID)
	assert.Equal(t, bobConv.ID, rows[1].ID)
	require.NotNil(t, rows[1].LastMessage)
	assert.Equal(t, "respuesta", *rows[1].LastMessage)
	require.NotNil(t, rows[1].CustomerPhone)
	assert.Equal(t, "whatsapp:+50210000002", *rows[1].CustomerPhone)
	assert.Zero(t, rows[1].UnreadCount)

	human, total, err := svc.ListConversations(ctx, domain.NewFilter().WithStatus(domain.StatusHuman))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, human, 1)
	assert.Equal(t, aliceConv.ID, human[0].ID)

	page, _, err := svc.ListConversations(ctx, domain.NewFilter().WithPagination(1, 1))
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, bobConv.ID, page[0].ID)
}

func TestListStaleConversations(t *testing.T) {
	svc, clock := newService(t)
	ctx := context.Background()
	start := clock.Now()

	idleBot, _ := svc.FindOrCreateCustomer(ctx, whatsapp("+50220000001"))
	idleBotConv, _, _ := svc.ResolveActiveConversation(ctx, idleBot.ID)

	clock.Advance(9 * time.Minute)
	freshHuman, _ := svc.FindOrCreateCustomer(ctx, whatsapp("+50220000002"))
	freshHumanConv, _, _ := svc.ResolveActiveConversation(ctx, freshHuman.ID)
	_, _, err := svc.TransitionStatus(ctx, freshHumanConv.ID, domain.StatusHuman)
	require.NoError(t, err)

	ended, _ := svc.FindOrCreateCustomer(ctx, whatsapp("+50220000003"))
	clock.Advance(-9 * time.Minute)
	endedConv, _, _ := svc.ResolveActiveConversation(ctx, ended.ID)
	_, _, err = svc.TransitionStatus(ctx, endedConv.ID, domain.StatusEnded)
	require.NoError(t, err)

	cutoff := start.Add(10 * time.Minute).Add(-5 * time.Minute)
	stale, err := svc.ListStaleConversations(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, idleBotConv.ID, stale[0].ID)
}

func TestStats(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	c1, _ := svc.FindOrCreateCustomer(ctx, whatsapp("+50230000001"))
	c2, _ := svc.FindOrCreateCustomer(ctx, whatsapp("+50230000002"))
	conv1, _, _ := svc.ResolveActiveConversation(ctx, c1.ID)
	conv2, _, _ := svc.ResolveActiveConversation(ctx, c2.ID)
	_, _ = svc.AppendMessage(ctx, conv1.ID, domain.SenderCustomer, "hola", nil)
	_, _ = svc.AppendMessage(ctx, conv1.ID, domain.SenderBot, "hola!", nil)
	_, _ = svc.AppendMessage(ctx, conv2.ID, domain.SenderCustomer, "agente", nil)
	_, _ = svc.AppendMessage(ctx, conv2.ID, domain.SenderHuman, "ya voy", nil)
	_, _, _ = svc.TransitionStatus(ctx, conv2.ID, domain.StatusHuman)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalConversations)
	assert.EqualValues(t, 4, stats.TotalMessages)
	assert.EqualValues(t, 1, stats.ConversationsByStatus[domain.StatusBot])
	assert.EqualValues(t, 1, stats.ConversationsByStatus[domain.StatusHuman])
	assert.EqualValues(t, 0, stats.ConversationsByStatus[domain.StatusEnded])
	assert.EqualValues(t, 2, stats.MessagesBySender[domain.SenderCustomer])
	assert.EqualValues(t, 1, stats.MessagesBySender[domain.SenderHuman])
}
