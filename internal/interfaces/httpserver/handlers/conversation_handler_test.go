package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-relay/internal/domain/conversation"
	"support-relay/internal/domain/delivery"
	providerErrors "support-relay/internal/domain/errors"
	"support-relay/internal/domain/routing"
	"support-relay/internal/utils/platformerrors"
)

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestConversationHandler_List(t *testing.T) {
	deps := newTestDeps()
	phone := "+50255551234"
	last := "Hola"
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	var gotFilter *conversation.Filter
	deps.store.ListConversationsFunc = func(ctx context.Context, filter *conversation.Filter) ([]*conversation.Summary, int64, error) {
		gotFilter = filter
		return []*conversation.Summary{{
			Conversation:    conversation.Conversation{ID: 7, CustomerID: 3, Status: conversation.StatusHuman, LastActivityAt: now},
			CustomerPhone:   &phone,
			LastMessage:     &last,
			LastMessageTime: &now,
		}}, 1, nil
	}
	router := setupTestRouter(deps)

	w := doRequest(router, http.MethodGet, "/v1/conversations?status=human&limit=10&offset=5", "")

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotFilter)
	require.NotNil(t, gotFilter.Status)
	assert.Equal(t, conversation.StatusHuman, *gotFilter.Status)
	assert.Equal(t, 10, gotFilter.Limit)
	assert.Equal(t, 5, gotFilter.Offset)

	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["total"])
	rows := body["data"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, float64(7), row["id"])
	assert.Equal(t, "human", row["status"])
	assert.Equal(t, "+50255551234", row["customer_phone"])
	assert.Equal(t, "Hola", row["last_message"])
	assert.Equal(t, float64(0), row["unread_count"])
}

func TestConversationHandler_ListDefaults(t *testing.T) {
	deps := newTestDeps()
	var gotFilter *conversation.Filter
	deps.store.ListConversationsFunc = func(ctx context.Context, filter *conversation.Filter) ([]*conversation.Summary, int64, error) {
		gotFilter = filter
		return nil, 0, nil
	}
	router := setupTestRouter(deps)

	w := doRequest(router, http.MethodGet, "/v1/conversations", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, gotFilter.Status)
	assert.Equal(t, conversation.DefaultListLimit, gotFilter.Limit)
	assert.Equal(t, 0, gotFilter.Offset)
	body := decodeBody(t, w)
	assert.Equal(t, []any{}, body["data"])
}

func TestConversationHandler_ListRejectsBadParams(t *testing.T) {
	for _, query := range []string{"status=closed", "limit=101", "limit=0x", "offset=-1"} {
		t.Run(query, func(t *testing.T) {
			deps := newTestDeps()
			router := setupTestRouter(deps)

			w := doRequest(router, http.MethodGet, "/v1/conversations?"+query, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, "VALIDATION", body["error"])
			assert.NotEmpty(t, body["code"])
		})
	}
}

func TestConversationHandler_GetNotFound(t *testing.T) {
	deps := newTestDeps()
	deps.store.GetConversationFunc = func(ctx context.Context, id uint) (*conversation.Conversation, error) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation 99 not found", nil, "conversation-not-found")
	}
	router := setupTestRouter(deps)

	w := doRequest(router, http.MethodGet, "/v1/conversations/99", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "conversation-not-found", body["code"])
	assert.Equal(t, "conversation 99 not found", body["message"])
	assert.NotEmpty(t, body["request_id"])
}

func TestConversationHandler_GetHidesInternalDetail(t *testing.T) {
	deps := newTestDeps()
	deps.store.GetConversationFunc = func(ctx context.Context, id uint) (*conversation.Conversation, error) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabase, "pq: relation conversations does not exist", nil, "")
	}
	router := setupTestRouter(deps)

	w := doRequest(router, http.MethodGet, "/v1/conversations/1", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
	body := decodeBody(t, w)
	assert.Equal(t, "failed to get conversation", body["message"])
}

func TestConversationHandler_GetInvalidID(t *testing.T) {
	router := setupTestRouter(newTestDeps())

	w := doRequest(router, http.MethodGet, "/v1/conversations/abc", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationHandler_GetWithMessages(t *testing.T) {
	deps := newTestDeps()
	phone := "whatsapp:+50255551234"
	intent := conversation.IntentAIReply
	deps.store.GetConversationFunc = func(ctx context.Context, id uint) (*conversation.Conversation, error) {
		return &conversation.Conversation{
			ID:       id,
			Status:   conversation.StatusBot,
			Customer: &conversation.Customer{ID: 2, PhoneNumber: &phone},
			Messages: []*conversation.Message{
				{ID: 1, ConversationID: id, Sender: conversation.SenderCustomer, Content: "Hola"},
				{ID: 2, ConversationID: id, Sender: conversation.SenderBot, Content: "¡Hola!", IntentDetected: &intent},
			},
		}, nil
	}
	router := setupTestRouter(deps)

	w := doRequest(router, http.MethodGet, "/v1/conversations/4", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(4), body["id"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "customer", messages[0].(map[string]any)["sender"])
	assert.Equal(t, "ai_reply", messages[1].(map[string]any)["intent_detected"])
	assert.Equal(t, phone, body["customer"].(map[string]any)["phone_number"])
}

func TestConversationHandler_TakeControlAndClose(t *testing.T) {
	deps := newTestDeps()
	var calls []string
	deps.agents.TakeControlFunc = func(ctx context.Context, id uint) (*conversation.Conversation, error) {
		calls = append(calls, "take-control")
		return &conversation.Conversation{ID: id, Status: conversation.StatusHuman}, nil
	}
	deps.agents.CloseFunc = func(ctx context.Context, id uint) (*conversation.Conversation, error) {
		calls = append(calls, "close")
		return &conversation.Conversation{ID: id, Status: conversation.StatusEnded}, nil
	}
	router := setupTestRouter(deps)

	w := doRequest(router, http.MethodPost, "/v1/conversations/5/take-control", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "human", decodeBody(t, w)["status"])

	w = doRequest(router, http.MethodPost, "/v1/conversations/5/close", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ended", body["status"])
	assert.Equal(t, float64(5), body["conversation_id"])

	assert.Equal(t, []string{"take-control", "close"}, calls)
}

func TestConversationHandler_TakeControlOfEndedConversation(t *testing.T) {
	deps := newTestDeps()
	deps.agents.TakeControlFunc = func(ctx context.Context, id uint) (*conversation.Conversation, error) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "conversation 5 has ended", nil, "invalid-transition")
	}
	router := setupTestRouter(deps)

	w := doRequest(router, http.MethodPost, "/v1/conversations/5/take-control", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "conversation 5 has ended", decodeBody(t, w)["message"])
}

func TestConversationHandler_SendMessage(t *testing.T) {
	deps := newTestDeps()
	var gotContent string
	deps.agents.SendAgentMessageFunc = func(ctx context.Context, id uint, content string) (*routing.Outcome, error) {
		gotContent = content
		return &routing.Outcome{
			ConversationID: id,
			Action:         routing.ActionAgentReply,
			Outbound:       &conversation.Message{ID: 11, ConversationID: id, Sender: conversation.SenderHuman, Content: content},
			Delivery:       &delivery.Result{Success: true, ProviderMessageID: "SM9", Attempts: 1},
		}, nil
	}
	router := setupTestRouter(deps)

	w := doRequest(router, http.MethodPost, "/v1/conversations/3/messages", `{"content":"Le ayudo con su pedido"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Le ayudo con su pedido", gotContent)
	body := decodeBody(t, w)
	msg := body["message"].(map[string]any)
	assert.Equal(t, "human", msg["sender"])
	assert.Equal(t, float64(11), msg["id"])
	assert.Equal(t, true, body["delivery"].(map[string]any)["success"])
}

func TestConversationHandler_SendMessageDeliveryFailureKeepsMessage(t *testing.T) {
	deps := newTestDeps()
	deps.agents.SendAgentMessageFunc = func(ctx context.Context, id uint, content string) (*routing.Outcome, error) {
		perr := providerErrors.NewProviderError("twilio", providerErrors.CategoryInvalidDestination, "not a whatsapp number")
		return &routing.Outcome{
			ConversationID: id,
			Outbound:       &conversation.Message{ID: 12, ConversationID: id, Sender: conversation.SenderHuman, Content: content},
			Delivery:       &delivery.Result{Success: false, Attempts: 1, Error: perr},
		}, &routing.DeliveryError{ConversationID: id, MessageID: 12, Err: perr}
	}
	router := setupTestRouter(deps)

	w := doRequest(router, http.MethodPost, "/v1/conversations/3/messages", `{"content":"Hola"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	deliveryBody := body["delivery"].(map[string]any)
	assert.Equal(t, false, deliveryBody["success"])
	assert.Equal(t, "invalid_destination", deliveryBody["error_category"])
	assert.Equal(t, float64(12), body["message"].(map[string]any)["id"])
}

func TestConversationHandler_SendMessageValidation(t *testing.T) {
	deps := newTestDeps()
	called := false
	deps.agents.SendAgentMessageFunc = func(ctx context.Context, id uint, content string) (*routing.Outcome, error) {
		called = true
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "conversation 3 has ended", nil, "conversation-ended")
	}
	router := setupTestRouter(deps)

	w := doRequest(router, http.MethodPost, "/v1/conversations/3/messages", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)

	w = doRequest(router, http.MethodPost, "/v1/conversations/3/messages", `{"content":"hola"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, called)
	assert.Equal(t, "conversation-ended", decodeBody(t, w)["code"])
}

func TestStatsHandler_Get(t *testing.T) {
	deps := newTestDeps()
	deps.store.StatsFunc = func(ctx context.Context) (*conversation.Stats, error) {
		return &conversation.Stats{
			TotalConversations: 3,
			TotalMessages:      9,
			ConversationsByStatus: map[conversation.Status]int64{
				conversation.StatusBot: 1, conversation.StatusHuman: 1, conversation.StatusEnded: 1,
			},
			MessagesBySender: map[conversation.Sender]int64{
				conversation.SenderCustomer: 5, conversation.SenderBot: 3, conversation.SenderHuman: 1,
			},
		}, nil
	}
	router := setupTestRouter(deps)

	w := doRequest(router, http.MethodGet, "/v1/stats", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(3), body["total_conversations"])
	assert.Equal(t, float64(9), body["total_messages"])
	assert.Equal(t, float64(1), body["conversations_by_status"].(map[string]any)["ended"])
	assert.Equal(t, float64(5), body["messages_by_sender"].(map[string]any)["customer"])
}
