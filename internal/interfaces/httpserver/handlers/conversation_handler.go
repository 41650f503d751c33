package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"support-relay/internal/domain/conversation"
	"support-relay/internal/domain/routing"
	"support-relay/internal/interfaces/httpserver/requests"
	"support-relay/internal/interfaces/httpserver/responses"
	"support-relay/internal/utils/platformerrors"
)

// AgentService performs the actions an agent takes from the dashboard.
type AgentService interface {
	TakeControl(ctx context.Context, conversationID uint) (*conversation.Conversation, error)
	Close(ctx context.Context, conversationID uint) (*conversation.Conversation, error)
	SendAgentMessage(ctx context.Context, conversationID uint, content string) (*routing.Outcome, error)
}

// ConversationHandler exposes the agent dashboard API.
type ConversationHandler struct {
	store  conversation.Service
	agents AgentService
	log    zerolog.Logger
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(store conversation.Service, agents AgentService, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		store:  store,
		agents: agents,
		log:    log.With().Str("handler", "conversation").Logger(),
	}
}

// List handles GET /v1/conversations
// @Summary List conversations
// @Description Lists conversations by most recent activity with their last message
// @Tags Conversations
// @Produce json
// @Param status query string false "Filter by status" Enums(bot, human, ended)
// @Param limit query int false "Page size (1-100)" default(50)
// @Param offset query int false "Rows to skip" default(0)
// @Success 200 {object} responses.ConversationListResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /v1/conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	var query requests.ListConversationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid list parameters", "conversation-list-params")
		return
	}

	filter := conversation.NewFilter().WithPagination(query.Limit, query.Offset)
	if query.Status != "" {
		status, err := conversation.ParseStatus(query.Status)
		if err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid status filter", "conversation-list-status")
			return
		}
		filter.WithStatus(status)
	}
	filter.Normalize()

	rows, total, err := h.store.ListConversations(c.Request.Context(), filter)
	if err != nil {
		responses.HandleError(c, err, "failed to list conversations")
		return
	}

	c.JSON(http.StatusOK, responses.ConversationListResponse{
		Data:   responses.MapSummaries(rows),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Get handles GET /v1/conversations/:id
// @Summary Get a conversation
// @Description Returns the conversation with its customer and full message history
// @Tags Conversations
// @Produce json
// @Param id path int true "Conversation ID"
// @Success 200 {object} responses.ConversationResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 404 {object} responses.ErrorResponse
// @Router /v1/conversations/{id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	id, ok := bindConversationID(c)
	if !ok {
		return
	}

	conv, err := h.store.GetConversation(c.Request.Context(), id)
	if err != nil {
		responses.HandleError(c, err, "failed to get conversation")
		return
	}

	c.JSON(http.StatusOK, responses.MapConversation(conv))
}

// ListMessages handles GET /v1/conversations/:id/messages
// @Summary List conversation messages
// @Description Returns messages oldest first
// @Tags Conversations
// @Produce json
// @Param id path int true "Conversation ID"
// @Success 200 {object} responses.MessageListResponse
// @Failure 404 {object} responses.ErrorResponse
// @Router /v1/conversations/{id}/messages [get]
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	id, ok := bindConversationID(c)
	if !ok {
		return
	}

	messages, err := h.store.ListMessages(c.Request.Context(), id)
	if err != nil {
		responses.HandleError(c, err, "failed to list messages")
		return
	}

	c.JSON(http.StatusOK, responses.MessageListResponse{Data: responses.MapMessages(messages)})
}

// TakeControl handles POST /v1/conversations/:id/take-control
// @Summary Hand a conversation to a human agent
// @Tags Conversations
// @Produce json
// @Param id path int true "Conversation ID"
// @Success 200 {object} responses.StatusChangeResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 404 {object} responses.ErrorResponse
// @Router /v1/conversations/{id}/take-control [post]
func (h *ConversationHandler) TakeControl(c *gin.Context) {
	id, ok := bindConversationID(c)
	if !ok {
		return
	}

	conv, err := h.agents.TakeControl(c.Request.Context(), id)
	if err != nil {
		responses.HandleError(c, err, "failed to take control")
		return
	}

	c.JSON(http.StatusOK, responses.StatusChangeResponse{ConversationID: conv.ID, Status: string(conv.Status)})
}

// Close handles POST /v1/conversations/:id/close
// @Summary End a conversation
// @Description Closing an ended conversation is a no-op
// @Tags Conversations
// @Produce json
// @Param id path int true "Conversation ID"
// @Success 200 {object} responses.StatusChangeResponse
// @Failure 404 {object} responses.ErrorResponse
// @Router /v1/conversations/{id}/close [post]
func (h *ConversationHandler) Close(c *gin.Context) {
	id, ok := bindConversationID(c)
	if !ok {
		return
	}

	conv, err := h.agents.Close(c.Request.Context(), id)
	if err != nil {
		responses.HandleError(c, err, "failed to close conversation")
		return
	}

	c.JSON(http.StatusOK, responses.StatusChangeResponse{ConversationID: conv.ID, Status: string(conv.Status)})
}

// SendMessage handles POST /v1/conversations/:id/messages
// @Summary Send a message as the agent
// @Description Stores the message and delivers it to the customer. A failed delivery still returns the stored message.
// @Tags Conversations
// @Accept json
// @Produce json
// @Param id path int true "Conversation ID"
// @Param request body requests.SendMessageRequest true "Message"
// @Success 201 {object} responses.AgentMessageResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 404 {object} responses.ErrorResponse
// @Router /v1/conversations/{id}/messages [post]
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	id, ok := bindConversationID(c)
	if !ok {
		return
	}

	var req requests.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "content is required", "agent-message-body")
		return
	}

	outcome, err := h.agents.SendAgentMessage(c.Request.Context(), id, req.Content)
	if err != nil && !(routing.IsDeliveryError(err) && outcome != nil && outcome.Outbound != nil) {
		responses.HandleError(c, err, "failed to send message")
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Uint("conversation_id", id).Msg("agent message stored but not delivered")
	}

	c.JSON(http.StatusCreated, responses.AgentMessageResponse{
		Message:  responses.MapMessage(outcome.Outbound),
		Delivery: responses.MapDelivery(outcome.Delivery),
	})
}

func bindConversationID(c *gin.Context) (uint, bool) {
	var uri requests.ConversationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid conversation id", "conversation-id")
		return 0, false
	}
	return uri.ID, true
}
