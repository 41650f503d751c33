package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"support-relay/internal/domain/conversation"
	"support-relay/internal/domain/notify"
	"support-relay/internal/interfaces/httpserver/requests"
	"support-relay/internal/interfaces/httpserver/responses"
	"support-relay/internal/utils/platformerrors"
)

// InternalHandler lets worker processes push events into this process's hub.
type InternalHandler struct {
	publisher notify.Publisher
	log       zerolog.Logger
}

// NewInternalHandler constructs the handler around the local publisher.
func NewInternalHandler(publisher notify.Publisher, log zerolog.Logger) *InternalHandler {
	return &InternalHandler{
		publisher: publisher,
		log:       log.With().Str("handler", "internal").Logger(),
	}
}

// NotifyMessage handles POST /internal/notify-message
// @Summary Fan out a stored message
// @Tags Internal
// @Accept json
// @Produce json
// @Param X-Internal-Token header string false "Shared internal token"
// @Param request body requests.NotifyMessageRequest true "Message event"
// @Success 200 {object} map[string]string
// @Failure 400 {object} responses.ErrorResponse
// @Failure 401 {object} responses.ErrorResponse
// @Router /internal/notify-message [post]
func (h *InternalHandler) NotifyMessage(c *gin.Context) {
	var req requests.NotifyMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "conversation_id and message are required", "notify-message-body")
		return
	}

	var msg conversation.Message
	if err := json.Unmarshal(req.Message, &msg); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "message is not a valid message object", "notify-message-payload")
		return
	}
	if msg.ConversationID != 0 && msg.ConversationID != req.ConversationID {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "message belongs to another conversation", "notify-message-mismatch")
		return
	}

	event := notify.Event{
		Type:           notify.EventNewMessage,
		ConversationID: req.ConversationID,
		Data:           req.Message,
	}
	h.publish(c, event)
}

// NotifyStatus handles POST /internal/notify-status
// @Summary Fan out a status change
// @Tags Internal
// @Accept json
// @Produce json
// @Param X-Internal-Token header string false "Shared internal token"
// @Param request body requests.NotifyStatusRequest true "Status event"
// @Success 200 {object} map[string]string
// @Failure 400 {object} responses.ErrorResponse
// @Failure 401 {object} responses.ErrorResponse
// @Router /internal/notify-status [post]
func (h *InternalHandler) NotifyStatus(c *gin.Context) {
	var req requests.NotifyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "conversation_id and a valid status are required", "notify-status-body")
		return
	}
	h.publish(c, notify.StatusChangedEvent(req.ConversationID, req.Status))
}

func (h *InternalHandler) publish(c *gin.Context, event notify.Event) {
	if err := h.publisher.Publish(c.Request.Context(), event); err != nil {
		h.log.Warn().Err(err).Str("event", string(event.Type)).Uint("conversation_id", event.ConversationID).Msg("notification not delivered to observers")
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
