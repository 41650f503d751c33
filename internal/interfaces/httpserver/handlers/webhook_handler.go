package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"support-relay/internal/domain/conversation"
	"support-relay/internal/infrastructure/metrics"
	"support-relay/internal/infrastructure/observability"
	"support-relay/internal/infrastructure/queue"
	"support-relay/internal/interfaces/httpserver/requests"
)

const emptyTwiML = "<Response></Response>"

// WebhookHandler accepts inbound gateway callbacks and queues them for the workers.
type WebhookHandler struct {
	producer queue.Producer
	log      zerolog.Logger
}

// NewWebhookHandler constructs the handler.
func NewWebhookHandler(producer queue.Producer, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		producer: producer,
		log:      log.With().Str("handler", "webhook").Logger(),
	}
}

// Twilio handles POST /webhooks/twilio
// @Summary Receive an inbound WhatsApp message
// @Description Queues the message for routing and acknowledges with empty TwiML. Always answers 200.
// @Tags Webhooks
// @Accept x-www-form-urlencoded
// @Produce xml
// @Param From formData string true "Sender address, e.g. whatsapp:+50255551234"
// @Param Body formData string true "Message text"
// @Param MessageSid formData string false "Gateway message id"
// @Success 200 {string} string "<Response></Response>"
// @Router /webhooks/twilio [post]
func (h *WebhookHandler) Twilio(c *gin.Context) {
	defer c.Data(http.StatusOK, "application/xml", []byte(emptyTwiML))

	var req requests.TwilioWebhookRequest
	if err := c.ShouldBind(&req); err != nil {
		h.log.Warn().Err(err).Msg("unreadable webhook payload")
		metrics.RecordTask("rejected")
		return
	}

	from, err := conversation.ParseWhatsAppAddress(req.From)
	if err != nil {
		h.log.Warn().Err(err).Str("message_sid", req.MessageSid).Msg("webhook without sender")
		metrics.RecordTask("rejected")
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		h.log.Info().Str("from", observability.MaskAddress(from.String())).Str("message_sid", req.MessageSid).Msg("ignoring empty message")
		metrics.RecordTask("rejected")
		return
	}

	task := &queue.Task{
		Address:           from,
		Body:              req.Body,
		ProviderMessageID: req.MessageSid,
	}
	if err := h.producer.Enqueue(c.Request.Context(), task); err != nil {
		h.log.Error().Err(err).Str("from", observability.MaskAddress(from.String())).Str("message_sid", req.MessageSid).Msg("failed to enqueue inbound message")
		metrics.RecordTask("enqueue_failed")
		return
	}

	h.log.Debug().Str("task_id", task.PublicID).Str("from", observability.MaskAddress(from.String())).Msg("inbound message queued")
	metrics.RecordTask("enqueued")
}
