package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"support-relay/internal/domain/conversation"
	"support-relay/internal/interfaces/httpserver/responses"
)

// StatsHandler reports store counters for the dashboard header.
type StatsHandler struct {
	store conversation.Service
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(store conversation.Service) *StatsHandler {
	return &StatsHandler{store: store}
}

// Get handles GET /v1/stats
// @Summary Conversation and message counters
// @Tags Stats
// @Produce json
// @Success 200 {object} responses.StatsResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /v1/stats [get]
func (h *StatsHandler) Get(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "failed to load stats")
		return
	}
	c.JSON(http.StatusOK, responses.MapStats(stats))
}
