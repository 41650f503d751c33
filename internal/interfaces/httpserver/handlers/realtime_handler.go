package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"support-relay/internal/infrastructure/metrics"
	"support-relay/internal/realtime"
)

// RealtimeHandler upgrades dashboard connections and attaches them to the hub.
type RealtimeHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewRealtimeHandler constructs the handler.
func NewRealtimeHandler(hub *realtime.Hub, log zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log.With().Str("handler", "realtime").Logger(),
	}
}

// Connect handles GET /v1/realtime/ws
// @Summary Subscribe to conversation events
// @Description Websocket. Send {"action":"join"|"leave","conversation_id":N}; receive {"event":"new_message"|"status_changed","conversation_id":N,"data":{...}}.
// @Tags Realtime
// @Success 101 {string} string "Switching Protocols"
// @Router /v1/realtime/ws [get]
func (h *RealtimeHandler) Connect(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	metrics.ActiveObservers.Inc()
	defer metrics.ActiveObservers.Dec()

	client := realtime.NewClient(h.hub, conn, h.log)
	h.log.Debug().Str("observer_id", client.ID()).Str("remote", c.ClientIP()).Msg("realtime client connected")
	client.Serve(c.Request.Context())
}
