package v1

import (
	"github.com/gin-gonic/gin"

	"support-relay/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

// NewRoutes builds the v1 route registrar.
func NewRoutes(handlerProvider *handlers.Provider) *Routes {
	return &Routes{
		handlers: handlerProvider,
	}
}

// Register attaches all v1 routes under /v1 prefix behind the given middleware.
func (r *Routes) Register(engine *gin.Engine, middleware ...gin.HandlerFunc) {
	group := engine.Group("/v1", middleware...)
	registerConversationRoutes(group, r.handlers.Conversation)
	group.GET("/stats", r.handlers.Stats.Get)
	group.GET("/realtime/ws", r.handlers.Realtime.Connect)
}

func registerConversationRoutes(router gin.IRoutes, handler *handlers.ConversationHandler) {
	router.GET("/conversations", handler.List)
	router.GET("/conversations/:id", handler.Get)
	router.GET("/conversations/:id/messages", handler.ListMessages)
	router.POST("/conversations/:id/messages", handler.SendMessage)
	router.POST("/conversations/:id/take-control", handler.TakeControl)
	router.POST("/conversations/:id/close", handler.Close)
}
