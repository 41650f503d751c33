package routes

import (
	"github.com/gin-gonic/gin"

	"support-relay/internal/interfaces/httpserver/handlers"
	"support-relay/internal/interfaces/httpserver/middlewares"
	v1 "support-relay/internal/interfaces/httpserver/routes/v1"
)

// Provider coordinates all route registrations.
type Provider struct {
	V1            *v1.Routes
	handlers      *handlers.Provider
	internalToken string
}

// NewProvider constructs the route provider.
func NewProvider(handlerProvider *handlers.Provider, internalToken string) *Provider {
	return &Provider{
		V1:            v1.NewRoutes(handlerProvider),
		handlers:      handlerProvider,
		internalToken: internalToken,
	}
}

// Register attaches all routes. agentAuth guards only the agent API.
func (p *Provider) Register(engine *gin.Engine, agentAuth ...gin.HandlerFunc) {
	engine.POST("/webhooks/twilio", p.handlers.Webhook.Twilio)

	internal := engine.Group("/internal", middlewares.InternalToken(p.internalToken))
	internal.POST("/notify-message", p.handlers.Internal.NotifyMessage)
	internal.POST("/notify-status", p.handlers.Internal.NotifyStatus)

	p.V1.Register(engine, agentAuth...)
}
