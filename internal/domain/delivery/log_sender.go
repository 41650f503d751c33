package delivery

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"support-relay/internal/domain/conversation"
	"support-relay/internal/infrastructure/observability"
)

// LogSender accepts every message and only logs it. Used when no gateway is configured.
type LogSender struct {
	log zerolog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("component", "log-sender").Logger()}
}

func (s *LogSender) Send(_ context.Context, to conversation.ChannelAddress, body string) (*Receipt, error) {
	id := "LOG" + uuid.NewString()
	s.log.Info().Str("to", observability.MaskAddress(to.String())).Str("provider_message_id", id).Str("body", body).Msg("outbound message")
	return &Receipt{ProviderMessageID: id, Status: "logged"}, nil
}
