// Package delivery sends outbound text to customers through the messaging gateway.
package delivery

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"support-relay/internal/domain/conversation"
	providerErrors "support-relay/internal/domain/errors"
	"support-relay/internal/domain/retry"
	"support-relay/internal/infrastructure/observability"
)

// Receipt describes an accepted outbound message.
type Receipt struct {
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Status            string `json:"status,omitempty"`
}

// Sender delivers a single message. Failures are *providerErrors.ProviderError.
type Sender interface {
	Send(ctx context.Context, to conversation.ChannelAddress, body string) (*Receipt, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, to conversation.ChannelAddress, body string) (*Receipt, error)

func (f SenderFunc) Send(ctx context.Context, to conversation.ChannelAddress, body string) (*Receipt, error) {
	return f(ctx, to, body)
}

// Result is the outcome of a delivery including retries.
type Result struct {
	Success           bool                          `json:"success"`
	ProviderMessageID string                        `json:"provider_message_id,omitempty"`
	Attempts          int                           `json:"attempts"`
	Error             *providerErrors.ProviderError `json:"error,omitempty"`
}

// Service wraps a Sender with a per-attempt timeout and the retry policy.
type Service struct {
	sender  Sender
	policy  retry.Policy
	timeout time.Duration
	log     zerolog.Logger
}

// NewService creates a delivery service.
func NewService(sender Sender, policy retry.Policy, timeout time.Duration, log zerolog.Logger) *Service {
	return &Service{
		sender:  sender,
		policy:  policy,
		timeout: timeout,
		log:     log.With().Str("component", "delivery").Logger(),
	}
}

// Deliver sends body to the address, retrying transient failures only.
// The returned Result is never nil; err is the final ProviderError on failure.
func (s *Service) Deliver(ctx context.Context, to conversation.ChannelAddress, body string) (*Result, error) {
	ctx, span := observability.StartProviderSpan(ctx, "gateway", "send")
	defer span.End()

	result := &Result{}
	onRetry := func(attempt int, err error, delay time.Duration) {
		s.log.Warn().
			Err(err).
			Str("to", observability.MaskAddress(to.String())).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("delivery failed, retrying")
	}

	receipt, err := retry.Execute(ctx, s.policy, onRetry, func(ctx context.Context, attempt int) (*Receipt, error) {
		result.Attempts = attempt + 1
		attemptCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		receipt, err := s.sender.Send(attemptCtx, to, body)
		if err != nil {
			return nil, providerErrors.Classify("gateway", err)
		}
		return receipt, nil
	})
	if err != nil {
		result.Error = providerErrors.Classify("gateway", err)
		observability.SetAttempts(span, result.Attempts)
		observability.RecordError(span, result.Error)
		return result, result.Error
	}

	result.Success = true
	observability.SetAttempts(span, result.Attempts)
	if receipt != nil {
		result.ProviderMessageID = receipt.ProviderMessageID
	}
	return result, nil
}
