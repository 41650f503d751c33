// Package responder decides what the automated assistant says back to a customer.
package responder

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"support-relay/internal/domain/conversation"
	providerErrors "support-relay/internal/domain/errors"
	"support-relay/internal/domain/retry"
	"support-relay/internal/infrastructure/observability"
)

// Reply is the text to send and the reason it was produced.
type Reply struct {
	Content  string
	Intent   conversation.Intent
	Attempts int
	Err      error // last completion failure when Intent is fallback
}

// Config controls escalation and fallback behavior.
type Config struct {
	EscalationKeywords []string
	EscalationReply    string
	FallbackReply      string
	SystemPrompt       string
	Timeout            time.Duration
	Policy             retry.Policy
}

// Responder produces AI replies and hand-off acknowledgements.
type Responder struct {
	completer Completer
	cfg       Config
	keywords  []string
	log       zerolog.Logger
}

// New creates a Responder. Keywords are matched lower-cased.
func New(completer Completer, cfg Config, log zerolog.Logger) *Responder {
	keywords := make([]string, 0, len(cfg.EscalationKeywords))
	for _, kw := range cfg.EscalationKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if cfg.Policy.MaxAttempts <= 0 {
		cfg.Policy = retry.DefaultPolicy()
	}
	return &Responder{
		completer: completer,
		cfg:       cfg,
		keywords:  keywords,
		log:       log.With().Str("component", "responder").Logger(),
	}
}

// WantsHuman reports whether text contains any escalation keyword (case-insensitive substring).
func (r *Responder) WantsHuman(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range r.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// EscalationReply returns the acknowledgement sent when the customer asks for a human.
func (r *Responder) EscalationReply() Reply {
	return Reply{Content: r.cfg.EscalationReply, Intent: conversation.IntentEscalation}
}

// Generate asks the completion service for a reply. It never fails: when every
// attempt fails, or the service answers with empty text, the fallback reply is returned.
func (r *Responder) Generate(ctx context.Context, text string) Reply {
	ctx, span := observability.StartProviderSpan(ctx, "completion", "generate")
	defer span.End()

	attempts := 0
	onRetry := func(attempt int, err error, delay time.Duration) {
		r.log.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("completion failed, retrying")
	}

	content, err := retry.Execute(ctx, r.cfg.Policy, onRetry, func(ctx context.Context, attempt int) (string, error) {
		attempts = attempt + 1
		callCtx := ctx
		if r.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
			defer cancel()
		}
		out, err := r.completer.Complete(callCtx, CompletionRequest{
			SystemPrompt: r.cfg.SystemPrompt,
			UserMessage:  text,
		})
		if err != nil {
			return "", providerErrors.Classify("completion", err)
		}
		return out, nil
	})

	observability.SetAttempts(span, attempts)
	content = strings.TrimSpace(content)
	if err == nil && content != "" {
		return Reply{Content: content, Intent: conversation.IntentAIReply, Attempts: attempts}
	}
	if err == nil {
		err = providerErrors.NewProviderError("completion", providerErrors.CategoryRejected, "empty completion")
	}

	observability.RecordError(span, err)
	r.log.Error().Err(err).Int("attempts", attempts).Msg("completion unavailable, using fallback reply")
	return Reply{Content: r.cfg.FallbackReply, Intent: conversation.IntentFallback, Attempts: attempts, Err: err}
}
