package responder

import "context"

// CompletionRequest is a single-turn completion: system instructions plus the customer's text.
type CompletionRequest struct {
	SystemPrompt string
	UserMessage  string
}

// Completer is the black-box completion service. Failures are *providerErrors.ProviderError.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}
