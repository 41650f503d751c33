// Package llmprovider calls an OpenAI-compatible chat completion endpoint.
package llmprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	providerErrors "support-relay/internal/domain/errors"
	"support-relay/internal/domain/responder"
)

const providerName = "openai"

// Config selects the model and sampling parameters.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Client implements responder.Completer on go-openai.
type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
	log         zerolog.Logger
}

// NewClient creates a completion client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}

	return &Client{
		api:         openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		log:         log.With().Str("component", "llmprovider").Logger(),
	}
}

// Complete returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req responder.CompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserMessage},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", providerErrors.NewProviderError(providerName, providerErrors.CategoryRejected, "completion returned no choices")
	}

	content := resp.Choices[0].Message.Content
	c.log.Debug().
		Str("model", resp.Model).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("completion received")
	return content, nil
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := fmt.Sprint(apiErr.Code)
		if apiErr.Code == nil {
			code = ""
		}
		// 429 with insufficient_quota will not clear up by retrying
		if code == "insufficient_quota" {
			return providerErrors.NewProviderError(providerName, providerErrors.CategoryQuotaExhausted, apiErr.Message).
				WithStatus(apiErr.HTTPStatusCode, code).WithCause(err)
		}
		return providerErrors.FromStatus(providerName, apiErr.HTTPStatusCode, code, apiErr.Message).WithCause(err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return providerErrors.FromStatus(providerName, reqErr.HTTPStatusCode, "", reqErr.Error()).WithCause(err)
	}

	if errors.Is(err, context.Canceled) {
		return providerErrors.Terminal(providerName, providerErrors.CategoryRejected, err)
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &timeoutErr) && timeoutErr.Timeout()) {
		return providerErrors.Transient(providerName, providerErrors.CategoryTimeout, err)
	}
	return providerErrors.Transient(providerName, providerErrors.CategoryUnavailable, err)
}

var _ responder.Completer = (*Client)(nil)
