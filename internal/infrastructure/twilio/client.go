// Package twilio delivers outbound WhatsApp messages through the Twilio REST API.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"support-relay/internal/domain/conversation"
	"support-relay/internal/domain/delivery"
	providerErrors "support-relay/internal/domain/errors"
	"support-relay/internal/infrastructure/observability"
)

const providerName = "twilio"

// Twilio error codes that identify an unusable destination.
var invalidDestinationCodes = map[int]struct{}{
	21211: {}, // invalid 'To' number
	21614: {}, // 'To' number is not a valid mobile number
	63003: {}, // channel could not find To address
}

// Config holds the account credentials and sender number.
type Config struct {
	BaseURL        string
	AccountSID     string
	AuthToken      string
	WhatsAppNumber string
	Timeout        time.Duration
}

// Client implements delivery.Sender.
type Client struct {
	httpClient *resty.Client
	accountSID string
	from       string
	log        zerolog.Logger
}

type messageResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type errorResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// NewClient creates a Resty-backed Twilio client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	from := cfg.WhatsAppNumber
	if addr, err := conversation.ParseWhatsAppAddress(from); err == nil {
		from = addr.Address
	}

	return &Client{
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
			SetTimeout(timeout),
		accountSID: cfg.AccountSID,
		from:       from,
		log:        log.With().Str("component", "twilio").Logger(),
	}
}

// Send posts a message to the customer's WhatsApp address.
func (c *Client) Send(ctx context.Context, to conversation.ChannelAddress, body string) (*delivery.Receipt, error) {
	if to.Channel != conversation.ChannelWhatsApp {
		return nil, providerErrors.NewProviderError(providerName, providerErrors.CategoryInvalidDestination,
			fmt.Sprintf("channel %s is not served by twilio", to.Channel))
	}

	var result messageResponse
	var apiErr errorResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"From": c.from,
			"To":   to.Address,
			"Body": body,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", c.accountSID))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.IsError() {
		pe := classifyResponse(resp.StatusCode(), apiErr)
		c.log.Warn().
			Int("status", resp.StatusCode()).
			Int("code", apiErr.Code).
			Str("category", string(pe.Category)).
			Str("to", observability.MaskAddress(to.String())).
			Msg("twilio rejected message")
		return nil, pe
	}

	c.log.Debug().Str("sid", result.SID).Str("to", observability.MaskAddress(to.String())).Msg("message queued")
	return &delivery.Receipt{ProviderMessageID: result.SID, Status: result.Status}, nil
}

func classifyResponse(status int, apiErr errorResponse) *providerErrors.ProviderError {
	message := apiErr.Message
	if message == "" {
		message = http.StatusText(status)
	}
	code := ""
	if apiErr.Code != 0 {
		code = strconv.Itoa(apiErr.Code)
	}
	if _, ok := invalidDestinationCodes[apiErr.Code]; ok {
		return providerErrors.NewProviderError(providerName, providerErrors.CategoryInvalidDestination, message).
			WithStatus(status, code)
	}
	return providerErrors.FromStatus(providerName, status, code, message)
}

func classifyTransportError(err error) *providerErrors.ProviderError {
	if errors.Is(err, context.Canceled) {
		return providerErrors.Terminal(providerName, providerErrors.CategoryRejected, err)
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &timeoutErr) && timeoutErr.Timeout()) {
		return providerErrors.Transient(providerName, providerErrors.CategoryTimeout, err)
	}
	// connection refused, reset, DNS: the gateway is unreachable for now
	return providerErrors.Transient(providerName, providerErrors.CategoryUnavailable, err)
}

var _ delivery.Sender = (*Client)(nil)
