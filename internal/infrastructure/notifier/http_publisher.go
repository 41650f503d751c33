package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"support-relay/internal/domain/notify"
	"support-relay/internal/interfaces/httpserver/requests"
)

// InternalTokenHeader carries the shared secret of the internal notification API.
const InternalTokenHeader = "X-Internal-Token"

// HTTPPublisher forwards events to the process hosting the hub through the internal API.
type HTTPPublisher struct {
	client *resty.Client
	log    zerolog.Logger
}

// NewHTTPPublisher creates a Resty-backed publisher.
func NewHTTPPublisher(baseURL, token string, timeout time.Duration, log zerolog.Logger) *HTTPPublisher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if token != "" {
		client.SetHeader(InternalTokenHeader, token)
	}
	return &HTTPPublisher{
		client: client,
		log:    log.With().Str("component", "http-publisher").Logger(),
	}
}

// Publish posts the event to the matching internal endpoint.
func (p *HTTPPublisher) Publish(ctx context.Context, event notify.Event) error {
	var (
		path string
		body any
	)
	switch event.Type {
	case notify.EventNewMessage:
		path = "/internal/notify-message"
		body = requests.NotifyMessageRequest{ConversationID: event.ConversationID, Message: event.Data}
	case notify.EventStatusChanged:
		status, err := event.DecodeStatus()
		if err != nil {
			return err
		}
		path = "/internal/notify-status"
		body = requests.NotifyStatusRequest{ConversationID: event.ConversationID, Status: status}
	default:
		return fmt.Errorf("unsupported event type %q", event.Type)
	}

	resp, err := p.client.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return fmt.Errorf("notify %s: %w", event.Type, err)
	}
	if resp.IsError() {
		return fmt.Errorf("notify %s: status %d: %s", event.Type, resp.StatusCode(), resp.String())
	}
	return nil
}

var _ notify.Publisher = (*HTTPPublisher)(nil)
