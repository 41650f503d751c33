package twilio_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-relay/internal/domain/conversation"
	providerErrors "support-relay/internal/domain/errors"
	"support-relay/internal/infrastructure/twilio"
)

var customer = conversation.ChannelAddress{Channel: conversation.ChannelWhatsApp, Address: "whatsapp:+50212345678"}

func newClient(url string) *twilio.Client {
	return twilio.NewClient(twilio.Config{
		BaseURL:        url,
		AccountSID:     "AC123",
		AuthToken:      "token",
		WhatsAppNumber: "+14155238886",
		Timeout:        time.Second,
	}, zerolog.Nop())
}

func TestSend_PostsFormWithBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "token", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "whatsapp:+14155238886", r.PostForm.Get("From"))
		assert.Equal(t, "whatsapp:+50212345678", r.PostForm.Get("To"))
		assert.Equal(t, "hola", r.PostForm.Get("Body"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM42","status":"queued"}`))
	}))
	defer srv.Close()

	receipt, err := newClient(srv.URL).Send(context.Background(), customer, "hola")
	require.NoError(t, err)
	assert.Equal(t, "SM42", receipt.ProviderMessageID)
	assert.Equal(t, "queued", receipt.Status)
}

func TestSend_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		category  providerErrors.Category
		retryable bool
	}{
		{"invalid number", 400, `{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`, providerErrors.CategoryInvalidDestination, false},
		{"rate limited", 429, `{"code":20429,"message":"Too Many Requests","status":429}`, providerErrors.CategoryRateLimited, true},
		{"server error", 503, `{"message":"unavailable"}`, providerErrors.CategoryUnavailable, true},
		{"bad credentials", 401, `{"code":20003,"message":"Authenticate","status":401}`, providerErrors.CategoryUnauthorized, false},
		{"other rejection", 400, `{"code":21610,"message":"unsubscribed recipient","status":400}`, providerErrors.CategoryRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newClient(srv.URL).Send(context.Background(), customer, "hola")
			require.Error(t, err)
			assert.Equal(t, tt.category, providerErrors.CategoryOf(err))
			assert.Equal(t, tt.retryable, providerErrors.IsRetryable(err))
		})
	}
}

func TestSend_UnreachableGatewayIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newClient(url).Send(context.Background(), customer, "hola")
	require.Error(t, err)
	assert.True(t, providerErrors.IsRetryable(err))
}

func TestSend_RejectsNonWhatsAppAddress(t *testing.T) {
	_, err := newClient("http://unused").Send(context.Background(),
		conversation.ChannelAddress{Channel: conversation.ChannelWeb, Address: "session-1"}, "hola")
	assert.Equal(t, providerErrors.CategoryInvalidDestination, providerErrors.CategoryOf(err))
}
