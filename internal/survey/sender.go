package survey

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cardion-health/precert/internal/shared/config"
)

// Sender delivers an outbound SMS to a single recipient.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// HTTPSender sends messages through a Twilio-style REST API.
type HTTPSender struct {
	cfg    config.SMSConfig
	client *http.Client
	log    *zap.Logger
}

// NewHTTPSender creates an SMS sender from config
func NewHTTPSender(cfg config.SMSConfig, log *zap.Logger) *HTTPSender {
	return &HTTPSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log,
	}
}

// Send posts one message to the provider's Messages endpoint.
func (s *HTTPSender) Send(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.AccountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.cfg.FromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		s.log.Warn("sms provider rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(payload)))
		return fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}

	return nil
}

// MockSender records messages instead of delivering them. Used in tests
// and when SMS is disabled in config.
type MockSender struct {
	mu       sync.Mutex
	Messages []MockMessage
}

// MockMessage is one captured outbound message
type MockMessage struct {
	To   string
	Body string
}

// NewMockSender creates a capturing sender
func NewMockSender() *MockSender {
	return &MockSender{}
}

// Send captures the message
func (m *MockSender) Send(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, MockMessage{To: to, Body: body})
	return nil
}

// Sent returns a copy of all captured messages
func (m *MockSender) Sent() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockMessage, len(m.Messages))
	copy(out, m.Messages)
	return out
}
