// Package notification adapts outbound email and SMS providers behind two
// narrow interfaces. Adapters return an error for any provider failure; the
// caller decides how a failure is recorded.
package notification

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

type Email struct {
	To      string
	Subject string
	Body    string
	HTML    string
}

type SMS struct {
	To   string
	Body string
}

// Receipt identifies an accepted message at the provider.
type Receipt struct {
	MessageID string `json:"messageId,omitempty"`
	Provider  string `json:"provider"`
}

var (
	ErrNoRecipient    = errors.New("recipient is required")
	ErrNotConfigured  = errors.New("provider is not configured")
	ErrProviderFailed = errors.New("provider rejected message")
)

// ---------------------------------------------------------------------------
// Sender Interfaces
// ---------------------------------------------------------------------------

type EmailSender interface {
	SendEmail(ctx context.Context, msg Email) (Receipt, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, msg SMS) (Receipt, error)
}

// textToHTML renders a plain body as minimal HTML for providers that require
// an HTML part.
func textToHTML(body string) string {
	return strings.ReplaceAll(body, "\n", "<br>")
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return "***"
	}
	return addr[:1] + "***" + addr[at:]
}

// MaskPhone keeps the last four digits.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "***"
	}
	return "***" + phone[len(phone)-4:]
}

// ---------------------------------------------------------------------------
// Mock Senders (test doubles)
// ---------------------------------------------------------------------------

// MockEmailSender records calls. Err, when set, is returned from every call;
// Delay simulates a slow provider and honours context cancellation.
type MockEmailSender struct {
	mu    sync.Mutex
	calls []Email
	Err   error
	Delay time.Duration
}

func (m *MockEmailSender) SendEmail(ctx context.Context, msg Email) (Receipt, error) {
	if err := wait(ctx, m.Delay); err != nil {
		return Receipt{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, msg)
	if m.Err != nil {
		return Receipt{}, m.Err
	}
	return Receipt{MessageID: "mock-email-" + strconv.Itoa(len(m.calls)), Provider: "mock"}, nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Email, len(m.calls))
	copy(out, m.calls)
	return out
}

type MockSMSSender struct {
	mu    sync.Mutex
	calls []SMS
	Err   error
	Delay time.Duration
}

func (m *MockSMSSender) SendSMS(ctx context.Context, msg SMS) (Receipt, error) {
	if err := wait(ctx, m.Delay); err != nil {
		return Receipt{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, msg)
	if m.Err != nil {
		return Receipt{}, m.Err
	}
	return Receipt{MessageID: "mock-sms-" + strconv.Itoa(len(m.calls)), Provider: "mock"}, nil
}

func (m *MockSMSSender) Calls() []SMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SMS, len(m.calls))
	copy(out, m.calls)
	return out
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
