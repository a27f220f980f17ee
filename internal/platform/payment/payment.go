// Package payment wraps the card processor used for practice subscriptions
// and client payment links. Callers depend on Gateway; StripeGateway is the
// production implementation and MockGateway the test double.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type CustomerInput struct {
	Email    string
	Name     string
	Metadata map[string]string
}

type SubscriptionInput struct {
	CustomerID string
	PriceID    string
	TrialDays  int64
	Metadata   map[string]string
}

type Subscription struct {
	ID       string    `json:"id"`
	Status   string    `json:"status"`
	TrialEnd time.Time `json:"trial_end,omitempty"`
}

// PaymentLinkInput describes a one-off charge. Amount is in dollars.
type PaymentLinkInput struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	RedirectURL string
	Metadata    map[string]string
}

type PaymentLink struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	PriceID string `json:"price_id"`
}

type Gateway interface {
	CreateCustomer(ctx context.Context, in CustomerInput) (string, error)
	DeleteCustomer(ctx context.Context, customerID string) error
	CreateSubscription(ctx context.Context, in SubscriptionInput) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	// CreatePaymentLink creates a single-use price for the amount and a
	// hosted payment page selling it.
	CreatePaymentLink(ctx context.Context, in PaymentLinkInput) (*PaymentLink, error)
}

var (
	ErrNotConfigured = errors.New("payment provider is not configured")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

// Cents converts a dollar amount to the smallest currency unit, rounding
// half away from zero.
func Cents(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}
	c := amount.Shift(2).Round(0)
	if !c.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return c.IntPart(), nil
}

// ---------------------------------------------------------------------------
// Mock Gateway (test double)
// ---------------------------------------------------------------------------

// MockGateway records every call. The *Err fields, when set, are returned
// from the matching operation.
type MockGateway struct {
	mu sync.Mutex

	CustomerErr     error
	SubscriptionErr error
	LinkErr         error

	Customers             []CustomerInput
	DeletedCustomers      []string
	Subscriptions         []SubscriptionInput
	CanceledSubscriptions []string
	Links                 []PaymentLinkInput
}

func (m *MockGateway) CreateCustomer(_ context.Context, in CustomerInput) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CustomerErr != nil {
		return "", m.CustomerErr
	}
	m.Customers = append(m.Customers, in)
	return "cus_mock" + strconv.Itoa(len(m.Customers)), nil
}

func (m *MockGateway) DeleteCustomer(_ context.Context, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeletedCustomers = append(m.DeletedCustomers, customerID)
	return nil
}

func (m *MockGateway) CreateSubscription(_ context.Context, in SubscriptionInput) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubscriptionErr != nil {
		return nil, m.SubscriptionErr
	}
	m.Subscriptions = append(m.Subscriptions, in)
	sub := &Subscription{ID: "sub_mock" + strconv.Itoa(len(m.Subscriptions)), Status: "active"}
	if in.TrialDays > 0 {
		sub.Status = "trialing"
		sub.TrialEnd = time.Now().Add(time.Duration(in.TrialDays) * 24 * time.Hour).UTC().Truncate(time.Second)
	}
	return sub, nil
}

func (m *MockGateway) CancelSubscription(_ context.Context, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CanceledSubscriptions = append(m.CanceledSubscriptions, subscriptionID)
	return nil
}

func (m *MockGateway) CreatePaymentLink(_ context.Context, in PaymentLinkInput) (*PaymentLink, error) {
	if _, err := Cents(in.Amount); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LinkErr != nil {
		return nil, m.LinkErr
	}
	m.Links = append(m.Links, in)
	n := strconv.Itoa(len(m.Links))
	return &PaymentLink{
		ID:      "plink_mock" + n,
		URL:     fmt.Sprintf("https://buy.stripe.com/test_mock%s", n),
		PriceID: "price_mock" + n,
	}, nil
}
