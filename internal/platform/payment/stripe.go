package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// The subsets of the stripe-go service clients used here.
type customerAPI interface {
	New(params *stripe.CustomerParams) (*stripe.Customer, error)
	Del(id string, params *stripe.CustomerParams) (*stripe.Customer, error)
}

type subscriptionAPI interface {
	New(params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	Cancel(id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error)
}

type priceAPI interface {
	New(params *stripe.PriceParams) (*stripe.Price, error)
}

type paymentLinkAPI interface {
	New(params *stripe.PaymentLinkParams) (*stripe.PaymentLink, error)
}

type StripeGateway struct {
	customers     customerAPI
	subscriptions subscriptionAPI
	prices        priceAPI
	links         paymentLinkAPI
}

// NewStripeGateway returns a gateway using secretKey. An empty key yields a
// gateway whose every call fails with ErrNotConfigured.
func NewStripeGateway(secretKey string) Gateway {
	if secretKey == "" {
		return unconfigured{}
	}
	api := client.New(secretKey, nil)
	return &StripeGateway{
		customers:     api.Customers,
		subscriptions: api.Subscriptions,
		prices:        api.Prices,
		links:         api.PaymentLinks,
	}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, in CustomerInput) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(in.Email),
		Name:  stripe.String(in.Name),
	}
	params.Context = ctx
	addMetadata(params, in.Metadata)

	c, err := g.customers.New(params)
	if err != nil {
		return "", wrap("create customer", err)
	}
	return c.ID, nil
}

func (g *StripeGateway) DeleteCustomer(ctx context.Context, customerID string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if _, err := g.customers.Del(customerID, params); err != nil {
		return wrap("delete customer", err)
	}
	return nil
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, in SubscriptionInput) (*Subscription, error) {
	if in.PriceID == "" {
		return nil, fmt.Errorf("create subscription: price: %w", ErrNotConfigured)
	}
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(in.CustomerID),
		Items:    []*stripe.SubscriptionItemsParams{{Price: stripe.String(in.PriceID)}},
	}
	if in.TrialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(in.TrialDays)
	}
	params.Context = ctx
	addMetadata(params, in.Metadata)

	s, err := g.subscriptions.New(params)
	if err != nil {
		return nil, wrap("create subscription", err)
	}
	out := &Subscription{ID: s.ID, Status: string(s.Status)}
	if s.TrialEnd > 0 {
		out.TrialEnd = time.Unix(s.TrialEnd, 0).UTC()
	}
	return out, nil
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := g.subscriptions.Cancel(subscriptionID, params); err != nil {
		return wrap("cancel subscription", err)
	}
	return nil
}

func (g *StripeGateway) CreatePaymentLink(ctx context.Context, in PaymentLinkInput) (*PaymentLink, error) {
	cents, err := Cents(in.Amount)
	if err != nil {
		return nil, err
	}
	currency := in.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	priceParams := &stripe.PriceParams{
		Currency:   stripe.String(currency),
		UnitAmount: stripe.Int64(cents),
		ProductData: &stripe.PriceProductDataParams{
			Name: stripe.String(in.Description),
		},
	}
	priceParams.Context = ctx
	addMetadata(priceParams, in.Metadata)

	price, err := g.prices.New(priceParams)
	if err != nil {
		return nil, wrap("create price", err)
	}

	linkParams := &stripe.PaymentLinkParams{
		LineItems: []*stripe.PaymentLinkLineItemParams{
			{Price: stripe.String(price.ID), Quantity: stripe.Int64(1)},
		},
	}
	if in.RedirectURL != "" {
		linkParams.AfterCompletion = &stripe.PaymentLinkAfterCompletionParams{
			Type: stripe.String(string(stripe.PaymentLinkAfterCompletionTypeRedirect)),
			Redirect: &stripe.PaymentLinkAfterCompletionRedirectParams{
				URL: stripe.String(in.RedirectURL),
			},
		}
	}
	linkParams.Context = ctx
	addMetadata(linkParams, in.Metadata)

	link, err := g.links.New(linkParams)
	if err != nil {
		return nil, wrap("create payment link", err)
	}
	return &PaymentLink{ID: link.ID, URL: link.URL, PriceID: price.ID}, nil
}

// metadataParams is satisfied by the resource params types, whose own
// AddMetadata fills their typed Metadata field.
type metadataParams interface {
	AddMetadata(key, value string)
}

func addMetadata(p metadataParams, md map[string]string) {
	for k, v := range md {
		p.AddMetadata(k, v)
	}
}

// wrap prefers the processor's human-readable message over the raw JSON
// error body.
func wrap(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return fmt.Errorf("stripe %s: %s: %w", op, se.Msg, err)
	}
	return fmt.Errorf("stripe %s: %w", op, err)
}

type unconfigured struct{}

func (unconfigured) CreateCustomer(context.Context, CustomerInput) (string, error) {
	return "", ErrNotConfigured
}

func (unconfigured) DeleteCustomer(context.Context, string) error { return ErrNotConfigured }

func (unconfigured) CreateSubscription(context.Context, SubscriptionInput) (*Subscription, error) {
	return nil, ErrNotConfigured
}

func (unconfigured) CancelSubscription(context.Context, string) error { return ErrNotConfigured }

func (unconfigured) CreatePaymentLink(context.Context, PaymentLinkInput) (*PaymentLink, error) {
	return nil, ErrNotConfigured
}
