package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sessionably/practice/internal/domain/notify"
	"github.com/sessionably/practice/internal/platform/apperr"
	"github.com/sessionably/practice/internal/platform/metrics"
	"github.com/sessionably/practice/internal/platform/payment"
)

// Notifier sends a named notification template to a client.
type Notifier interface {
	SendTemplate(ctx context.Context, clientID uuid.UUID, name string, data notify.Data, opts notify.SendOptions) (*notify.SendResult, error)
}

type Service struct {
	repo     Repository
	payments payment.Gateway
	notifier Notifier
	appURL   string
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, payments payment.Gateway, notifier Notifier, appURL string, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		payments: payments,
		notifier: notifier,
		appURL:   strings.TrimRight(appURL, "/"),
		logger:   logger.With().Str("component", "billing").Logger(),
		now:      time.Now,
	}
}

// RedirectURL is where the hosted payment page sends the client afterwards.
func (s *Service) RedirectURL() string {
	return s.appURL + "/client-portal#payment-success"
}

// CreatePaymentLink creates a hosted payment page for an invoice, stores it on
// the invoice and sends it to the client. Delivery problems are reported in
// the result and do not fail the call.
func (s *Service) CreatePaymentLink(ctx context.Context, req *PaymentLinkRequest) (*PaymentLinkResult, error) {
	invoiceID, clientID, err := req.Validate()
	if err != nil {
		return nil, err
	}

	client, err := s.repo.GetClient(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("client")
	}
	if err != nil {
		return nil, err
	}
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("invoice")
	}
	if err != nil {
		return nil, err
	}
	if inv.ClientID != clientID {
		return nil, apperr.Validation("invoice_id", "invoice does not belong to this client")
	}

	log := s.logger.With().Str("client_id", clientID.String()).Str("invoice_id", invoiceID.String()).Logger()

	customerID, err := s.ensureCustomer(ctx, client)
	if err != nil {
		metrics.PaymentLinks.WithLabelValues("failed").Inc()
		return nil, err
	}

	link, err := s.payments.CreatePaymentLink(ctx, payment.PaymentLinkInput{
		Amount:      req.Amount,
		Currency:    "usd",
		Description: req.Description,
		RedirectURL: s.RedirectURL(),
		Metadata: map[string]string{
			"invoice_id":  invoiceID.String(),
			"client_id":   clientID.String(),
			"client_name": client.Name(),
		},
	})
	if err != nil {
		metrics.PaymentLinks.WithLabelValues("failed").Inc()
		if errors.Is(err, payment.ErrInvalidAmount) {
			return nil, apperr.Validation("amount", "Amount must be a positive number")
		}
		log.Error().Err(err).Msg("payment link creation failed")
		return nil, apperr.Upstream("Unable to create payment link", err)
	}

	if err := s.repo.SetPaymentLink(ctx, invoiceID, link.URL, link.ID, s.now().UTC()); err != nil {
		log.Error().Err(err).Str("payment_link_id", link.ID).Msg("failed to store payment link")
		return nil, apperr.Internal("store payment link", err)
	}
	metrics.PaymentLinks.WithLabelValues("created").Inc()
	log.Info().Str("payment_link_id", link.ID).Str("amount", req.Amount.StringFixed(2)).Msg("payment link created")

	delivery := s.sendRequest(ctx, req, client, inv, link)
	msg := "Payment link created and sent to client"
	if !delivery.Success {
		msg = "Payment link created but could not be delivered"
	}
	return &PaymentLinkResult{
		PaymentLink:      link.URL,
		PaymentLinkID:    link.ID,
		StripeCustomerID: customerID,
		SentVia:          req.SendVia,
		Delivery:         delivery,
		Message:          msg,
	}, nil
}

func (s *Service) ensureCustomer(ctx context.Context, c *Client) (string, error) {
	if c.StripeCustomerID != "" {
		return c.StripeCustomerID, nil
	}
	id, err := s.payments.CreateCustomer(ctx, payment.CustomerInput{
		Email: c.Email,
		Name:  c.Name(),
		Metadata: map[string]string{
			"client_id": c.ID.String(),
			"source":    "Sessionably",
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("client_id", c.ID.String()).Msg("payment customer creation failed")
		return "", apperr.Upstream("Unable to create payment profile", err)
	}
	if err := s.repo.SetStripeCustomer(ctx, c.ID, id); err != nil {
		return "", apperr.Internal("store payment customer", err)
	}
	c.StripeCustomerID = id
	return id, nil
}

func (s *Service) sendRequest(ctx context.Context, req *PaymentLinkRequest, c *Client, inv *Invoice, link *payment.PaymentLink) notify.Outcome {
	data := notify.Data{
		"client_name": c.Name(),
		"invoice_id":  inv.Number(),
		"amount":      req.Amount,
		"payment_url": link.URL,
		"description": req.Description,
		"expiry_days": req.ExpiryDays,
	}
	if req.DueDate != "" {
		data["due_date"] = req.DueDate
	}
	res, err := s.notifier.SendTemplate(ctx, c.ID, notify.TemplatePaymentRequest, data, notify.SendOptions{
		Channels: req.SendVia.Channels(),
		Direct:   true,
		Related:  &notify.RelatedEntity{Type: "invoice", ID: inv.ID.String()},
		Metadata: map[string]any{
			"invoice_id":   inv.ID.String(),
			"amount":       req.Amount.StringFixed(2),
			"payment_link": link.URL,
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("payment request not sent")
		return notify.Outcome{Message: err.Error()}
	}
	return res.Outcome
}

// PaymentLink returns the invoice carrying its stored payment link.
func (s *Service) PaymentLink(ctx context.Context, invoiceID uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("invoice")
	}
	if err != nil {
		return nil, err
	}
	if inv.PaymentLink == "" {
		return nil, apperr.NotFound("payment link")
	}
	return inv, nil
}
