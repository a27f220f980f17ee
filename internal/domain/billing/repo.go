package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	GetClient(ctx context.Context, id uuid.UUID) (*Client, error)
	SetStripeCustomer(ctx context.Context, clientID uuid.UUID, customerID string) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	SetPaymentLink(ctx context.Context, invoiceID uuid.UUID, url, linkID string, at time.Time) error
}
