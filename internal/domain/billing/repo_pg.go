package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sessionably/practice/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) GetClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	var c Client
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, first_name, last_name, COALESCE(email, ''), COALESCE(phone, ''),
			COALESCE(stripe_customer_id, '')
		FROM clients WHERE id = $1`, id).
		Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.StripeCustomerID)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) SetStripeCustomer(ctx context.Context, clientID uuid.UUID, customerID string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE clients SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2`,
		customerID, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	var inv Invoice
	var amount string
	var link, linkID *string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, client_id, invoice_number, amount::text, status, due_date,
			stripe_payment_link, stripe_payment_link_id, stripe_payment_link_created_at
		FROM invoices WHERE id = $1`, id).
		Scan(&inv.ID, &inv.ClientID, &inv.InvoiceNumber, &amount, &inv.Status, &inv.DueDate,
			&link, &linkID, &inv.PaymentLinkCreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if inv.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	if link != nil {
		inv.PaymentLink = *link
	}
	if linkID != nil {
		inv.PaymentLinkID = *linkID
	}
	return &inv, nil
}

func (r *repoPG) SetPaymentLink(ctx context.Context, invoiceID uuid.UUID, url, linkID string, at time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE invoices
		SET stripe_payment_link = $1, stripe_payment_link_id = $2, stripe_payment_link_created_at = $3
		WHERE id = $4`,
		url, linkID, at, invoiceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
