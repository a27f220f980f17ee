package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sessionably/practice/internal/domain/notify"
	"github.com/sessionably/practice/internal/platform/apperr"
)

// SendVia selects the channels a payment request goes out on.
type SendVia string

const (
	SendEmail SendVia = "email"
	SendSMS   SendVia = "sms"
	SendBoth  SendVia = "both"
)

func (s SendVia) Channels() []notify.Channel {
	switch s {
	case SendEmail:
		return []notify.Channel{notify.ChannelEmail}
	case SendSMS:
		return []notify.Channel{notify.ChannelSMS}
	case SendBoth:
		return []notify.Channel{notify.ChannelEmail, notify.ChannelSMS}
	}
	return nil
}

const DefaultExpiryDays = 30

// PaymentLinkRequest asks for a hosted payment page for an invoice.
type PaymentLinkRequest struct {
	InvoiceID   string          `json:"invoice_id"`
	ClientID    string          `json:"client_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	SendVia     SendVia         `json:"send_via"`
	DueDate     string          `json:"due_date,omitempty"`
	ExpiryDays  int             `json:"expiry_days,omitempty"`
}

// Validate returns the parsed invoice and client ids.
func (r *PaymentLinkRequest) Validate() (invoiceID, clientID uuid.UUID, err error) {
	r.Description = strings.TrimSpace(r.Description)
	r.SendVia = SendVia(strings.ToLower(strings.TrimSpace(string(r.SendVia))))
	switch {
	case r.InvoiceID == "" || r.ClientID == "" || r.Description == "" || r.SendVia == "":
		return uuid.Nil, uuid.Nil, apperr.Validation("",
			"Missing required fields: invoice_id, client_id, amount, description, send_via")
	case !r.Amount.IsPositive():
		return uuid.Nil, uuid.Nil, apperr.Validation("amount", "Amount must be a positive number")
	case r.SendVia.Channels() == nil:
		return uuid.Nil, uuid.Nil, apperr.Validation("send_via", `send_via must be "email", "sms" or "both"`)
	case r.ExpiryDays < 0:
		return uuid.Nil, uuid.Nil, apperr.Validation("expiry_days", "expiry_days must be positive")
	}
	if r.ExpiryDays == 0 {
		r.ExpiryDays = DefaultExpiryDays
	}
	if r.DueDate != "" {
		if _, perr := time.Parse("2006-01-02", r.DueDate); perr != nil {
			return uuid.Nil, uuid.Nil, apperr.Validation("due_date", "due_date must be YYYY-MM-DD")
		}
	}
	if invoiceID, err = uuid.Parse(r.InvoiceID); err != nil {
		return uuid.Nil, uuid.Nil, apperr.Validation("invoice_id", "invoice_id must be a UUID")
	}
	if clientID, err = uuid.Parse(r.ClientID); err != nil {
		return uuid.Nil, uuid.Nil, apperr.Validation("client_id", "client_id must be a UUID")
	}
	return invoiceID, clientID, nil
}

// Client is the billing view of a clients row.
type Client struct {
	ID               uuid.UUID
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	StripeCustomerID string
}

func (c *Client) Name() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Invoice struct {
	ID                   uuid.UUID       `json:"invoice_id"`
	ClientID             uuid.UUID       `json:"client_id"`
	InvoiceNumber        string          `json:"invoice_number"`
	Amount               decimal.Decimal `json:"amount"`
	Status               string          `json:"status"`
	DueDate              *time.Time      `json:"due_date,omitempty"`
	PaymentLink          string          `json:"payment_link,omitempty"`
	PaymentLinkID        string          `json:"payment_link_id,omitempty"`
	PaymentLinkCreatedAt *time.Time      `json:"payment_link_created_at,omitempty"`
}

// Number is what the client sees on the request.
func (i *Invoice) Number() string {
	if i.InvoiceNumber != "" {
		return i.InvoiceNumber
	}
	return i.ID.String()
}

type PaymentLinkResult struct {
	PaymentLink      string         `json:"payment_link"`
	PaymentLinkID    string         `json:"payment_link_id"`
	StripeCustomerID string         `json:"stripe_customer_id"`
	SentVia          SendVia        `json:"sent_via"`
	Delivery         notify.Outcome `json:"delivery"`
	Message          string         `json:"message"`
}
