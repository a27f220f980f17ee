package notify

import (
	"time"

	"github.com/google/uuid"
)

// Channel is a delivery medium.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelNone  Channel = "none"
)

// Status is the delivery state recorded on a log entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Skip reasons stored in LogEntry metadata.
const (
	ReasonQuietHours = "quiet_hours"
)

// CategorySystem tags log entries that record a gate decision rather than a
// channel attempt.
const CategorySystem = "system"

// ContactPreferences is the per-client notification settings record.
// QuietHoursStart and QuietHoursEnd hold "HH:MM" wall-clock times; an empty
// string means unset.
type ContactPreferences struct {
	ClientID uuid.UUID `json:"client_id"`

	EmailNotifications bool `json:"email_notifications"`
	SMSNotifications   bool `json:"sms_notifications"`

	EmailAppointmentReminders     bool `json:"email_appointment_reminders"`
	EmailAppointmentConfirmations bool `json:"email_appointment_confirmations"`
	EmailInvoiceReminders         bool `json:"email_invoice_reminders"`
	EmailPaymentReceipts          bool `json:"email_payment_receipts"`
	EmailDocumentUpdates          bool `json:"email_document_updates"`
	EmailMarketing                bool `json:"email_marketing"`

	SMSAppointmentReminders     bool `json:"sms_appointment_reminders"`
	SMSAppointmentConfirmations bool `json:"sms_appointment_confirmations"`
	SMSInvoiceReminders         bool `json:"sms_invoice_reminders"`
	SMSPaymentReceipts          bool `json:"sms_payment_receipts"`
	SMSDocumentUpdates          bool `json:"sms_document_updates"`
	SMSMarketing                bool `json:"sms_marketing"`

	PreferredContactMethod Channel `json:"preferred_contact_method"`
	QuietHoursEnabled      bool    `json:"quiet_hours_enabled"`
	QuietHoursStart        string  `json:"quiet_hours_start"`
	QuietHoursEnd          string  `json:"quiet_hours_end"`
	Timezone               string  `json:"timezone"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

const DefaultTimezone = "America/New_York"

// DefaultPreferences returns the settings provisioned with a new client
// account: email on for everything except marketing, SMS off.
func DefaultPreferences(clientID uuid.UUID) *ContactPreferences {
	return &ContactPreferences{
		ClientID:                      clientID,
		EmailNotifications:            true,
		EmailAppointmentReminders:     true,
		EmailAppointmentConfirmations: true,
		EmailInvoiceReminders:         true,
		EmailPaymentReceipts:          true,
		EmailDocumentUpdates:          true,
		PreferredContactMethod:        ChannelEmail,
		Timezone:                      DefaultTimezone,
	}
}

// Contact is where a client can be reached. Either field may be empty.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// RelatedEntity points a log entry at whatever triggered it.
type RelatedEntity struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// LogEntry is one row of the append-only notification log.
type LogEntry struct {
	ID                   int64          `json:"id"`
	ClientID             uuid.UUID      `json:"client_id"`
	NotificationType     string         `json:"notification_type"`
	NotificationCategory string         `json:"notification_category"`
	Subject              string         `json:"subject"`
	Message              string         `json:"message"`
	DeliveryMethod       Channel        `json:"delivery_method"`
	RecipientEmail       string         `json:"recipient_email,omitempty"`
	RecipientPhone       string         `json:"recipient_phone,omitempty"`
	Status               Status         `json:"status"`
	SentAt               *time.Time     `json:"sent_at,omitempty"`
	DeliveredAt          *time.Time     `json:"delivered_at,omitempty"`
	OpenedAt             *time.Time     `json:"opened_at,omitempty"`
	ClickedAt            *time.Time     `json:"clicked_at,omitempty"`
	FailedAt             *time.Time     `json:"failed_at,omitempty"`
	Related              *RelatedEntity `json:"related_entity,omitempty"`
	Metadata             map[string]any `json:"metadata"`
	CreatedAt            time.Time      `json:"created_at"`
}

// Branding is the practice information injected into every message.
type Branding struct {
	PracticeName string `json:"practice_name"`
	Phone        string `json:"practice_phone"`
	Email        string `json:"practice_email"`
	Website      string `json:"practice_website"`
}

const defaultPracticeName = "Your Practice"

func (b Branding) Name() string {
	if b.PracticeName == "" {
		return defaultPracticeName
	}
	return b.PracticeName
}

// ClientRecord is the subset of a client row the notification engine needs.
type ClientRecord struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Contact Contact
}

// Appointment is an upcoming session that may need a reminder.
type Appointment struct {
	ID             uuid.UUID
	ClientID       uuid.UUID
	StartsAt       time.Time
	Duration       int
	Type           string
	Modality       string
	TelehealthLink string
}
