package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sessionably/practice/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

// =========== Preferences ===========

const prefCols = `client_id, email_notifications, sms_notifications,
	email_appointment_reminders, email_appointment_confirmations, email_invoice_reminders,
	email_payment_receipts, email_document_updates, email_marketing,
	sms_appointment_reminders, sms_appointment_confirmations, sms_invoice_reminders,
	sms_payment_receipts, sms_document_updates, sms_marketing,
	preferred_contact_method, quiet_hours_enabled,
	COALESCE(quiet_hours_start, ''), COALESCE(quiet_hours_end, ''), timezone, updated_at`

func (r *repoPG) GetPreferences(ctx context.Context, clientID uuid.UUID) (*ContactPreferences, error) {
	var p ContactPreferences
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+prefCols+` FROM client_notification_settings WHERE client_id = $1`, clientID).Scan(
		&p.ClientID, &p.EmailNotifications, &p.SMSNotifications,
		&p.EmailAppointmentReminders, &p.EmailAppointmentConfirmations, &p.EmailInvoiceReminders,
		&p.EmailPaymentReceipts, &p.EmailDocumentUpdates, &p.EmailMarketing,
		&p.SMSAppointmentReminders, &p.SMSAppointmentConfirmations, &p.SMSInvoiceReminders,
		&p.SMSPaymentReceipts, &p.SMSDocumentUpdates, &p.SMSMarketing,
		&p.PreferredContactMethod, &p.QuietHoursEnabled,
		&p.QuietHoursStart, &p.QuietHoursEnd, &p.Timezone, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return &p, nil
}

func (r *repoPG) SavePreferences(ctx context.Context, p *ContactPreferences) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO client_notification_settings (client_id,
			email_notifications, sms_notifications,
			email_appointment_reminders, email_appointment_confirmations, email_invoice_reminders,
			email_payment_receipts, email_document_updates, email_marketing,
			sms_appointment_reminders, sms_appointment_confirmations, sms_invoice_reminders,
			sms_payment_receipts, sms_document_updates, sms_marketing,
			preferred_contact_method, quiet_hours_enabled, quiet_hours_start, quiet_hours_end, timezone)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,NULLIF($18,''),NULLIF($19,''),$20)
		ON CONFLICT (client_id) DO UPDATE SET
			email_notifications = EXCLUDED.email_notifications,
			sms_notifications = EXCLUDED.sms_notifications,
			email_appointment_reminders = EXCLUDED.email_appointment_reminders,
			email_appointment_confirmations = EXCLUDED.email_appointment_confirmations,
			email_invoice_reminders = EXCLUDED.email_invoice_reminders,
			email_payment_receipts = EXCLUDED.email_payment_receipts,
			email_document_updates = EXCLUDED.email_document_updates,
			email_marketing = EXCLUDED.email_marketing,
			sms_appointment_reminders = EXCLUDED.sms_appointment_reminders,
			sms_appointment_confirmations = EXCLUDED.sms_appointment_confirmations,
			sms_invoice_reminders = EXCLUDED.sms_invoice_reminders,
			sms_payment_receipts = EXCLUDED.sms_payment_receipts,
			sms_document_updates = EXCLUDED.sms_document_updates,
			sms_marketing = EXCLUDED.sms_marketing,
			preferred_contact_method = EXCLUDED.preferred_contact_method,
			quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			timezone = EXCLUDED.timezone,
			updated_at = NOW()
		RETURNING updated_at`,
		p.ClientID,
		p.EmailNotifications, p.SMSNotifications,
		p.EmailAppointmentReminders, p.EmailAppointmentConfirmations, p.EmailInvoiceReminders,
		p.EmailPaymentReceipts, p.EmailDocumentUpdates, p.EmailMarketing,
		p.SMSAppointmentReminders, p.SMSAppointmentConfirmations, p.SMSInvoiceReminders,
		p.SMSPaymentReceipts, p.SMSDocumentUpdates, p.SMSMarketing,
		p.PreferredContactMethod, p.QuietHoursEnabled, p.QuietHoursStart, p.QuietHoursEnd, p.Timezone,
	).Scan(&p.UpdatedAt)
}

func (r *repoPG) InsertDefaultPreferences(ctx context.Context, clientID uuid.UUID) error {
	p := DefaultPreferences(clientID)
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO client_notification_settings (client_id,
			email_notifications, sms_notifications,
			email_appointment_reminders, email_appointment_confirmations, email_invoice_reminders,
			email_payment_receipts, email_document_updates, email_marketing,
			preferred_contact_method, quiet_hours_enabled, timezone)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (client_id) DO NOTHING`,
		p.ClientID,
		p.EmailNotifications, p.SMSNotifications,
		p.EmailAppointmentReminders, p.EmailAppointmentConfirmations, p.EmailInvoiceReminders,
		p.EmailPaymentReceipts, p.EmailDocumentUpdates, p.EmailMarketing,
		p.PreferredContactMethod, p.QuietHoursEnabled, p.Timezone)
	return err
}

// =========== Notification Log ===========

const logCols = `id, client_id, notification_type, notification_category,
	COALESCE(subject, ''), COALESCE(message, ''), delivery_method,
	COALESCE(recipient_email, ''), COALESCE(recipient_phone, ''), status,
	sent_at, delivered_at, opened_at, clicked_at, failed_at,
	COALESCE(related_entity_type, ''), COALESCE(related_entity_id, ''), metadata, created_at`

func (r *repoPG) InsertLog(ctx context.Context, e *LogEntry) error {
	meta, err := json.Marshal(nonNilMeta(e.Metadata))
	if err != nil {
		return fmt.Errorf("encode log metadata: %w", err)
	}
	var relType, relID *string
	if e.Related != nil {
		relType, relID = &e.Related.Type, &e.Related.ID
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO notification_log (client_id, notification_type, notification_category,
			subject, message, delivery_method, recipient_email, recipient_phone, status,
			sent_at, failed_at, related_entity_type, related_entity_id, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),NULLIF($8,''),$9,$10,$11,$12,$13,$14)
		RETURNING id, created_at`,
		e.ClientID, e.NotificationType, e.NotificationCategory,
		e.Subject, e.Message, e.DeliveryMethod, e.RecipientEmail, e.RecipientPhone, e.Status,
		e.SentAt, e.FailedAt, relType, relID, meta,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *repoPG) ListLog(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*LogEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM notification_log WHERE client_id = $1`, clientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+logCols+` FROM notification_log
		WHERE client_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, clientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*LogEntry
	for rows.Next() {
		e, err := scanLog(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func scanLog(row pgx.Row) (*LogEntry, error) {
	var e LogEntry
	var relType, relID string
	var meta []byte
	err := row.Scan(&e.ID, &e.ClientID, &e.NotificationType, &e.NotificationCategory,
		&e.Subject, &e.Message, &e.DeliveryMethod,
		&e.RecipientEmail, &e.RecipientPhone, &e.Status,
		&e.SentAt, &e.DeliveredAt, &e.OpenedAt, &e.ClickedAt, &e.FailedAt,
		&relType, &relID, &meta, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if relType != "" {
		e.Related = &RelatedEntity{Type: relType, ID: relID}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode log metadata: %w", err)
		}
	}
	return &e, nil
}

func nonNilMeta(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// =========== Clients and Branding ===========

func (r *repoPG) GetClient(ctx context.Context, clientID uuid.UUID) (*ClientRecord, error) {
	var c ClientRecord
	var first, last string
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, user_id, first_name, last_name, COALESCE(email, ''), COALESCE(phone, '')
		FROM clients WHERE id = $1`, clientID).Scan(
		&c.ID, &c.OwnerID, &first, &last, &c.Contact.Email, &c.Contact.Phone)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	c.Contact.Name = first + " " + last
	return &c, nil
}

// GetBranding returns the owner's practice settings. A practice without a
// settings row gets empty branding, which renders with defaults.
func (r *repoPG) GetBranding(ctx context.Context, ownerID uuid.UUID) (Branding, error) {
	var b Branding
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT practice_name, practice_phone, practice_email, practice_website
		FROM practice_settings WHERE user_id = $1`, ownerID).Scan(
		&b.PracticeName, &b.Phone, &b.Email, &b.Website)
	if db.IsNoRows(err) {
		return Branding{}, nil
	}
	if err != nil {
		return Branding{}, fmt.Errorf("get branding: %w", err)
	}
	return b, nil
}

// =========== Appointment Reminders ===========

func (r *repoPG) DueReminders(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, client_id, starts_at, duration_minutes, appointment_type, modality,
			COALESCE(telehealth_link, '')
		FROM appointments
		WHERE reminder_sent_at IS NULL AND status = 'scheduled'
			AND starts_at > $1 AND starts_at <= $2
		ORDER BY starts_at`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.ClientID, &a.StartsAt, &a.Duration, &a.Type, &a.Modality, &a.TelehealthLink); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *repoPG) MarkReminderSent(ctx context.Context, appointmentID uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET reminder_sent_at = $2 WHERE id = $1 AND reminder_sent_at IS NULL`,
		appointmentID, at)
	return err
}
