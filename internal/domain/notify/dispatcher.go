package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sessionably/practice/internal/platform/metrics"
	"github.com/sessionably/practice/internal/platform/notification"
	"github.com/sessionably/practice/internal/platform/result"
)

const DefaultProviderTimeout = 15 * time.Second

// Request is one notification event for one client.
type Request struct {
	ClientID uuid.UUID
	Rendered Rendered
	Contact  Contact
	Related  *RelatedEntity
	// Channels limits delivery to the listed channels. Empty means no limit.
	Channels []Channel
	// Urgent notifications ignore quiet hours.
	Urgent   bool
	// Direct sends on exactly the listed Channels. Client preferences and
	// quiet hours are not consulted.
	Direct   bool
	Metadata map[string]any
}

// Outcome reports what happened to each channel. Success is true when at
// least one channel delivered.
type Outcome struct {
	Success bool                                `json:"success"`
	Skipped bool                                `json:"skipped,omitempty"`
	Message string                              `json:"message,omitempty"`
	Email   result.Result[notification.Receipt] `json:"email"`
	SMS     result.Result[notification.Receipt] `json:"sms"`
}

var notSent = result.Fail[notification.Receipt]("Not sent")

// Dispatcher gates, sends and logs notifications.
type Dispatcher struct {
	prefs   PreferenceStore
	logs    LogStore
	email   notification.EmailSender
	sms     notification.SMSSender
	logger  zerolog.Logger
	now     func() time.Time
	timeout time.Duration
}

func NewDispatcher(prefs PreferenceStore, logs LogStore, email notification.EmailSender, sms notification.SMSSender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		prefs:   prefs,
		logs:    logs,
		email:   email,
		sms:     sms,
		logger:  logger.With().Str("component", "notify").Logger(),
		now:     time.Now,
		timeout: DefaultProviderTimeout,
	}
}

// SetClock replaces the clock used for quiet-hours checks.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// SetProviderTimeout bounds each provider call. Zero disables the bound.
func (d *Dispatcher) SetProviderTimeout(t time.Duration) {
	d.timeout = t
}

// Dispatch runs the quiet-hours gate, picks channels from the client's
// preferences, and sends on each chosen channel that has a recipient. Direct
// requests skip both gates. Every attempt, and every quiet-hours skip, is
// written to the notification log. Provider failures are reported in the
// Outcome, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Outcome {
	out := Outcome{Email: notSent, SMS: notSent}
	if req.ClientID == uuid.Nil {
		out.Message = "client id is required"
		return out
	}
	log := d.logger.With().
		Str("client_id", req.ClientID.String()).
		Str("notification_type", req.Rendered.NotificationType).
		Logger()

	var decision ChannelDecision
	if req.Direct {
		decision = explicitChannels(req.Channels)
	} else {
		var skipped bool
		decision, skipped = d.gate(ctx, log, req)
		if skipped {
			out.Skipped = true
			out.Message = "Skipped due to quiet hours"
			return out
		}
	}

	var g errgroup.Group
	if decision.SendEmail && req.Contact.Email != "" {
		g.Go(func() error {
			out.Email = d.deliver(ctx, log, req, ChannelEmail, func(ctx context.Context) (notification.Receipt, error) {
				return d.email.SendEmail(ctx, notification.Email{
					To:      req.Contact.Email,
					Subject: req.Rendered.Subject,
					Body:    req.Rendered.Body,
					HTML:    req.Rendered.HTML,
				})
			})
			return nil
		})
	}
	if decision.SendSMS && req.Contact.Phone != "" {
		g.Go(func() error {
			out.SMS = d.deliver(ctx, log, req, ChannelSMS, func(ctx context.Context) (notification.Receipt, error) {
				return d.sms.SendSMS(ctx, notification.SMS{
					To:   req.Contact.Phone,
					Body: req.Rendered.SMSBody(),
				})
			})
			return nil
		})
	}
	_ = g.Wait()

	out.Success = out.Email.IsOk() || out.SMS.IsOk()
	if !out.Success && out.Email.Message() == notSent.Message() && out.SMS.Message() == notSent.Message() {
		out.Message = "no channel enabled for this notification"
	}
	return out
}

// gate applies quiet hours and the client's channel preferences. A
// quiet-hours skip is logged here and reported as skipped.
func (d *Dispatcher) gate(ctx context.Context, log zerolog.Logger, req Request) (ChannelDecision, bool) {
	prefs, err := d.prefs.GetPreferences(ctx, req.ClientID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Msg("preferences unavailable, using conservative defaults")
		}
		prefs = nil
	}

	if !req.Urgent && !IsOutsideQuietHours(prefs, d.now()) {
		log.Info().Str("reason", ReasonQuietHours).Msg("notification skipped")
		d.writeLog(context.WithoutCancel(ctx), log, &LogEntry{
			ClientID:             req.ClientID,
			NotificationType:     req.Rendered.NotificationType,
			NotificationCategory: CategorySystem,
			Subject:              req.Rendered.Subject,
			Message:              req.Rendered.Body,
			DeliveryMethod:       ChannelNone,
			RecipientEmail:       req.Contact.Email,
			RecipientPhone:       req.Contact.Phone,
			Status:               StatusSkipped,
			Related:              req.Related,
			Metadata:             withMeta(req.Metadata, "reason", ReasonQuietHours),
		})
		metrics.NotificationsDispatched.WithLabelValues(string(ChannelNone), string(StatusSkipped)).Inc()
		return ChannelDecision{}, true
	}

	return SelectChannels(req.Rendered.NotificationType, prefs, req.Contact).restrict(req.Channels), false
}

// deliver calls one provider and logs the attempt. The log write uses a
// context that survives cancellation of the request.
func (d *Dispatcher) deliver(ctx context.Context, log zerolog.Logger, req Request, ch Channel,
	send func(context.Context) (notification.Receipt, error)) result.Result[notification.Receipt] {

	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	receipt, err := send(callCtx)
	metrics.ProviderDuration.WithLabelValues(string(ch)).Observe(time.Since(start).Seconds())

	entry := &LogEntry{
		ClientID:             req.ClientID,
		NotificationType:     req.Rendered.NotificationType,
		NotificationCategory: string(ch),
		Subject:              req.Rendered.Subject,
		Message:              req.Rendered.Body,
		DeliveryMethod:       ch,
		Related:              req.Related,
	}
	switch ch {
	case ChannelEmail:
		entry.RecipientEmail = req.Contact.Email
	case ChannelSMS:
		entry.RecipientPhone = req.Contact.Phone
	}

	var res result.Result[notification.Receipt]
	if err != nil {
		entry.Status = StatusFailed
		entry.Metadata = withMeta(req.Metadata, "error", err.Error())
		log.Warn().Err(err).Str("channel", string(ch)).Msg("notification delivery failed")
		res = result.FromError[notification.Receipt](err)
	} else {
		entry.Status = StatusSent
		entry.Metadata = withMeta(req.Metadata, "messageId", receipt.MessageID)
		log.Info().Str("channel", string(ch)).Str("message_id", receipt.MessageID).Msg("notification sent")
		res = result.Ok(receipt)
	}

	d.writeLog(context.WithoutCancel(ctx), log, entry)
	metrics.NotificationsDispatched.WithLabelValues(string(ch), string(entry.Status)).Inc()
	return res
}

func (d *Dispatcher) writeLog(ctx context.Context, log zerolog.Logger, e *LogEntry) {
	if e.Status == StatusSent || e.Status == StatusDelivered {
		t := d.now()
		e.SentAt = &t
	}
	if e.Status == StatusFailed {
		t := d.now()
		e.FailedAt = &t
	}
	if err := d.logs.InsertLog(ctx, e); err != nil {
		log.Error().Err(err).Str("status", string(e.Status)).Msg("write notification log")
	}
}

func withMeta(base map[string]any, key string, value any) map[string]any {
	m := make(map[string]any, len(base)+1)
	for k, v := range base {
		m[k] = v
	}
	if s, ok := value.(string); !ok || s != "" {
		m[key] = value
	}
	return m
}
