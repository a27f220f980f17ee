package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/sessionably/practice/internal/platform/metrics"
)

// ReminderSummary counts what one sweep did.
type ReminderSummary struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ReminderJob sends appointment reminders for sessions starting within the
// lead window. An appointment is marked reminded only after a successful
// delivery, so quiet-hours skips and failures are retried by later sweeps.
type ReminderJob struct {
	store  ReminderStore
	svc    *Service
	lead   time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

func NewReminderJob(store ReminderStore, svc *Service, lead time.Duration, logger zerolog.Logger) *ReminderJob {
	return &ReminderJob{
		store:  store,
		svc:    svc,
		lead:   lead,
		logger: logger.With().Str("component", "reminders").Logger(),
		now:    time.Now,
	}
}

func (j *ReminderJob) SetClock(now func() time.Time) {
	j.now = now
}

// RunOnce performs a single sweep.
func (j *ReminderJob) RunOnce(ctx context.Context) (ReminderSummary, error) {
	var sum ReminderSummary
	now := j.now()
	due, err := j.store.DueReminders(ctx, now, now.Add(j.lead))
	if err != nil {
		return sum, fmt.Errorf("load due reminders: %w", err)
	}
	sum.Due = len(due)

	for _, a := range due {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := j.svc.SendTemplate(ctx, a.ClientID, TemplateAppointmentReminder, reminderData(a), SendOptions{
			Related: &RelatedEntity{Type: "appointment", ID: a.ID.String()},
		})
		switch {
		case err != nil:
			sum.Failed++
			metrics.RemindersSent.WithLabelValues("failed").Inc()
			j.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("reminder not sent")
			continue
		case res.Outcome.Skipped:
			sum.Skipped++
			metrics.RemindersSent.WithLabelValues("skipped").Inc()
			continue
		case !res.Outcome.Success:
			sum.Failed++
			metrics.RemindersSent.WithLabelValues("failed").Inc()
			continue
		}

		if err := j.store.MarkReminderSent(ctx, a.ID, j.now()); err != nil {
			j.logger.Error().Err(err).Str("appointment_id", a.ID.String()).Msg("mark reminder sent")
		}
		sum.Sent++
		metrics.RemindersSent.WithLabelValues("sent").Inc()
	}

	j.logger.Info().
		Int("due", sum.Due).Int("sent", sum.Sent).
		Int("skipped", sum.Skipped).Int("failed", sum.Failed).
		Msg("reminder sweep finished")
	return sum, nil
}

// Schedule registers the sweep on c using a standard five-field spec.
func (j *ReminderJob) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := j.RunOnce(ctx); err != nil {
			j.logger.Error().Err(err).Msg("reminder sweep failed")
		}
	})
}

func reminderData(a *Appointment) Data {
	d := Data{
		"appointment_date": a.StartsAt.Format("2006-01-02"),
		"appointment_time": a.StartsAt.Format("3:04 PM"),
		"type":             a.Type,
		"modality":         a.Modality,
	}
	if a.Duration > 0 {
		d["duration"] = a.Duration
	}
	if a.TelehealthLink != "" {
		d["telehealth_link"] = a.TelehealthLink
	}
	return d
}
