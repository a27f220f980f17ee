package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sessionably/practice/internal/platform/apperr"
)

// PreferencesView is a client's settings plus whether they are the
// unsaved defaults.
type PreferencesView struct {
	*ContactPreferences
	IsDefault bool `json:"is_default"`
}

// SendOptions carries the per-send knobs callers outside the HTTP layer use.
type SendOptions struct {
	Related  *RelatedEntity
	Channels []Channel
	Urgent   bool
	// Direct sends on exactly Channels, ignoring preferences and quiet hours.
	Direct   bool
	Metadata map[string]any
	// Contact overrides the recipient details stored on the client record.
	Contact *Contact
}

// SendResult is the rendered content together with its delivery outcome.
type SendResult struct {
	Template         string  `json:"template"`
	NotificationType string  `json:"notification_type"`
	Subject          string  `json:"subject"`
	Outcome          Outcome `json:"outcome"`
}

type Service struct {
	repo       Repository
	renderer   *Renderer
	dispatcher *Dispatcher
	logger     zerolog.Logger
}

func NewService(repo Repository, renderer *Renderer, dispatcher *Dispatcher, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		renderer:   renderer,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "notify").Logger(),
	}
}

func (s *Service) Renderer() *Renderer { return s.renderer }

// -- Preferences --

func (s *Service) GetPreferences(ctx context.Context, clientID uuid.UUID) (*PreferencesView, error) {
	if _, err := s.client(ctx, clientID); err != nil {
		return nil, err
	}
	p, err := s.repo.GetPreferences(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return &PreferencesView{ContactPreferences: DefaultPreferences(clientID), IsDefault: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &PreferencesView{ContactPreferences: p}, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, p *ContactPreferences) error {
	if _, err := s.client(ctx, p.ClientID); err != nil {
		return err
	}
	if err := ValidatePreferences(p); err != nil {
		return err
	}
	return s.repo.SavePreferences(ctx, p)
}

// ValidatePreferences normalises and checks a settings record before it is
// stored.
func ValidatePreferences(p *ContactPreferences) error {
	if p.PreferredContactMethod == "" {
		p.PreferredContactMethod = ChannelEmail
	}
	if p.PreferredContactMethod != ChannelEmail && p.PreferredContactMethod != ChannelSMS {
		return apperr.Validation("preferred_contact_method", "preferred_contact_method must be \"email\" or \"sms\"")
	}
	if p.QuietHoursStart != "" {
		if _, ok := parseClock(p.QuietHoursStart); !ok {
			return apperr.Validation("quiet_hours_start", "quiet_hours_start must be HH:MM")
		}
	}
	if p.QuietHoursEnd != "" {
		if _, ok := parseClock(p.QuietHoursEnd); !ok {
			return apperr.Validation("quiet_hours_end", "quiet_hours_end must be HH:MM")
		}
	}
	if p.QuietHoursEnabled && (p.QuietHoursStart == "" || p.QuietHoursEnd == "") {
		return apperr.Validation("quiet_hours_start", "quiet_hours_start and quiet_hours_end are required when quiet hours are enabled")
	}
	if p.Timezone == "" {
		p.Timezone = DefaultTimezone
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return apperr.Validation("timezone", "unknown timezone: "+p.Timezone)
	}
	return nil
}

// -- Log --

func (s *Service) ListLog(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*LogEntry, int, error) {
	if _, err := s.client(ctx, clientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListLog(ctx, clientID, limit, offset)
}

// -- Sending --

// Render produces a template with the branding of the client's practice.
// A zero clientID renders with default branding.
func (s *Service) Render(ctx context.Context, name string, data Data, clientID uuid.UUID) (Rendered, error) {
	var b Branding
	if clientID != uuid.Nil {
		c, err := s.client(ctx, clientID)
		if err != nil {
			return Rendered{}, err
		}
		b = s.branding(ctx, c.OwnerID)
	}
	return s.render(name, data, b)
}

// SendTemplate renders a template for a client and dispatches it. Delivery
// failures are reported in the result; only lookup and render problems are
// returned as errors.
func (s *Service) SendTemplate(ctx context.Context, clientID uuid.UUID, name string, data Data, opts SendOptions) (*SendResult, error) {
	c, err := s.client(ctx, clientID)
	if err != nil {
		return nil, err
	}
	b := s.branding(ctx, c.OwnerID)

	payload := make(Data, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	if _, ok := payload["client_name"]; !ok {
		payload["client_name"] = c.Contact.Name
	}

	rendered, err := s.render(name, payload, b)
	if err != nil {
		return nil, err
	}

	contact := c.Contact
	if opts.Contact != nil {
		contact = *opts.Contact
	}
	outcome := s.dispatcher.Dispatch(ctx, Request{
		ClientID: clientID,
		Rendered: rendered,
		Contact:  contact,
		Related:  opts.Related,
		Channels: opts.Channels,
		Urgent:   opts.Urgent,
		Direct:   opts.Direct,
		Metadata: opts.Metadata,
	})
	return &SendResult{
		Template:         name,
		NotificationType: rendered.NotificationType,
		Subject:          rendered.Subject,
		Outcome:          outcome,
	}, nil
}

func (s *Service) render(name string, data Data, b Branding) (Rendered, error) {
	res := s.renderer.Render(name, data, b)
	if v, ok := res.Value(); ok {
		return v, nil
	}
	var unknown *UnknownTemplateError
	var invalid *InvalidDataError
	switch err := res.Err(); {
	case errors.As(err, &unknown):
		return Rendered{}, apperr.Validation("template", unknown.Error())
	case errors.As(err, &invalid):
		return Rendered{}, apperr.Validation("data", invalid.Error())
	default:
		s.logger.Error().Err(err).Str("template", name).Msg("template render failed")
		return Rendered{}, apperr.Internal("render notification", err)
	}
}

func (s *Service) client(ctx context.Context, clientID uuid.UUID) (*ClientRecord, error) {
	c, err := s.repo.GetClient(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("client")
	}
	return c, err
}

// branding falls back to the defaults when the practice settings cannot be
// read.
func (s *Service) branding(ctx context.Context, ownerID uuid.UUID) Branding {
	b, err := s.repo.GetBranding(ctx, ownerID)
	if err != nil {
		s.logger.Warn().Err(err).Str("owner_id", ownerID.String()).Msg("practice branding unavailable")
		return Branding{}
	}
	return b
}
