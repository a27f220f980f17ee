package account

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sessionably/practice/internal/domain/notify"
	"github.com/sessionably/practice/internal/domain/subscription"
	"github.com/sessionably/practice/internal/platform/apperr"
	"github.com/sessionably/practice/internal/platform/db"
	"github.com/sessionably/practice/internal/platform/notification"
	"github.com/sessionably/practice/internal/platform/payment"
)

const DefaultTrialDays = 7

// Prices maps plans to processor price ids.
type Prices struct {
	Essential              string
	ProfessionalAI         string
	ProfessionalTelehealth string
	Complete               string
}

func (p Prices) For(plan subscription.Plan, addon subscription.Addon) string {
	switch plan {
	case subscription.PlanEssential:
		return p.Essential
	case subscription.PlanProfessional:
		if addon == subscription.AddonTelehealth {
			return p.ProfessionalTelehealth
		}
		return p.ProfessionalAI
	case subscription.PlanComplete:
		return p.Complete
	}
	return ""
}

type Options struct {
	Prices    Prices
	TrialDays int64
	LoginURL  string
}

type Service struct {
	repo     Repository
	tx       db.TxRunner
	payments payment.Gateway
	renderer *notify.Renderer
	email    notification.EmailSender
	opts     Options
	logger   zerolog.Logger
	// bcryptCost is lowered in tests.
	bcryptCost int
}

func NewService(repo Repository, tx db.TxRunner, payments payment.Gateway, renderer *notify.Renderer,
	email notification.EmailSender, opts Options, logger zerolog.Logger) *Service {
	if opts.TrialDays <= 0 {
		opts.TrialDays = DefaultTrialDays
	}
	return &Service{
		repo:       repo,
		tx:         tx,
		payments:   payments,
		renderer:   renderer,
		email:      email,
		opts:       opts,
		logger:     logger.With().Str("component", "account").Logger(),
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Create signs up a practice: processor customer and trial subscription
// first, then the user and practice settings in one transaction. A failure
// after the processor calls undoes them.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Created, error) {
	plan, addon, err := req.Validate()
	if err != nil {
		return nil, err
	}

	if err := s.repo.Ping(ctx); err != nil {
		return nil, apperr.Unavailable("database unavailable", err)
	}
	if taken, err := s.repo.UsernameExists(ctx, req.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, apperr.Conflict("Username already taken")
	}
	if taken, err := s.repo.EmailExists(ctx, req.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, apperr.Conflict("Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	log := s.logger.With().Str("username", req.Username).Str("plan", string(plan)).Logger()

	customerID, err := s.payments.CreateCustomer(ctx, payment.CustomerInput{
		Email: req.Email,
		Name:  req.FullName(),
		Metadata: map[string]string{
			"practice_name":  req.PracticeName,
			"license_number": req.LicenseNumber,
			"username":       req.Username,
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("payment customer creation failed")
		return nil, apperr.Upstream("Unable to create payment profile", err)
	}

	sub, err := s.payments.CreateSubscription(ctx, payment.SubscriptionInput{
		CustomerID: customerID,
		PriceID:    s.opts.Prices.For(plan, addon),
		TrialDays:  s.opts.TrialDays,
		Metadata: map[string]string{
			"plan":     string(plan),
			"add_on":   string(addon),
			"username": req.Username,
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("payment subscription creation failed")
		s.deleteCustomer(log, customerID)
		return nil, apperr.Upstream("Unable to create subscription", err)
	}

	var trialEnd *time.Time
	if !sub.TrialEnd.IsZero() {
		t := sub.TrialEnd
		trialEnd = &t
	}
	status := sub.Status
	if status == "" {
		status = string(subscription.StatusTrialing)
	}

	var user *User
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := s.repo.CreateUser(ctx, &NewUser{
			Username:             req.Username,
			Email:                req.Email,
			PasswordHash:         string(hash),
			FullName:             req.FullName(),
			Role:                 "admin",
			Plan:                 plan,
			Addon:                addon,
			Status:               status,
			StripeCustomerID:     customerID,
			StripeSubscriptionID: sub.ID,
			TrialEndsAt:          trialEnd,
		})
		if err != nil {
			return err
		}
		if err := s.repo.CreatePracticeSettings(ctx, &PracticeSettings{
			UserID:  u.ID,
			Name:    req.PracticeName,
			Phone:   req.Phone,
			Email:   req.Email,
			License: req.LicenseNumber,
		}); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("account insert failed, undoing payment setup")
		s.cancelSubscription(log, sub.ID)
		s.deleteCustomer(log, customerID)
		switch {
		case errors.Is(err, ErrUsernameTaken):
			return nil, apperr.Conflict("Username already taken")
		case errors.Is(err, ErrEmailTaken):
			return nil, apperr.Conflict("Email already registered")
		}
		return nil, apperr.Internal("Unable to create user account", err)
	}

	info, _ := subscription.LookupPlan(plan)
	log.Info().Str("user_id", user.ID.String()).Str("add_on", string(addon)).Msg("account created")

	s.sendWelcome(ctx, user, info, trialEnd)

	return &Created{
		User: user,
		Subscription: SubscriptionSummary{
			ID:       sub.ID,
			Status:   status,
			Plan:     plan,
			AddOn:    addon,
			TrialEnd: trialEnd,
			Amount:   info.Price,
		},
		NextSteps: NextSteps{
			Message: "Your free trial has started!",
			Actions: []string{
				"Complete your practice profile",
				"Add your first client",
				"Explore features",
				"Add payment method before trial ends",
			},
		},
	}, nil
}

// sendWelcome is best-effort.
func (s *Service) sendWelcome(ctx context.Context, u *User, plan subscription.PlanInfo, trialEnd *time.Time) {
	if s.email == nil || s.renderer == nil {
		return
	}
	data := notify.Data{"name": u.FullName, "plan_name": plan.Name, "login_url": s.opts.LoginURL}
	if trialEnd != nil {
		data["trial_end"] = trialEnd.Format("2006-01-02")
	}
	res := s.renderer.Render(notify.TemplateWelcome, data, notify.Branding{PracticeName: "Sessionably"})
	r, ok := res.Value()
	if !ok {
		s.logger.Warn().Str("reason", res.Message()).Msg("welcome email not rendered")
		return
	}
	if _, err := s.email.SendEmail(context.WithoutCancel(ctx), notification.Email{
		To: u.Email, Subject: r.Subject, Body: r.Body, HTML: r.HTML,
	}); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).
			Str("email", notification.MaskEmail(u.Email)).Msg("welcome email failed")
	}
}

func (s *Service) deleteCustomer(log zerolog.Logger, id string) {
	if err := s.payments.DeleteCustomer(context.Background(), id); err != nil {
		log.Error().Err(err).Str("customer_id", id).Msg("failed to clean up payment customer")
	}
}

func (s *Service) cancelSubscription(log zerolog.Logger, id string) {
	if err := s.payments.CancelSubscription(context.Background(), id); err != nil {
		log.Error().Err(err).Str("subscription_id", id).Msg("failed to cancel payment subscription")
	}
}
