package account

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sessionably/practice/internal/domain/subscription"
	"github.com/sessionably/practice/internal/platform/apperr"
)

const MinPasswordLength = 8

// CreateRequest is the sign-up form for a new practice.
type CreateRequest struct {
	Plan          string `json:"plan"`
	AddOn         string `json:"add_on"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	PracticeName  string `json:"practice_name"`
	LicenseNumber string `json:"license_number"`
	Username      string `json:"username"`
	Password      string `json:"password"`
}

func (r *CreateRequest) normalize() {
	r.Plan = strings.TrimSpace(strings.ToLower(r.Plan))
	r.AddOn = strings.TrimSpace(strings.ToLower(r.AddOn))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.PracticeName = strings.TrimSpace(r.PracticeName)
	r.LicenseNumber = strings.TrimSpace(r.LicenseNumber)
	r.Username = strings.TrimSpace(r.Username)
}

func (r *CreateRequest) FullName() string {
	return r.FirstName + " " + r.LastName
}

// Validate checks the request and returns the parsed plan and addon.
func (r *CreateRequest) Validate() (subscription.Plan, subscription.Addon, error) {
	r.normalize()
	required := []struct{ field, value string }{
		{"plan", r.Plan},
		{"first_name", r.FirstName},
		{"last_name", r.LastName},
		{"email", r.Email},
		{"practice_name", r.PracticeName},
		{"username", r.Username},
		{"password", r.Password},
	}
	for _, f := range required {
		if f.value == "" {
			return "", "", apperr.Validation(f.field, f.field+" is required")
		}
	}

	plan, ok := subscription.ParsePlan(r.Plan)
	if !ok {
		return "", "", apperr.Validation("plan", "plan must be one of essential, professional, complete")
	}
	addon, ok := subscription.ParseAddon(r.AddOn)
	if !ok {
		return "", "", apperr.Validation("add_on", "add_on must be \"ai_notes\" or \"telehealth\"")
	}
	switch {
	case plan == subscription.PlanProfessional && addon == subscription.AddonNone:
		return "", "", apperr.Validation("add_on", "Professional tier requires add-on selection")
	case plan != subscription.PlanProfessional:
		addon = subscription.AddonNone
	}

	if len(r.Password) < MinPasswordLength {
		return "", "", apperr.Validation("password", "password must be at least 8 characters")
	}
	if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		return "", "", apperr.Validation("email", "email is not a valid address")
	}
	return plan, addon, nil
}

// NewUser is the users row written at sign-up.
type NewUser struct {
	Username             string
	Email                string
	PasswordHash         string
	FullName             string
	Role                 string
	Plan                 subscription.Plan
	Addon                subscription.Addon
	Status               string
	StripeCustomerID     string
	StripeSubscriptionID string
	TrialEndsAt          *time.Time
}

type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
}

type PracticeSettings struct {
	UserID  uuid.UUID
	Name    string
	Phone   string
	Email   string
	License string
}

type SubscriptionSummary struct {
	ID       string             `json:"id"`
	Status   string             `json:"status"`
	Plan     subscription.Plan  `json:"plan"`
	AddOn    subscription.Addon `json:"add_on"`
	TrialEnd *time.Time         `json:"trial_end,omitempty"`
	Amount   decimal.Decimal    `json:"amount"`
}

type NextSteps struct {
	Message string   `json:"message"`
	Actions []string `json:"actions"`
}

type Created struct {
	User         *User               `json:"user"`
	Subscription SubscriptionSummary `json:"subscription"`
	NextSteps    NextSteps           `json:"next_steps"`
}
