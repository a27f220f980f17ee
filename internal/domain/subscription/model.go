package subscription

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Plan string

const (
	PlanEssential    Plan = "essential"
	PlanProfessional Plan = "professional"
	PlanComplete     Plan = "complete"
)

// ParsePlan returns the plan named s, or false.
func ParsePlan(s string) (Plan, bool) {
	p := Plan(s)
	_, ok := catalog[p]
	return p, ok
}

type Addon string

const (
	AddonNone       Addon = "none"
	AddonAINotes    Addon = "ai_notes"
	AddonTelehealth Addon = "telehealth"
)

// ParseAddon maps "" to AddonNone.
func ParseAddon(s string) (Addon, bool) {
	switch a := Addon(s); a {
	case "", AddonNone:
		return AddonNone, true
	case AddonAINotes, AddonTelehealth:
		return a, true
	}
	return "", false
}

type Feature string

const (
	FeatureClientManagement      Feature = "clientManagement"
	FeatureAppointmentScheduling Feature = "appointmentScheduling"
	FeatureBillingInvoicing      Feature = "billingInvoicing"
	FeatureManualClinicalNotes   Feature = "manualClinicalNotes"
	FeatureClientPortal          Feature = "clientPortal"
	FeatureDigitalSignatures     Feature = "digitalSignatures"
	FeatureAIClinicalNotes       Feature = "aiClinicalNotes"
	FeatureIntegratedTelehealth  Feature = "integratedTelehealth"
	FeatureMultiClinician        Feature = "multiClinician"
	FeaturePrioritySupport       Feature = "prioritySupport"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusTrialing   Status = "trialing"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
	StatusIncomplete Status = "incomplete"
)

// Entitled reports whether the status grants access to paid features.
func (s Status) Entitled() bool {
	return s == StatusActive || s == StatusTrialing
}

// Availability is how a plan offers a feature.
type Availability int

const (
	Unavailable Availability = iota
	Included
	ViaAddon
)

func (a Availability) String() string {
	switch a {
	case Included:
		return "included"
	case ViaAddon:
		return "addon"
	}
	return "unavailable"
}

func (a Availability) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// -- Catalog --

type PlanInfo struct {
	ID          Plan                     `json:"id"`
	Name        string                   `json:"name"`
	Price       decimal.Decimal          `json:"price"`
	StorageGB   int                      `json:"storage_gb"`
	Description string                   `json:"description"`
	Addons      []Addon                  `json:"addons,omitempty"`
	Features    map[Feature]Availability `json:"features"`
}

type featureInfo struct {
	name  string
	addon Addon
	// upgrade is shown to essential subscribers; selectAddon to professional
	// subscribers missing the addon.
	upgrade     string
	selectAddon string
}

var features = map[Feature]featureInfo{
	FeatureClientManagement:      {name: "Client Management"},
	FeatureAppointmentScheduling: {name: "Appointment Scheduling"},
	FeatureBillingInvoicing:      {name: "Billing & Invoicing"},
	FeatureManualClinicalNotes:   {name: "Clinical Notes"},
	FeatureClientPortal:          {name: "Client Portal"},
	FeatureDigitalSignatures:     {name: "Digital Signatures"},
	FeatureAIClinicalNotes: {
		name:        "AI-Powered Clinical Notes",
		addon:       AddonAINotes,
		upgrade:     "Upgrade to Professional or Complete Suite to unlock AI-powered clinical notes",
		selectAddon: "Select AI Notes as your Professional addon to use this feature",
	},
	FeatureIntegratedTelehealth: {
		name:        "Integrated Telehealth",
		addon:       AddonTelehealth,
		upgrade:     "Upgrade to Professional or Complete Suite to unlock telehealth capabilities",
		selectAddon: "Select Telehealth as your Professional addon to use this feature",
	},
	FeatureMultiClinician:  {name: "Multi-Clinician Practice"},
	FeaturePrioritySupport: {name: "Priority Support"},
}

var addonNames = map[Addon]string{
	AddonAINotes:    "AI NoteTaker",
	AddonTelehealth: "Telehealth",
}

func core() map[Feature]Availability {
	return map[Feature]Availability{
		FeatureClientManagement:      Included,
		FeatureAppointmentScheduling: Included,
		FeatureBillingInvoicing:      Included,
		FeatureManualClinicalNotes:   Included,
		FeatureClientPortal:          Included,
		FeatureDigitalSignatures:     Included,
	}
}

var planOrder = []Plan{PlanEssential, PlanProfessional, PlanComplete}

var catalog = func() map[Plan]PlanInfo {
	essential := core()

	professional := core()
	professional[FeatureAIClinicalNotes] = ViaAddon
	professional[FeatureIntegratedTelehealth] = ViaAddon
	professional[FeaturePrioritySupport] = Included

	complete := core()
	for _, f := range []Feature{FeatureAIClinicalNotes, FeatureIntegratedTelehealth, FeatureMultiClinician, FeaturePrioritySupport} {
		complete[f] = Included
	}

	return map[Plan]PlanInfo{
		PlanEssential: {
			ID: PlanEssential, Name: "Essential EHR", Price: decimal.NewFromInt(40), StorageGB: 50,
			Description: "Essential practice management tools",
			Features:    essential,
		},
		PlanProfessional: {
			ID: PlanProfessional, Name: "Professional", Price: decimal.NewFromInt(60), StorageGB: 100,
			Description: "Everything in Essential + choose AI Notes OR Telehealth",
			Addons:      []Addon{AddonAINotes, AddonTelehealth},
			Features:    professional,
		},
		PlanComplete: {
			ID: PlanComplete, Name: "Complete Suite", Price: decimal.NewFromInt(75), StorageGB: 250,
			Description: "Everything included - AI Notes + Telehealth + Multi-clinician",
			Features:    complete,
		},
	}
}()

// Catalog lists the plans from cheapest to most complete.
func Catalog() []PlanInfo {
	out := make([]PlanInfo, 0, len(planOrder))
	for _, p := range planOrder {
		out = append(out, catalog[p])
	}
	return out
}

func LookupPlan(p Plan) (PlanInfo, bool) {
	info, ok := catalog[p]
	return info, ok
}

// -- Account state --

// Account is a clinician's subscription as stored on the users row.
type Account struct {
	UserID      uuid.UUID  `json:"user_id"`
	Plan        Plan       `json:"plan"`
	Status      Status     `json:"status"`
	Addon       Addon      `json:"add_on"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
}
