package subscription

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allFeatures = []Feature{
	FeatureClientManagement, FeatureAppointmentScheduling, FeatureBillingInvoicing,
	FeatureManualClinicalNotes, FeatureClientPortal, FeatureDigitalSignatures,
	FeatureAIClinicalNotes, FeatureIntegratedTelehealth, FeatureMultiClinician, FeaturePrioritySupport,
}

func TestCheckAccess(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		status  Status
		addon   Addon
		feature Feature
		allowed bool
		reason  Reason
	}{
		{"essential core", PlanEssential, StatusActive, AddonNone, FeatureClientPortal, true, ReasonPlanFeature},
		{"essential ai", PlanEssential, StatusActive, AddonNone, FeatureAIClinicalNotes, false, ReasonUpgradeRequired},
		{"professional ai selected", PlanProfessional, StatusActive, AddonAINotes, FeatureAIClinicalNotes, true, ReasonAddonSelected},
		{"professional ai other addon", PlanProfessional, StatusActive, AddonTelehealth, FeatureAIClinicalNotes, false, ReasonAddonRequired},
		{"professional telehealth none", PlanProfessional, StatusTrialing, AddonNone, FeatureIntegratedTelehealth, false, ReasonAddonRequired},
		{"professional priority support", PlanProfessional, StatusActive, AddonNone, FeaturePrioritySupport, true, ReasonPlanFeature},
		{"professional multi clinician", PlanProfessional, StatusActive, AddonAINotes, FeatureMultiClinician, false, ReasonUpgradeRequired},
		{"complete anything", PlanComplete, StatusActive, AddonNone, FeatureMultiClinician, true, ReasonCompleteSuite},
		{"trialing counts", PlanComplete, StatusTrialing, AddonNone, FeatureAIClinicalNotes, true, ReasonCompleteSuite},
		{"past due", PlanComplete, StatusPastDue, AddonNone, FeatureClientPortal, false, ReasonInactiveSubscription},
		{"canceled", PlanEssential, StatusCanceled, AddonNone, FeatureClientPortal, false, ReasonInactiveSubscription},
		{"invalid plan", Plan("gold"), StatusActive, AddonNone, FeatureClientPortal, false, ReasonInvalidPlan},
		{"unknown feature", PlanComplete, StatusActive, AddonNone, Feature("teleportation"), false, ReasonUnknownFeature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CheckAccess(tt.plan, tt.status, tt.addon, tt.feature)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
			if !d.Allowed {
				assert.NotEmpty(t, d.Message)
			}
		})
	}
}

func TestCheckAccess_AddonRequiredAction(t *testing.T) {
	d := CheckAccess(PlanProfessional, StatusActive, AddonNone, FeatureAIClinicalNotes)
	assert.Equal(t, ActionSelectAddon, d.AvailableAction)
	assert.Equal(t, AddonAINotes, d.RequiredAddon)
	assert.Equal(t, "Select AI Notes as your Professional addon to use this feature", d.Message)

	d = CheckAccess(PlanProfessional, StatusActive, AddonTelehealth, FeatureAIClinicalNotes)
	assert.Equal(t, ActionChangeAddon, d.AvailableAction)
}

func TestCheckAccess_UpgradeRequiredPlans(t *testing.T) {
	d := CheckAccess(PlanEssential, StatusActive, AddonNone, FeatureIntegratedTelehealth)
	assert.Equal(t, []Plan{PlanProfessional, PlanComplete}, d.RequiredPlans)
	assert.Contains(t, d.Message, "telehealth")

	d = CheckAccess(PlanProfessional, StatusActive, AddonNone, FeatureMultiClinician)
	assert.Equal(t, []Plan{PlanComplete}, d.RequiredPlans)
}

// Every combination yields a decision with a reason.
func TestCheckAccess_Total(t *testing.T) {
	plans := append(append([]Plan{}, planOrder...), "", "unknown")
	statuses := []Status{StatusActive, StatusTrialing, StatusPastDue, StatusCanceled, StatusIncomplete, ""}
	addons := []Addon{AddonNone, AddonAINotes, AddonTelehealth, ""}
	for _, p := range plans {
		for _, s := range statuses {
			for _, a := range addons {
				for _, f := range append(allFeatures, "bogus") {
					d := CheckAccess(p, s, a, f)
					require.NotEmpty(t, d.Reason, "%s/%s/%s/%s", p, s, a, f)
					if d.Allowed {
						require.True(t, s.Entitled())
					}
				}
			}
		}
	}
}

func TestUpgradeOptions(t *testing.T) {
	opts := UpgradeOptions(PlanEssential, AddonNone, FeatureAIClinicalNotes)
	require.Len(t, opts, 2)
	assert.Equal(t, PlanProfessional, opts[0].Plan)
	assert.Equal(t, "Includes this feature as an addon option", opts[0].Note)
	assert.Equal(t, "60", opts[0].Price.String())
	assert.Equal(t, PlanComplete, opts[1].Plan)

	opts = UpgradeOptions(PlanProfessional, AddonNone, FeatureAIClinicalNotes)
	require.Len(t, opts, 2)
	assert.Equal(t, ActionSelectAddon, opts[0].Action)
	assert.Equal(t, AddonAINotes, opts[0].Addon)
	assert.Equal(t, ActionUpgrade, opts[1].Action)

	opts = UpgradeOptions(PlanProfessional, AddonTelehealth, FeatureAIClinicalNotes)
	assert.Equal(t, ActionChangeAddon, opts[0].Action)

	assert.Empty(t, UpgradeOptions(PlanProfessional, AddonAINotes, FeatureAIClinicalNotes))
	assert.Empty(t, UpgradeOptions(PlanComplete, AddonNone, FeatureMultiClinician))
	assert.Empty(t, UpgradeOptions(PlanEssential, AddonNone, "bogus"))
}

func TestCatalog(t *testing.T) {
	plans := Catalog()
	require.Len(t, plans, 3)
	assert.Equal(t, []int{50, 100, 250}, []int{plans[0].StorageGB, plans[1].StorageGB, plans[2].StorageGB})
	assert.Equal(t, "40", plans[0].Price.String())
	assert.Equal(t, "75", plans[2].Price.String())

	for _, p := range plans {
		for _, f := range allFeatures {
			if p.ID == PlanComplete {
				assert.Equal(t, Included, p.Features[f], f)
			}
		}
	}

	raw, err := json.Marshal(plans[1])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"aiClinicalNotes":"addon"`)
	assert.Contains(t, string(raw), `"clientPortal":"included"`)
}

func TestParse(t *testing.T) {
	_, ok := ParsePlan("professional")
	assert.True(t, ok)
	_, ok = ParsePlan("Professional")
	assert.False(t, ok)

	a, ok := ParseAddon("")
	assert.True(t, ok)
	assert.Equal(t, AddonNone, a)
	_, ok = ParseAddon("video")
	assert.False(t, ok)
}
