package subscription

import (
	"github.com/shopspring/decimal"
)

type Reason string

const (
	ReasonInvalidPlan          Reason = "invalid_plan"
	ReasonUnknownFeature       Reason = "unknown_feature"
	ReasonInactiveSubscription Reason = "inactive_subscription"
	ReasonCompleteSuite        Reason = "complete_suite"
	ReasonPlanFeature          Reason = "plan_feature"
	ReasonAddonSelected        Reason = "addon_selected"
	ReasonAddonRequired        Reason = "addon_required"
	ReasonUpgradeRequired      Reason = "upgrade_required"
)

type Action string

const (
	ActionSelectAddon Action = "select_addon"
	ActionChangeAddon Action = "change_addon"
	ActionUpgrade     Action = "upgrade"
)

// Decision is the outcome of an access check.
type Decision struct {
	Allowed         bool   `json:"allowed"`
	Reason          Reason `json:"reason"`
	Message         string `json:"message,omitempty"`
	RequiredPlans   []Plan `json:"required_plans,omitempty"`
	RequiredAddon   Addon  `json:"required_addon,omitempty"`
	AvailableAction Action `json:"available_action,omitempty"`
}

func allow(r Reason) Decision { return Decision{Allowed: true, Reason: r} }

// CheckAccess decides whether a subscriber on plan, with the given status
// and addon, may use feature. It is defined for every input.
func CheckAccess(plan Plan, status Status, addon Addon, feature Feature) Decision {
	info, ok := catalog[plan]
	if !ok {
		return Decision{Reason: ReasonInvalidPlan, Message: "Invalid subscription plan"}
	}
	fi, ok := features[feature]
	if !ok {
		return Decision{Reason: ReasonUnknownFeature, Message: "Unknown feature: " + string(feature)}
	}
	if !status.Entitled() {
		return Decision{Reason: ReasonInactiveSubscription, Message: "Subscription is not active"}
	}
	if plan == PlanComplete {
		return allow(ReasonCompleteSuite)
	}

	switch info.Features[feature] {
	case Included:
		return allow(ReasonPlanFeature)
	case ViaAddon:
		if addon == fi.addon {
			return allow(ReasonAddonSelected)
		}
		action := ActionSelectAddon
		if addon != AddonNone && addon != "" {
			action = ActionChangeAddon
		}
		return Decision{
			Reason:          ReasonAddonRequired,
			Message:         fi.selectAddon,
			RequiredAddon:   fi.addon,
			AvailableAction: action,
		}
	}

	msg := fi.upgrade
	if msg == "" {
		msg = "This feature requires a higher tier subscription"
	}
	return Decision{
		Reason:          ReasonUpgradeRequired,
		Message:         msg,
		RequiredPlans:   plansOffering(feature),
		AvailableAction: ActionUpgrade,
	}
}

// plansOffering lists the plans that include feature or offer it as an addon.
func plansOffering(feature Feature) []Plan {
	var out []Plan
	for _, p := range planOrder {
		if catalog[p].Features[feature] != Unavailable {
			out = append(out, p)
		}
	}
	return out
}

// UpgradeOption is one way for a subscriber to gain a feature.
type UpgradeOption struct {
	Action Action           `json:"action"`
	Plan   Plan             `json:"plan,omitempty"`
	Addon  Addon            `json:"addon,omitempty"`
	Name   string           `json:"name"`
	Price  *decimal.Decimal `json:"price,omitempty"`
	Note   string           `json:"note"`
}

// UpgradeOptions lists the ways to unlock feature from the current plan and
// addon. It is empty when the plan already grants the feature or nothing
// higher offers it.
func UpgradeOptions(plan Plan, addon Addon, feature Feature) []UpgradeOption {
	fi, ok := features[feature]
	if !ok {
		return nil
	}
	if d := CheckAccess(plan, StatusActive, addon, feature); d.Allowed || d.Reason == ReasonInvalidPlan {
		return nil
	}

	var opts []UpgradeOption
	if catalog[plan].Features[feature] == ViaAddon {
		switch addon {
		case AddonNone, "":
			opts = append(opts, UpgradeOption{
				Action: ActionSelectAddon,
				Addon:  fi.addon,
				Name:   "Select " + addonNames[fi.addon] + " addon",
				Note:   "Included in your " + catalog[plan].Name + " plan",
			})
		default:
			opts = append(opts, UpgradeOption{
				Action: ActionChangeAddon,
				Addon:  fi.addon,
				Name:   "Switch to " + addonNames[fi.addon] + " addon",
				Note:   "Change once per billing cycle",
			})
		}
	}

	above := false
	for _, p := range planOrder {
		if p == plan {
			above = true
			continue
		}
		if !above {
			continue
		}
		info := catalog[p]
		avail := info.Features[feature]
		if avail == Unavailable {
			continue
		}
		note := "Includes everything"
		if avail == ViaAddon {
			note = "Includes this feature as an addon option"
		}
		price := info.Price
		opts = append(opts, UpgradeOption{
			Action: ActionUpgrade,
			Plan:   p,
			Name:   "Upgrade to " + info.Name,
			Price:  &price,
			Note:   note,
		})
	}
	return opts
}
