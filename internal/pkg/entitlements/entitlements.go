package entitlements

import "strings"

type Plan string

const (
	PlanFree    Plan = "Free"
	PlanStarter Plan = "Starter"
	PlanPro     Plan = "Pro"
)

// UnlimitedLeads is the ceiling stored for plans without a monthly limit. It is a
// plain number so remaining-lead arithmetic never needs a special case.
const UnlimitedLeads int64 = 999999

// Plans lists every plan in ascending order.
var Plans = []Plan{PlanFree, PlanStarter, PlanPro}

// ParsePlan matches a plan name case-insensitively.
func ParsePlan(raw string) (Plan, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "free":
		return PlanFree, true
	case "starter":
		return PlanStarter, true
	case "pro":
		return PlanPro, true
	default:
		return "", false
	}
}

// NormalizePlan returns the canonical plan, falling back to Free for unknown values.
func NormalizePlan(raw string) Plan {
	if p, ok := ParsePlan(raw); ok {
		return p
	}
	return PlanFree
}

// MaxLeadsPerMonth returns the monthly lead ceiling for a plan
func MaxLeadsPerMonth(plan Plan) int64 {
	switch plan {
	case PlanPro:
		return UnlimitedLeads
	case PlanStarter:
		return 600
	default:
		return 50
	}
}

// IsUnlimited reports whether the plan bypasses the monthly ceiling.
func IsUnlimited(plan Plan) bool {
	return plan == PlanPro
}
